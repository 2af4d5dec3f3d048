package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kelgrand/offload/internal/config"
	"github.com/kelgrand/offload/internal/digest"
	"github.com/kelgrand/offload/internal/engine"
	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/mediafilter"
	"github.com/kelgrand/offload/internal/stats"
	"github.com/kelgrand/offload/internal/ui"
)

//nolint:gocyclo // CLI entry point orchestrates flag parsing and wiring
func newCopyCmd() *cobra.Command {
	var (
		workers    int
		algName    string
		bwLimitStr string
		paranoid   bool
		useIOURing bool
		resume     bool
		verifyFlag bool
		sealFlag   bool
		extraExts  []string
	)

	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy a file or directory with checksum verification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			cfg := loadConfig()
			applyCopyDefaults(cmd, cfg.Defaults, &workers, &algName, &verifyFlag, &bwLimitStr, &useIOURing, &extraExts)

			alg, err := digest.Parse(algName)
			if err != nil {
				return fmt.Errorf("invalid --algorithm: %w", err)
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = mediafilter.ParseSize(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			info, err := os.Stat(src)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			opts := engine.Options{
				Algorithm:      alg,
				Workers:        workers,
				BytesPerSec:    bwLimit,
				ForceStreaming: paranoid,
				UseIOURing:     useIOURing,
				Events:         events,
				Stats:          collector,
				Filter:         mediafilter.New(extraExts),
			}

			if resume && info.IsDir() {
				journal, jerr := engine.OpenJournal(src, dst)
				if jerr != nil {
					slog.Warn("resume journal unavailable", "error", jerr)
				} else {
					defer journal.Close()
					opts.Journal = journal
				}
			}

			eng, err := engine.New(opts)
			if err != nil {
				return err
			}
			defer eng.Close()

			presenter := ui.NewPresenter(ui.Config{
				Writer:      os.Stdout,
				ErrWriter:   os.Stderr,
				Stats:       collector,
				DstRoot:     dst,
				Quiet:       quietFlag,
				Interactive: ui.IsTTY(os.Stderr.Fd()),
			})

			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				if perr := presenter.Run(events); perr != nil {
					fmt.Fprintf(os.Stderr, "presenter: %v\n", perr)
				}
			}()

			var task *engine.Task
			if info.IsDir() {
				task = engine.NewDirectoryTask(src, dst)
			} else {
				task = engine.NewFileTask(src, dst)
			}

			slog.Debug("starting offload",
				"src", src, "dst", dst,
				"algorithm", alg, "workers", workers,
				"paranoid", paranoid, "iouring", useIOURing,
			)

			runErr := eng.Run(ctx, task)

			if runErr == nil && verifyFlag && info.IsDir() {
				res := eng.VerifyTree(ctx, src, dst, alg)
				if res.Failed > 0 {
					runErr = fmt.Errorf("verification failed for %d files", res.Failed)
				}
			}

			// Seal the destination after a clean transfer so the copy's
			// digests are re-provable later.
			if runErr == nil && sealFlag && info.IsDir() {
				manifestPath, serr := sealTree(ctx, dst, alg)
				if serr != nil {
					slog.Warn("manifest generation failed", "error", serr)
				} else {
					event.Emit(events, event.Event{Type: event.ManifestWritten, Path: manifestPath})
				}
			}

			stop()
			close(events)
			presenterWg.Wait()

			if !quietFlag {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if runErr != nil {
				slog.Error("offload failed", "error", runErr)
				if task.Snapshot().CompletedFiles > 0 {
					return &exitError{code: 1} // partial failure
				}
				return &exitError{code: 2} // total failure
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "number of copy workers (default: min(NumCPU, 8))")
	cmd.Flags().StringVar(&algName, "algorithm", "md5", "verification digest (md5, sha1, xxh64, blake3)")
	cmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	cmd.Flags().BoolVar(&paranoid, "paranoid", false, "force the digest-verified streaming copy for every file")
	cmd.Flags().BoolVar(&useIOURing, "iouring", false, "use io_uring for file copy (Linux only)")
	cmd.Flags().BoolVar(&resume, "resume", false, "skip files recorded as copied by a previous interrupted run")
	cmd.Flags().BoolVar(&verifyFlag, "verify", false, "re-verify the whole destination tree after copying")
	cmd.Flags().BoolVar(&sealFlag, "seal", false, "write a hash-list manifest into the destination after copying")
	cmd.Flags().StringSliceVar(&extraExts, "ext", nil, "extra media extensions to include (repeatable)")

	return cmd
}

// applyCopyDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyCopyDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	algName *string,
	verify *bool,
	bwLimit *string,
	useIOURing *bool,
	extraExts *[]string,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("algorithm") && defaults.Algorithm != nil {
		*algName = *defaults.Algorithm
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		*verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		*bwLimit = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("iouring") && defaults.IOURing != nil {
		*useIOURing = *defaults.IOURing
	}
	if !cmd.Flags().Changed("ext") && len(defaults.Extensions) > 0 {
		*extraExts = defaults.Extensions
	}
}
