package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kelgrand/offload/internal/config"
)

var version = "dev"

func main() {
	os.Exit(run())
}

var (
	verboseFlag bool
	quietFlag   bool
)

func run() int {
	rootCmd := &cobra.Command{
		Use:           "offload",
		Short:         "Verified media offload: copy camera cards with checksums and manifests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			configureLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress all output except errors")

	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(newSealCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVolumesCmd())
	rootCmd.AddCommand(newEjectCmd())
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func configureLogging() {
	logLevel := slog.LevelWarn
	if verboseFlag {
		logLevel = slog.LevelDebug
	} else if !quietFlag {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// loadConfig reads the optional config file, downgrading failures to a
// warning: a broken config never blocks an offload.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	return cfg
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
