package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/stats"
	"github.com/kelgrand/offload/internal/ui"
	"github.com/kelgrand/offload/internal/volume"
)

func newVolumesCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "List mounted storage volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := volume.NewRegistry(nil, nil)
			defer reg.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printVolumes(reg.List(ctx))

			if !watch {
				return nil
			}

			events := make(chan event.Event, 16)
			reg.Subscribe(func(ev volume.Event) {
				t := event.VolumeAttached
				if ev.Type == volume.Detached {
					t = event.VolumeDetached
				}
				event.Emit(events, event.Event{Type: t, Path: ev.Volume.MountPath})
			})

			presenter := ui.NewPresenter(ui.Config{
				Writer:      os.Stdout,
				ErrWriter:   os.Stderr,
				Stats:       stats.NewCollector(),
				Quiet:       quietFlag,
				Interactive: ui.IsTTY(os.Stderr.Fd()),
			})

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = presenter.Run(events)
			}()

			<-ctx.Done()
			close(events)
			wg.Wait()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and report attach/detach events")

	return cmd
}

func printVolumes(vols []volume.Volume) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMOUNT\tDEVICE\tSIZE\tFREE\tREMOVABLE\tACCESS")
	for _, v := range vols {
		removable := "-"
		if v.Removable {
			removable = "yes"
		}
		access := "-"
		if v.AccessGranted {
			access = "ok"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Name, v.MountPath, v.DevicePath,
			ui.FormatBytes(int64(v.TotalBytes)), ui.FormatBytes(int64(v.FreeBytes)),
			removable, access)
	}
	w.Flush()
}

func newEjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eject <mount-path>",
		Short: "Unmount and eject a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := volume.NewRegistry(nil, nil)
			defer reg.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			target := volume.Volume{MountPath: args[0]}
			for _, v := range reg.List(ctx) {
				if v.MountPath == args[0] {
					target = v
					break
				}
			}

			return reg.Eject(ctx, target)
		},
	}
}
