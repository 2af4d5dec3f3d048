package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kelgrand/offload/internal/mhl"
)

func newVerifyCmd() *cobra.Command {
	var basePath string

	cmd := &cobra.Command{
		Use:   "verify <manifest>",
		Short: "Check files on disk against a hash-list manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := mhl.Verify(ctx, args[0], basePath)
			if err != nil {
				return err
			}

			if !quietFlag {
				for _, p := range res.Invalid {
					fmt.Fprintf(os.Stdout, "MISMATCH  %s\n", p)
				}
				for _, p := range res.Missing {
					fmt.Fprintf(os.Stdout, "missing   %s\n", p)
				}
				fmt.Fprintf(os.Stderr, "verified %d  missing %d  invalid %d\n",
					len(res.Verified), len(res.Missing), len(res.Invalid))
			}

			if !res.Success() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&basePath, "base", "", "resolve entries under this directory (default: the manifest's directory)")

	return cmd
}
