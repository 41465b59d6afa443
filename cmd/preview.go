package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Load a local file (default: the artifact) and print its first rows",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		path := targetPath(args)
		if err := services.Inspect(ctx, path, cmd.OutOrStdout(), cfg.Preview.Rows); err != nil {
			logger.Errorw("Preview failed", "path", path, "err", err)
			return err
		}
		return nil
	},
}
