package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

var sniffCmd = &cobra.Command{
	Use:   "sniff [file]",
	Short: "Detect the delimiter and encoding of a local file (default: the artifact)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		path := targetPath(args)
		desc, err := services.Sniffer.Sniff(ctx, path)
		if err != nil {
			logger.Errorw("Sniff failed", "path", path, "err", err)
			return fmt.Errorf("sniff: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "delimiter\t%s\nencoding\t%s\n",
			models.DelimiterName(desc.Delimiter), desc.Encoding)
		return nil
	},
}

func targetPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return services.Store.ArtifactPath()
}
