// ABOUTME: Download command for the hirescore CLI
// ABOUTME: Fetches a rendered resume template as a PDF

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <template-id>",
	Short: "Download a resume template as PDF",
	Long: `Download a rendered resume template as a PDF file. Costs credits;
the deduction appears on the next 'hirescore status'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		templateID := args[0]
		out := downloadOutput
		if out == "" {
			out = templateID + ".pdf"
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		restoreSession(ctx, rt)

		return withAuth(ctx, rt, "download", func(ctx context.Context, token string) error {
			pdf, err := rt.API.DownloadTemplatePDF(ctx, token, templateID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("failed to write PDF: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(pdf))
			return nil
		})
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output file (default: <template-id>.pdf)")
	rootCmd.AddCommand(downloadCmd)
}
