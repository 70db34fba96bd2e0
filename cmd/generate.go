// ABOUTME: Generate command for the hirescore CLI
// ABOUTME: Drafts a resume tailored to a job description

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/api"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate <resume-file> <job-description-file>",
	Short: "Generate a resume tailored to a job description",
	Long: `Rewrite a resume tailored to a job description. Costs credits.

If you are not signed in, the sign-in flow opens and the generation runs
automatically once you are.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		resume, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
		job, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		restoreSession(ctx, rt)

		req := &api.GenerateRequest{
			Resume:         string(resume),
			JobDescription: string(job),
		}
		return withAuth(ctx, rt, "generate", func(ctx context.Context, token string) error {
			result, err := rt.API.GenerateResume(ctx, token, req)
			if err != nil {
				return err
			}

			if generateOutput != "" {
				if err := os.WriteFile(generateOutput, []byte(result.Resume), 0o644); err != nil {
					return fmt.Errorf("failed to write generated resume: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote generated resume to %s\n", generateOutput)
			} else if IsJSONOutput() {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), result.Resume)
			}

			if result.Wallet != nil && generateOutput != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Credits remaining: %d\n", result.Wallet.Credits)
			}
			return nil
		})
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the generated resume to a file instead of stdout")
	rootCmd.AddCommand(generateCmd)
}
