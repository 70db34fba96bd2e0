// ABOUTME: Analyze command for the hirescore CLI
// ABOUTME: Scores a resume against a job description

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/tui/styles"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file> <job-description-file>",
	Short: "Score a resume against a job description",
	Long: `Score a resume against a job description. Costs credits; the balance
shown afterwards is the server's post-deduction snapshot.

If you are not signed in, the sign-in flow opens and the analysis runs
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

		req := &api.AnalyzeRequest{
			Resume:         string(resume),
			JobDescription: string(job),
		}
		return withAuth(ctx, rt, "analyze", func(ctx context.Context, token string) error {
			result, err := rt.API.Analyze(ctx, token, req)
			if err != nil {
				return err
			}
			printAnalyzeResult(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func printAnalyzeResult(w io.Writer, result *api.AnalyzeResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	fmt.Fprintf(w, "%s %s\n\n", styles.Title.Render("Match score:"), scoreStyle(result.Score).Render(fmt.Sprintf("%d/100", result.Score)))
	if result.Summary != "" {
		fmt.Fprintf(w, "%s\n", result.Summary)
	}
	if len(result.Strengths) > 0 {
		fmt.Fprintf(w, "\n%s\n", styles.StatusOK.Render("Strengths"))
		for _, s := range result.Strengths {
			fmt.Fprintf(w, "  + %s\n", s)
		}
	}
	if len(result.Gaps) > 0 {
		fmt.Fprintf(w, "\n%s\n", styles.StatusWarning.Render("Gaps"))
		for _, g := range result.Gaps {
			fmt.Fprintf(w, "  - %s\n", g)
		}
	}
	if result.Wallet != nil {
		fmt.Fprintf(w, "\nCredits remaining: %d\n", result.Wallet.Credits)
	}
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 75:
		return styles.StatusOK
	case score >= 50:
		return styles.StatusWarning
	default:
		return styles.StatusError
	}
}
