// ABOUTME: Login command for the hirescore CLI
// ABOUTME: Runs the interactive sign-in flow or a federated credential exchange

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/app"
	"github.com/hirescore/hirescore-cli/internal/tui/authflow"
)

var googleCredential string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to HireScore",
	Long: `Sign in interactively, create an account, or reset a forgotten
password. With --google-credential, exchanges a federated Google credential
for a session without the interactive flow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		restoreSession(ctx, rt)

		if rt.Session.Authenticated() {
			fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s\n", rt.Session.Current().Email)
			return nil
		}

		if googleCredential != "" {
			if err := rt.Flow.ExchangeFederated(ctx, googleCredential); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", rt.Session.Current().Email)
			return nil
		}

		authenticated, err := runLoginFlow(rt)
		if err != nil {
			return err
		}
		if !authenticated {
			fmt.Fprintln(cmd.OutOrStdout(), "Sign-in cancelled")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", rt.Session.Current().Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&googleCredential, "google-credential", "", "Federated Google ID credential to exchange for a session")
	rootCmd.AddCommand(loginCmd)
}

// runLoginFlow runs the interactive sign-in TUI and reports whether it
// ended authenticated. Any deferred action captured beforehand is replayed
// by the flow itself before this returns.
func runLoginFlow(rt *app.Runtime) (bool, error) {
	p := tea.NewProgram(authflow.New(rt.Flow), tea.WithOutput(os.Stderr))
	if _, err := p.Run(); err != nil {
		return false, fmt.Errorf("sign-in flow failed: %w", err)
	}
	return rt.Session.Authenticated(), nil
}
