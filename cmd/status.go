// ABOUTME: Status command for the hirescore CLI
// ABOUTME: Shows the signed-in identity, token expiry, and wallet balance

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/wallet"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session and wallet",
	Long:  `Display who is signed in, when the saved token expires, and the current credit balance as reported by the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	SignedIn     bool           `json:"signedIn"`
	Email        string         `json:"email,omitempty"`
	TokenExpires string         `json:"tokenExpires,omitempty"`
	Wallet       *wallet.Wallet `json:"wallet,omitempty"`
}

// runStatus executes the status check and returns an exit code.
func runStatus(ctx context.Context, w io.Writer) int {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	restoreSession(ctx, rt)

	out := statusOutput{SignedIn: rt.Session.Authenticated()}
	if out.SignedIn {
		sess := rt.Session.Current()
		out.Email = sess.Email
		if exp, ok := tokenExpiry(sess.Token); ok {
			out.TokenExpires = exp.UTC().Format(time.RFC3339)
		}
		out.Wallet = rt.Wallet.Current()
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		fmt.Fprintln(w, formatStatusHuman(&out))
	}

	if !out.SignedIn {
		return 1
	}
	return 0
}

// formatStatusHuman formats the status for human readability.
func formatStatusHuman(out *statusOutput) string {
	if !out.SignedIn {
		return "Not signed in. Run 'hirescore login' to sign in."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Signed in as:  %s\n", out.Email)
	if out.TokenExpires != "" {
		fmt.Fprintf(&sb, "Token expires: %s\n", out.TokenExpires)
	}
	if out.Wallet != nil {
		fmt.Fprintf(&sb, "Credits:       %d", out.Wallet.Credits)
		if out.Wallet.FreeAnalysesIncluded > 0 {
			fmt.Fprintf(&sb, " (%d free analyses included)", out.Wallet.FreeAnalysesIncluded)
		}
		sb.WriteString("\n")
		if p := out.Wallet.Pricing; p != (wallet.Pricing{}) {
			fmt.Fprintf(&sb, "Pricing:       analyze %d, generate %d, template PDF %d",
				p.Analyze, p.AIResumeGeneration, p.TemplatePDFDownload)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// tokenExpiry peeks at the bearer token's exp claim without verifying the
// signature - the server is the authority on validity, this is display only.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
