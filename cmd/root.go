// ABOUTME: Root command for the hirescore CLI
// ABOUTME: Handles global flags and runtime assembly

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/app"
	"github.com/hirescore/hirescore-cli/internal/config"
)

var (
	apiURL     string
	jsonOutput bool
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "hirescore",
	Short: "CLI for the HireScore resume scoring service",
	Long: `hirescore scores resumes against job descriptions and drafts tailored
resumes using the hosted HireScore API.

The hosted backend sleeps when idle; the CLI wakes it transparently and
retries through the cold start, so a first command after a quiet period
may take a minute.

Environment Variables:
  HIRESCORE_API_URL    Backend API URL (default: https://api.hirescore.app)
  HIRESCORE_STATE_DIR  Directory for the persisted session (default: XDG config dir)`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides HIRESCORE_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// newRuntime loads configuration, applies flag overrides, and assembles
// the application runtime.
func newRuntime() (*app.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	return app.New(cfg), nil
}

// restoreSession rebuilds the persisted session, degrading to
// unauthenticated on a transient failure instead of aborting the command.
func restoreSession(ctx context.Context, rt *app.Runtime) {
	if err := rt.Restore(ctx); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Warning: could not verify saved session: %v\n", err)
	}
}
