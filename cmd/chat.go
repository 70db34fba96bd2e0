// ABOUTME: Chat command for the hirescore CLI
// ABOUTME: Shows new support-chat messages and advances the seen watermark

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/app"
	"github.com/hirescore/hirescore-cli/internal/keystore"
	"github.com/hirescore/hirescore-cli/internal/tui/styles"
)

var chatAll bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Show support-chat messages",
	Long: `Show support-chat messages newer than the last seen one and remember
where you left off. Use --all to re-read the whole thread.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		restoreSession(ctx, rt)
		if !rt.Session.Authenticated() {
			return fmt.Errorf("not signed in - run 'hirescore login' first")
		}

		return runChat(ctx, rt, cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatAll, "all", false, "Show the full thread, not just unseen messages")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, rt *app.Runtime, w io.Writer) error {
	since := ""
	if !chatAll {
		since = rt.Keys.Get(keystore.KeyChatLastSeen)
	}

	messages, err := rt.API.ChatMessages(ctx, rt.Token(), since)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(messages, "", "  ")
		fmt.Fprintln(w, string(data))
	} else if len(messages) == 0 {
		fmt.Fprintln(w, "No new messages")
	} else {
		for _, msg := range messages {
			sender := styles.ValueStyle.Render(msg.Sender)
			if msg.Sender == "support" {
				sender = styles.StatusOK.Render(msg.Sender)
			}
			fmt.Fprintf(w, "%s  %s\n  %s\n", sender, styles.Subtitle.Render(msg.CreatedAt.Local().Format("Jan 2 15:04")), msg.Text)
		}
	}

	// Advance the watermark only after the messages were shown; a failed
	// fetch must not mark anything seen.
	if last := lastMessageID(messages); last != "" {
		if err := rt.Keys.Set(keystore.KeyChatLastSeen, last); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save read position: %v\n", err)
		}
	}
	return nil
}

func lastMessageID(messages []api.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].ID
}
