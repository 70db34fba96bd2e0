// ABOUTME: Shared gate for commands that need an authenticated session
// ABOUTME: Runs the action directly or defers it across the sign-in flow

package cmd

import (
	"context"
	"fmt"

	"github.com/hirescore/hirescore-cli/internal/app"
	"github.com/hirescore/hirescore-cli/internal/auth"
)

// withAuth runs a protected action. When a session exists it runs
// immediately with the current token. Otherwise the action is captured,
// the interactive sign-in flow opens, and on success the flow replays the
// action exactly once with the fresh token. Abandoning the flow discards
// the action.
func withAuth(ctx context.Context, rt *app.Runtime, kind string, run func(ctx context.Context, token string) error) error {
	if rt.Session.Authenticated() {
		return run(ctx, rt.Token())
	}

	// The flow reports the replay outcome through the action itself, so
	// record it here rather than threading it out of the TUI.
	var actionErr error
	rt.Queue.Capture(auth.Action{Kind: kind, Run: func(ctx context.Context, token string) error {
		actionErr = run(ctx, token)
		return actionErr
	}})

	authenticated, err := runLoginFlow(rt)
	if err != nil {
		return err
	}
	if !authenticated {
		return fmt.Errorf("sign-in required for %s", kind)
	}
	return actionErr
}
