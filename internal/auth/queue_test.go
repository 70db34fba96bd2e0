// ABOUTME: Tests for the single-slot deferred action queue
// ABOUTME: Verifies exactly-once drain, last-wins capture, and discard

package auth

import (
	"context"
	"errors"
	"testing"
)

func TestQueue_DrainRunsCapturedActionOnce(t *testing.T) {
	q := NewQueue()

	var runs int
	var gotToken string
	q.Capture(Action{Kind: "analyze", Run: func(ctx context.Context, token string) error {
		runs++
		gotToken = token
		return nil
	}})

	if err := q.DrainAfterAuth(context.Background(), "tkn_fresh"); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if err := q.DrainAfterAuth(context.Background(), "tkn_fresh"); err != nil {
		t.Fatalf("second drain failed: %v", err)
	}

	if runs != 1 {
		t.Errorf("action ran %d times, want exactly 1", runs)
	}
	if gotToken != "tkn_fresh" {
		t.Errorf("action token = %q, want tkn_fresh", gotToken)
	}
}

func TestQueue_DrainWithoutCaptureIsNoOp(t *testing.T) {
	q := NewQueue()
	if err := q.DrainAfterAuth(context.Background(), "tkn"); err != nil {
		t.Errorf("drain of empty queue = %v, want nil", err)
	}
}

func TestQueue_CaptureLastWins(t *testing.T) {
	q := NewQueue()

	var ran []string
	q.Capture(Action{Kind: "analyze", Run: func(ctx context.Context, token string) error {
		ran = append(ran, "analyze")
		return nil
	}})
	q.Capture(Action{Kind: "generate", Run: func(ctx context.Context, token string) error {
		ran = append(ran, "generate")
		return nil
	}})

	if kind, ok := q.Pending(); !ok || kind != "generate" {
		t.Errorf("Pending = (%q,%v), want generate", kind, ok)
	}

	q.DrainAfterAuth(context.Background(), "tkn")

	if len(ran) != 1 || ran[0] != "generate" {
		t.Errorf("ran = %v, want only the last-captured action", ran)
	}
}

func TestQueue_DiscardDropsWithoutRunning(t *testing.T) {
	q := NewQueue()

	var runs int
	q.Capture(Action{Kind: "analyze", Run: func(ctx context.Context, token string) error {
		runs++
		return nil
	}})
	q.Discard()

	if err := q.DrainAfterAuth(context.Background(), "tkn"); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if runs != 0 {
		t.Errorf("action ran %d times after discard, want 0", runs)
	}
	if _, ok := q.Pending(); ok {
		t.Error("Pending should report false after discard")
	}
}

func TestQueue_FailedActionIsNotRequeued(t *testing.T) {
	q := NewQueue()

	var runs int
	q.Capture(Action{Kind: "analyze", Run: func(ctx context.Context, token string) error {
		runs++
		return errors.New("boom")
	}})

	if err := q.DrainAfterAuth(context.Background(), "tkn"); err == nil {
		t.Fatal("drain should surface the action error")
	}
	if _, ok := q.Pending(); ok {
		t.Error("failed action must not be re-queued")
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}
