// ABOUTME: Single-slot deferred action queue
// ABOUTME: Replays a protected action exactly once after authentication succeeds

package auth

import (
	"context"
	"log/slog"
	"sync"
)

// Action is a protected operation captured while unauthenticated. Run
// receives the fresh token directly so the replay never races a
// not-yet-persisted session read.
type Action struct {
	Kind string
	Run  func(ctx context.Context, token string) error
}

// Queue holds at most one pending action. Capturing overwrites any previous
// uncommitted one - the last attempted action wins. Draining clears the
// slot before running, so the action executes at most once per successful
// authentication event.
type Queue struct {
	mu      sync.Mutex
	pending *Action
}

func NewQueue() *Queue {
	return &Queue{}
}

// Capture stores the action, replacing any previous one.
func (q *Queue) Capture(a Action) {
	q.mu.Lock()
	if q.pending != nil {
		slog.Debug("replacing pending deferred action", "old", q.pending.Kind, "new", a.Kind)
	}
	q.pending = &a
	q.mu.Unlock()
}

// Pending reports the captured action's kind, if any.
func (q *Queue) Pending() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		return "", false
	}
	return q.pending.Kind, true
}

// Discard drops the captured action without running it. Called when the
// identity flow is abandoned or the session signs out.
func (q *Queue) Discard() {
	q.mu.Lock()
	if q.pending != nil {
		slog.Debug("discarding deferred action", "kind", q.pending.Kind)
	}
	q.pending = nil
	q.mu.Unlock()
}

// DrainAfterAuth runs the captured action with the fresh token. A no-op
// when nothing is captured (the flow was opened directly). The slot is
// cleared before the action runs; a failing action is not re-queued.
func (q *Queue) DrainAfterAuth(ctx context.Context, freshToken string) error {
	q.mu.Lock()
	a := q.pending
	q.pending = nil
	q.mu.Unlock()

	if a == nil {
		return nil
	}
	slog.Debug("draining deferred action", "kind", a.Kind)
	return a.Run(ctx, freshToken)
}
