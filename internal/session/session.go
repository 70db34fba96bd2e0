// ABOUTME: Session store - single source of truth for the authenticated identity
// ABOUTME: Persists the bearer token and restores the session at startup

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/keystore"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

// identityProber confirms a persisted token against the remote identity
// authority. Satisfied by *api.Client.
type identityProber interface {
	Me(ctx context.Context, token string) (*api.IdentityPayload, error)
}

// Session is the restored identity. The wallet snapshot lives in the
// reconciler, not here, so there is exactly one displayed balance.
type Session struct {
	Token string
	Email string
}

// Store owns the Session. All mutation goes through ApplyIdentityPayload,
// Restore, or SignOut; everything else sees copies.
type Store struct {
	ks     *keystore.Store
	prober identityProber
	wallet *wallet.Reconciler

	mu      sync.Mutex
	session Session

	// onSignOut lets the owner discard in-flight assumptions tied to the
	// previous identity (the captured deferred action, above all).
	onSignOut func()
}

func NewStore(ks *keystore.Store, prober identityProber, w *wallet.Reconciler) *Store {
	return &Store{ks: ks, prober: prober, wallet: w}
}

// OnSignOut registers a hook invoked synchronously inside SignOut.
func (s *Store) OnSignOut(fn func()) {
	s.mu.Lock()
	s.onSignOut = fn
	s.mu.Unlock()
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Authenticated reports whether a confirmed token is held.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token != ""
}

// Restore rebuilds the session from the persisted token at process start.
// A rejected token clears everything - no partial or stale session is
// retained. A transient failure leaves the persisted token alone and
// reports the error; the caller degrades to unauthenticated for now.
// Idempotent: calling twice without intervening mutation yields the same
// session.
func (s *Store) Restore(ctx context.Context) error {
	token := s.ks.Get(keystore.KeyAuthToken)
	if token == "" {
		s.mu.Lock()
		s.session = Session{}
		s.mu.Unlock()
		return nil
	}

	payload, err := s.prober.Me(ctx, token)
	if err != nil {
		var declined *api.DeclinedError
		if errors.As(err, &declined) {
			slog.Debug("persisted token rejected, clearing session", "status", declined.Status)
			s.clear()
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.session = Session{Token: token}
	if payload.User != nil {
		s.session.Email = payload.User.Email
	}
	s.mu.Unlock()
	// The prober already routed the wallet snapshot to the reconciler.
	return nil
}

// ApplyIdentityPayload merges an identity payload into the session.
// Idempotent: a payload with no token, user, or wallet is a no-op. A token
// is persisted before it is adopted so a crash never leaves an in-memory
// session the next process cannot restore.
func (s *Store) ApplyIdentityPayload(p *api.IdentityPayload) {
	if p == nil {
		return
	}
	if p.Token != "" {
		if err := s.ks.Set(keystore.KeyAuthToken, p.Token); err != nil {
			slog.Warn("failed to persist token", "error", err)
		}
		s.mu.Lock()
		s.session.Token = p.Token
		s.mu.Unlock()
	}
	if p.User != nil && p.User.Email != "" {
		s.mu.Lock()
		s.session.Email = p.User.Email
		s.mu.Unlock()
	}
	if s.wallet != nil {
		s.wallet.Merge(p.Wallet)
	}
}

// SignOut clears the persisted token and the in-memory session
// synchronously, then runs the sign-out hook. Callers must treat this as a
// boundary: nothing captured under the previous identity survives it.
func (s *Store) SignOut() {
	s.clear()

	s.mu.Lock()
	hook := s.onSignOut
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Invalidate is SignOut for a server-side rejection mid-session: silent,
// no user-facing error. Wired to the API client's unauthorized signal.
func (s *Store) Invalidate() {
	slog.Debug("session invalidated by server, signing out")
	s.SignOut()
}

func (s *Store) clear() {
	if err := s.ks.Delete(keystore.KeyAuthToken); err != nil {
		slog.Warn("failed to clear persisted token", "error", err)
	}
	s.mu.Lock()
	s.session = Session{}
	s.mu.Unlock()
	if s.wallet != nil {
		s.wallet.Clear()
	}
}
