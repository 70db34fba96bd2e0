// ABOUTME: Tests for the session store
// ABOUTME: Verifies restore, idempotent payload application, and sign-out boundaries

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/keystore"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

// fakeProber scripts Me responses without a network.
type fakeProber struct {
	payload *api.IdentityPayload
	err     error
	calls   int
}

func (f *fakeProber) Me(ctx context.Context, token string) (*api.IdentityPayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newStore(t *testing.T, prober identityProber) (*Store, *keystore.Store, *wallet.Reconciler) {
	t.Helper()
	ks := keystore.New(t.TempDir())
	w := wallet.NewReconciler()
	return NewStore(ks, prober, w), ks, w
}

func TestStore_Restore_NoToken(t *testing.T) {
	prober := &fakeProber{}
	s, _, _ := newStore(t, prober)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if s.Authenticated() {
		t.Error("session should be unauthenticated without a persisted token")
	}
	if prober.calls != 0 {
		t.Errorf("probe calls = %d, want 0 when no token is persisted", prober.calls)
	}
}

func TestStore_Restore_ValidToken(t *testing.T) {
	prober := &fakeProber{payload: &api.IdentityPayload{User: &api.User{Email: "a@b.com"}}}
	s, ks, _ := newStore(t, prober)
	ks.Set(keystore.KeyAuthToken, "tkn_1")

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got := s.Current()
	if got.Token != "tkn_1" || got.Email != "a@b.com" {
		t.Errorf("session = %+v, want token tkn_1 and email a@b.com", got)
	}
}

func TestStore_Restore_RejectedTokenClearsEverything(t *testing.T) {
	prober := &fakeProber{err: &api.DeclinedError{Status: 401, Message: "Token rejected"}}
	s, ks, w := newStore(t, prober)
	ks.Set(keystore.KeyAuthToken, "tkn_stale")
	w.Merge(&wallet.Wallet{Credits: 9})

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore should swallow a rejection, got: %v", err)
	}

	if s.Authenticated() {
		t.Error("session must be cleared after a rejected token")
	}
	if got := ks.Get(keystore.KeyAuthToken); got != "" {
		t.Errorf("persisted token = %q, want cleared", got)
	}
	if w.Current() != nil {
		t.Error("stale wallet must not survive a rejected token")
	}
}

func TestStore_Restore_TransientFailureKeepsToken(t *testing.T) {
	prober := &fakeProber{err: &api.TransientError{Cause: errors.New("dial timeout")}}
	s, ks, _ := newStore(t, prober)
	ks.Set(keystore.KeyAuthToken, "tkn_1")

	if err := s.Restore(context.Background()); err == nil {
		t.Fatal("Restore should surface a transient failure")
	}
	if got := ks.Get(keystore.KeyAuthToken); got != "tkn_1" {
		t.Errorf("persisted token = %q, want tkn_1 retained on transient failure", got)
	}
}

func TestStore_Restore_Idempotent(t *testing.T) {
	prober := &fakeProber{payload: &api.IdentityPayload{User: &api.User{Email: "a@b.com"}}}
	s, ks, _ := newStore(t, prober)
	ks.Set(keystore.KeyAuthToken, "tkn_1")

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("first Restore failed: %v", err)
	}
	first := s.Current()
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("second Restore failed: %v", err)
	}
	second := s.Current()

	if first != second {
		t.Errorf("Restore is not idempotent: %+v then %+v", first, second)
	}
}

func TestStore_ApplyIdentityPayload(t *testing.T) {
	s, ks, w := newStore(t, &fakeProber{})

	s.ApplyIdentityPayload(&api.IdentityPayload{
		Token:  "tkn_1",
		User:   &api.User{Email: "a@b.com"},
		Wallet: &wallet.Wallet{Credits: 5},
	})

	got := s.Current()
	if got.Token != "tkn_1" || got.Email != "a@b.com" {
		t.Errorf("session = %+v, want token and email applied", got)
	}
	if persisted := ks.Get(keystore.KeyAuthToken); persisted != "tkn_1" {
		t.Errorf("persisted token = %q, want tkn_1", persisted)
	}
	if snap := w.Current(); snap == nil || snap.Credits != 5 {
		t.Errorf("wallet = %+v, want credits 5", snap)
	}
}

func TestStore_ApplyIdentityPayload_EmptyIsNoOp(t *testing.T) {
	s, _, w := newStore(t, &fakeProber{})
	s.ApplyIdentityPayload(&api.IdentityPayload{
		Token:  "tkn_1",
		User:   &api.User{Email: "a@b.com"},
		Wallet: &wallet.Wallet{Credits: 5},
	})

	s.ApplyIdentityPayload(&api.IdentityPayload{Message: "OTP sent"})

	got := s.Current()
	if got.Token != "tkn_1" || got.Email != "a@b.com" {
		t.Errorf("session = %+v, want unchanged by field-free payload", got)
	}
	if snap := w.Current(); snap == nil || snap.Credits != 5 {
		t.Errorf("wallet = %+v, want unchanged", snap)
	}
}

func TestStore_SignOut(t *testing.T) {
	s, ks, w := newStore(t, &fakeProber{})
	s.ApplyIdentityPayload(&api.IdentityPayload{Token: "tkn_1", Wallet: &wallet.Wallet{Credits: 5}})

	var hookRan bool
	s.OnSignOut(func() { hookRan = true })

	s.SignOut()

	if s.Authenticated() {
		t.Error("session should be cleared after SignOut")
	}
	if got := ks.Get(keystore.KeyAuthToken); got != "" {
		t.Errorf("persisted token = %q, want cleared", got)
	}
	if w.Current() != nil {
		t.Error("wallet should be cleared after SignOut")
	}
	if !hookRan {
		t.Error("sign-out hook did not run")
	}
}
