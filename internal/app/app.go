// ABOUTME: Runtime assembly for the hirescore CLI
// ABOUTME: Wires keystore, wake coordinator, API client, session, and auth flow together

package app

import (
	"context"
	"time"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/auth"
	"github.com/hirescore/hirescore-cli/internal/config"
	"github.com/hirescore/hirescore-cli/internal/keystore"
	"github.com/hirescore/hirescore-cli/internal/session"
	"github.com/hirescore/hirescore-cli/internal/wake"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

// Runtime is the assembled application: one keystore, one wake coordinator,
// one API client, one wallet authority, one session, one deferred-action
// queue, one auth flow. Commands consume it; nothing below this layer knows
// about cobra or the terminal.
type Runtime struct {
	Config  *config.Config
	Keys    *keystore.Store
	Warmer  *wake.Coordinator
	Wallet  *wallet.Reconciler
	API     *api.Client
	Session *session.Store
	Queue   *auth.Queue
	Flow    *auth.Flow
}

// New assembles a runtime from the loaded configuration. The cross-wiring
// is where the invariants live: every wallet snapshot any response carries
// flows into the reconciler, a 401 on a bearer call signs the session out
// silently, and signing out discards the captured deferred action.
func New(cfg *config.Config) *Runtime {
	ks := keystore.New(cfg.StateDir)
	warmer := wake.New(nil,
		time.Duration(cfg.WakeMinInterval)*time.Second,
		time.Duration(cfg.WakeProbeTimeout)*time.Second)
	w := wallet.NewReconciler()
	queue := auth.NewQueue()

	// The client signals unauthorized before the session store exists, so
	// the hook closes over the variable, not the value.
	var sess *session.Store

	retries := cfg.Retries
	if retries == 0 {
		retries = -1 // user explicitly disabled retries
	}
	client := api.New(api.Config{
		BaseURL:    cfg.APIURL,
		Warmer:     warmer,
		Timeout:    time.Duration(cfg.RequestTimeout) * time.Second,
		Retries:    retries,
		RetryDelay: time.Duration(cfg.RetryDelayMS) * time.Millisecond,
		OnWallet:   w.Merge,
		OnUnauthorized: func() {
			if sess != nil {
				sess.Invalidate()
			}
		},
	})

	sess = session.NewStore(ks, client, w)
	sess.OnSignOut(queue.Discard)

	watchdog := time.Duration(cfg.RequestTimeout)*time.Second + 5*time.Second
	flow := auth.NewFlow(client, sess, queue, watchdog)

	return &Runtime{
		Config:  cfg,
		Keys:    ks,
		Warmer:  warmer,
		Wallet:  w,
		API:     client,
		Session: sess,
		Queue:   queue,
		Flow:    flow,
	}
}

// Restore rebuilds the session from the persisted token. A transient
// failure is returned; the caller decides whether to degrade or abort.
func (r *Runtime) Restore(ctx context.Context) error {
	return r.Session.Restore(ctx)
}

// Token returns the current bearer token, empty when unauthenticated.
func (r *Runtime) Token() string {
	return r.Session.Current().Token
}
