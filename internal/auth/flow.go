// ABOUTME: Authentication state machine driving the four identity flows
// ABOUTME: Pure transition logic; presentation layers subscribe to state

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hirescore/hirescore-cli/internal/api"
	"github.com/hirescore/hirescore-cli/internal/session"
)

// State is the position in the identity flow. Authenticated is terminal
// until an explicit sign-out returns the flow to Unauthenticated.
type State int

const (
	StateUnauthenticated State = iota
	StateLoginSubmitting
	StateSignupOtpPending
	StateSignupOtpVerifying
	StateForgotOtpRequested
	StateForgotResetting
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoginSubmitting:
		return "login-submitting"
	case StateSignupOtpPending:
		return "signup-otp-pending"
	case StateSignupOtpVerifying:
		return "signup-otp-verifying"
	case StateForgotOtpRequested:
		return "forgot-otp-requested"
	case StateForgotResetting:
		return "forgot-resetting"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Mode selects between the login and signup forms. Only meaningful before
// authentication.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

// ErrSubmitTimeout is attached by the watchdog when a submission never
// settles through the network layer.
var ErrSubmitTimeout = errors.New("the request timed out - please try again")

// identityAPI is the slice of the API client the flow needs. Satisfied by
// *api.Client.
type identityAPI interface {
	Login(ctx context.Context, email, password string) (*api.IdentityPayload, error)
	Signup(ctx context.Context, email, password string) (*api.IdentityPayload, error)
	SignupVerify(ctx context.Context, email, otp string) (*api.IdentityPayload, error)
	ForgotRequest(ctx context.Context, email string) (*api.IdentityPayload, error)
	ForgotReset(ctx context.Context, email, otp, newPassword string) (*api.IdentityPayload, error)
	ExchangeGoogle(ctx context.Context, credential string) (*api.IdentityPayload, error)
}

// Flow is the authentication state machine. Transitions are driven by the
// blocking methods below; renderers poll State/Mode/Email/Err between
// transitions. Every success transition applies the identity payload to the
// session store first and drains the deferred-action queue second, in that
// order, so the replayed action always sees the fresh identity.
type Flow struct {
	api     identityAPI
	session *session.Store
	queue   *Queue

	// watchdog force-ends a stuck "submitting" indicator slightly after
	// the network layer's own deadline should have fired.
	watchdog time.Duration

	mu         sync.Mutex
	state      State
	mode       Mode
	email      string
	lastErr    error
	submitting bool
	gen        int
	timer      *time.Timer
}

// NewFlow creates a flow in the Unauthenticated state. A zero watchdog
// defaults to the API timeout plus slack.
func NewFlow(apiClient identityAPI, sess *session.Store, queue *Queue, watchdog time.Duration) *Flow {
	if watchdog <= 0 {
		watchdog = api.DefaultTimeout + 5*time.Second
	}
	f := &Flow{
		api:      apiClient,
		session:  sess,
		queue:    queue,
		watchdog: watchdog,
	}
	if sess != nil && sess.Authenticated() {
		f.state = StateAuthenticated
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Email returns the address retained for a pending OTP sub-flow.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Err returns the error attached to the current state, if any. Failures
// never revert already-entered fields; they surface here so the renderer
// can show them beside the preserved form.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Submitting reports an in-flight transition (for spinners).
func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// SetMode toggles between login and signup. Valid from Unauthenticated;
// from a pending OTP sub-flow the sub-flow is reset first (the entered OTP
// must never be verified against a different email).
func (f *Flow) SetMode(m Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateUnauthenticated:
	case StateSignupOtpPending, StateForgotOtpRequested:
		f.state = StateUnauthenticated
		f.email = ""
		f.lastErr = nil
	default:
		return fmt.Errorf("cannot switch mode in state %s", f.state)
	}
	f.mode = m
	return nil
}

// Submit drives the credential form: login mode authenticates directly,
// signup mode requests an OTP. The password is handed to the API and
// forgotten - it is never retained for the OTP step.
func (f *Flow) Submit(ctx context.Context, email, password string) error {
	f.mu.Lock()
	if f.state != StateUnauthenticated {
		f.mu.Unlock()
		return fmt.Errorf("submit not valid in state %s", f.state)
	}
	mode := f.mode
	gen := f.beginLocked(StateLoginSubmitting, StateUnauthenticated)
	f.mu.Unlock()

	if mode == ModeLogin {
		payload, err := f.api.Login(ctx, email, password)
		if err != nil {
			f.fail(gen, StateUnauthenticated, err)
			return err
		}
		return f.finish(ctx, gen, payload)
	}

	payload, err := f.api.Signup(ctx, email, password)
	if err != nil {
		f.fail(gen, StateUnauthenticated, err)
		return err
	}
	if payload.OTPRequired {
		f.mu.Lock()
		if gen == f.gen {
			f.settleLocked()
			f.state = StateSignupOtpPending
			f.email = email
		}
		f.mu.Unlock()
		return nil
	}
	// Server signed us straight in (already-verified email).
	return f.finish(ctx, gen, payload)
}

// VerifyOTP confirms the signup code against the retained email. A wrong
// code keeps the pending state and the email; only the code needs
// re-entering.
func (f *Flow) VerifyOTP(ctx context.Context, otp string) error {
	f.mu.Lock()
	if f.state != StateSignupOtpPending {
		f.mu.Unlock()
		return fmt.Errorf("verify not valid in state %s", f.state)
	}
	email := f.email
	gen := f.beginLocked(StateSignupOtpVerifying, StateSignupOtpPending)
	f.mu.Unlock()

	payload, err := f.api.SignupVerify(ctx, email, otp)
	if err != nil {
		f.fail(gen, StateSignupOtpPending, err)
		return err
	}
	return f.finish(ctx, gen, payload)
}

// RequestReset starts the forgot-password flow.
func (f *Flow) RequestReset(ctx context.Context, email string) error {
	f.mu.Lock()
	if f.state != StateUnauthenticated {
		f.mu.Unlock()
		return fmt.Errorf("reset request not valid in state %s", f.state)
	}
	gen := f.beginLocked(StateUnauthenticated, StateUnauthenticated)
	f.mu.Unlock()

	_, err := f.api.ForgotRequest(ctx, email)
	if err != nil {
		f.fail(gen, StateUnauthenticated, err)
		return err
	}
	f.mu.Lock()
	if gen == f.gen {
		f.settleLocked()
		f.state = StateForgotOtpRequested
		f.email = email
	}
	f.mu.Unlock()
	return nil
}

// Reset confirms the reset OTP and the new password; success signs in.
func (f *Flow) Reset(ctx context.Context, otp, newPassword string) error {
	f.mu.Lock()
	if f.state != StateForgotOtpRequested {
		f.mu.Unlock()
		return fmt.Errorf("reset not valid in state %s", f.state)
	}
	email := f.email
	gen := f.beginLocked(StateForgotResetting, StateForgotOtpRequested)
	f.mu.Unlock()

	payload, err := f.api.ForgotReset(ctx, email, otp, newPassword)
	if err != nil {
		f.fail(gen, StateForgotOtpRequested, err)
		return err
	}
	return f.finish(ctx, gen, payload)
}

// ExchangeFederated trades a third-party credential for a session. Treated
// exactly like a login success regardless of the selected mode or pending
// sub-flow.
func (f *Flow) ExchangeFederated(ctx context.Context, credential string) error {
	f.mu.Lock()
	if f.state == StateAuthenticated {
		f.mu.Unlock()
		return fmt.Errorf("already authenticated")
	}
	revert := f.state
	gen := f.beginLocked(f.state, revert)
	f.mu.Unlock()

	payload, err := f.api.ExchangeGoogle(ctx, credential)
	if err != nil {
		f.fail(gen, revert, err)
		return err
	}
	return f.finish(ctx, gen, payload)
}

// Abandon closes the identity flow without authenticating: the captured
// deferred action is discarded, never run under a later identity.
func (f *Flow) Abandon() {
	f.queue.Discard()
	f.mu.Lock()
	f.stopTimerLocked()
	if f.state != StateAuthenticated {
		f.state = StateUnauthenticated
		f.email = ""
		f.lastErr = nil
		f.submitting = false
	}
	f.mu.Unlock()
}

// SignOut clears the session and returns the flow to its initial state.
func (f *Flow) SignOut() {
	if f.session != nil {
		f.session.SignOut()
	}
	f.queue.Discard()
	f.mu.Lock()
	f.stopTimerLocked()
	f.state = StateUnauthenticated
	f.mode = ModeLogin
	f.email = ""
	f.lastErr = nil
	f.submitting = false
	f.mu.Unlock()
}

// beginLocked marks a submission in flight and arms the watchdog. The
// returned generation guards against a superseded submission settling late
// and clobbering newer state. The watchdog itself leaves the generation
// alone: a submission it gave up on may still succeed, and a late success
// still signs the user in.
func (f *Flow) beginLocked(during, revert State) int {
	f.gen++
	gen := f.gen
	f.submitting = true
	f.lastErr = nil
	f.state = during
	f.stopTimerLocked()
	f.timer = time.AfterFunc(f.watchdog, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if gen == f.gen && f.submitting {
			f.submitting = false
			f.state = revert
			f.lastErr = ErrSubmitTimeout
		}
	})
	return gen
}

// settleLocked ends the in-flight marker and disarms the watchdog.
func (f *Flow) settleLocked() {
	f.submitting = false
	f.stopTimerLocked()
}

func (f *Flow) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// fail attaches the error to the reverted state without discarding
// retained fields.
func (f *Flow) fail(gen int, revert State, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	f.settleLocked()
	f.state = revert
	f.lastErr = err
}

// finish applies the identity payload, transitions to Authenticated, and
// drains the deferred-action queue - strictly in that order. The drained
// action receives the payload's token directly rather than re-reading the
// store.
func (f *Flow) finish(ctx context.Context, gen int, payload *api.IdentityPayload) error {
	if f.session != nil {
		f.session.ApplyIdentityPayload(payload)
	}

	token := payload.Token
	if token == "" && f.session != nil {
		token = f.session.Current().Token
	}

	f.mu.Lock()
	if gen == f.gen {
		f.settleLocked()
		f.state = StateAuthenticated
		f.email = ""
		f.lastErr = nil
	}
	f.mu.Unlock()

	return f.queue.DrainAfterAuth(ctx, token)
}
