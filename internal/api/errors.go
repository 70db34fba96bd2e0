// ABOUTME: Tagged error taxonomy for API calls
// ABOUTME: Declined (non-retryable, structured) versus Transient (retryable)

package api

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hirescore/hirescore-cli/internal/wallet"
)

// DeclinedError is a well-formed rejection by the server's business logic:
// insufficient credits, wrong OTP, invalid credentials. It is never retried.
// Structured fields carried by the error body (wallet snapshot, fresh token,
// user record) are extracted so callers can still apply them — a
// deduction-was-attempted wallet state must reach the display even when the
// request itself failed.
type DeclinedError struct {
	Status  int
	Message string
	Wallet  *wallet.Wallet
	Token   string
	User    *User
}

func (e *DeclinedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request declined (status %d)", e.Status)
}

// TransientError is a timeout or transport failure: worth retrying, and
// worth waking the backend before doing so. FriendlyMessage, when set,
// replaces the raw cause in user-facing output.
type TransientError struct {
	Cause           error
	FriendlyMessage string
}

func (e *TransientError) Error() string {
	if e.FriendlyMessage != "" {
		return e.FriendlyMessage
	}
	return fmt.Sprintf("request failed: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// declinedFromBody builds a DeclinedError from a non-2xx response body.
// The server wraps structured errors either flat ({message, wallet}) or
// under a detail key ({detail:{message, wallet, token, user}}); both shapes
// are accepted.
func declinedFromBody(status int, body []byte) *DeclinedError {
	e := &DeclinedError{Status: status}

	if msg := firstResult(body, "detail.message", "message"); msg.Exists() {
		e.Message = msg.String()
	}
	if raw := firstResult(body, "detail.wallet", "wallet"); raw.IsObject() {
		var w wallet.Wallet
		if err := json.Unmarshal([]byte(raw.Raw), &w); err == nil {
			e.Wallet = &w
		}
	}
	if tok := firstResult(body, "detail.token", "token"); tok.Exists() {
		e.Token = tok.String()
	}
	if email := firstResult(body, "detail.user.email", "user.email"); email.Exists() {
		e.User = &User{Email: email.String()}
	}

	return e
}

func firstResult(body []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
