// ABOUTME: Tests for the resilient API client core
// ABOUTME: Verifies retry bounds, failure classification, and error-body extraction

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hirescore/hirescore-cli/internal/wake"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

func TestClient_RetryBound(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 1, RetryDelay: time.Millisecond})

	err := c.do(context.Background(), call{method: http.MethodGet, path: "/api/auth/me", retries: -1}, nil)

	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransientError", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 2 {
		t.Errorf("attempts = %d, want 2 (retries=1)", got)
	}
}

func TestClient_DeclinedIsNotRetried(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"detail":{"message":"Insufficient credits","wallet":{"credits":3}}}`))
	}))
	defer srv.Close()

	var noted *wallet.Wallet
	c := New(Config{
		BaseURL:    srv.URL,
		Retries:    2,
		RetryDelay: time.Millisecond,
		OnWallet:   func(w *wallet.Wallet) { noted = w },
	})

	_, err := c.Analyze(context.Background(), "tkn", &AnalyzeRequest{Resume: "r", JobDescription: "j"})

	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("error = %v, want DeclinedError", err)
	}
	if declined.Message != "Insufficient credits" {
		t.Errorf("Message = %q, want %q", declined.Message, "Insufficient credits")
	}
	if declined.Status != http.StatusPaymentRequired {
		t.Errorf("Status = %d, want 402", declined.Status)
	}
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("attempts = %d, want 1 (declined is never retried)", got)
	}
	// The declined wallet snapshot must still reach the observer
	if noted == nil || noted.Credits != 3 {
		t.Errorf("noted wallet = %+v, want credits 3", noted)
	}
}

func TestClient_DeclinedFlatErrorShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid OTP"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.SignupVerify(context.Background(), "a@b.com", "000000")

	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("error = %v, want DeclinedError", err)
	}
	if declined.Message != "Invalid OTP" {
		t.Errorf("Message = %q, want %q", declined.Message, "Invalid OTP")
	}
}

func TestClient_DeclinedWithRotatedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":{"message":"Password changed elsewhere","token":"tkn_rotated","user":{"email":"a@b.com"}}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.Me(context.Background(), "tkn_old")

	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("error = %v, want DeclinedError", err)
	}
	if declined.Token != "tkn_rotated" {
		t.Errorf("Token = %q, want %q", declined.Token, "tkn_rotated")
	}
	if declined.User == nil || declined.User.Email != "a@b.com" {
		t.Errorf("User = %+v, want email a@b.com", declined.User)
	}
}

func TestClient_UnauthorizedBearerCallSignalsSessionInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token rejected"}`))
	}))
	defer srv.Close()

	var signaled bool
	c := New(Config{BaseURL: srv.URL, OnUnauthorized: func() { signaled = true }})

	_, err := c.Me(context.Background(), "tkn_bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !signaled {
		t.Error("OnUnauthorized was not invoked for a rejected bearer call")
	}
}

func TestClient_UnauthorizedWithoutBearerDoesNotSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer srv.Close()

	var signaled bool
	c := New(Config{BaseURL: srv.URL, OnUnauthorized: func() { signaled = true }})

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if signaled {
		t.Error("a failed login must not be treated as an invalidated session")
	}
}

func TestClient_SuccessAppliesWallet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tkn_1","user":{"email":"a@b.com"},"wallet":{"credits":5,"pricing":{"analyze":1}}}`))
	}))
	defer srv.Close()

	var noted *wallet.Wallet
	c := New(Config{BaseURL: srv.URL, OnWallet: func(w *wallet.Wallet) { noted = w }})

	p, err := c.Login(context.Background(), "a@b.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if p.Token != "tkn_1" {
		t.Errorf("Token = %q, want tkn_1", p.Token)
	}
	if noted == nil || noted.Credits != 5 || noted.Pricing.Analyze != 1 {
		t.Errorf("noted wallet = %+v, want credits 5, analyze price 1", noted)
	}
}

func TestClient_TransientRecoversOnRetry(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"token":"tkn_1"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 1, RetryDelay: time.Millisecond})

	p, err := c.Login(context.Background(), "a@b.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed after retry: %v", err)
	}
	if p.Token != "tkn_1" {
		t.Errorf("Token = %q, want tkn_1", p.Token)
	}
	if got := atomic.LoadInt64(&attempts); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestClient_RateLimitIsTransient(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"Slow down"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 1, RetryDelay: time.Millisecond})

	_, err := c.Login(context.Background(), "a@b.com", "Secret123")

	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransientError for 429", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 2 {
		t.Errorf("attempts = %d, want 2 (429 retries)", got)
	}
}

func TestClient_AbortMessageOnDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: -1, RetryDelay: time.Millisecond})

	err := c.do(context.Background(), call{
		method:       http.MethodGet,
		path:         "/api/analyze",
		timeout:      30 * time.Millisecond,
		abortMessage: "Still waking up, try again.",
	}, nil)

	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransientError", err)
	}
	if te.Error() != "Still waking up, try again." {
		t.Errorf("Error() = %q, want the friendly abort message", te.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause = %v, want DeadlineExceeded", te.Cause)
	}
}

func TestClient_WarmupPrecedesFirstAttempt(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	warmer := wake.New(nil, time.Minute, time.Second)
	c := New(Config{BaseURL: srv.URL, Warmer: warmer})

	if _, err := c.Me(context.Background(), "tkn"); err != nil {
		t.Fatalf("Me failed: %v", err)
	}

	if len(order) != 2 || order[0] != "/api/health" || order[1] != "/api/auth/me" {
		t.Errorf("request order = %v, want health probe then call", order)
	}
}

func TestClient_RetryForcesFreshWake(t *testing.T) {
	var probes, calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			atomic.AddInt64(&probes, 1)
			return
		}
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	warmer := wake.New(nil, time.Minute, time.Second)
	c := New(Config{BaseURL: srv.URL, Warmer: warmer, Retries: 1, RetryDelay: time.Millisecond})

	if _, err := c.Me(context.Background(), "tkn"); err != nil {
		t.Fatalf("Me failed: %v", err)
	}

	// One throttled warm-up before the first attempt, one forced before the retry.
	if got := atomic.LoadInt64(&probes); got != 2 {
		t.Errorf("probes = %d, want 2", got)
	}
}

func TestClient_ChatMessagesSinceWatermark(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != "msg_9" {
			t.Errorf("since = %q, want msg_9", got)
		}
		w.Write([]byte(`{"messages":[{"id":"msg_10","sender":"support","text":"hi"}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	msgs, err := c.ChatMessages(context.Background(), "tkn", "msg_9")
	if err != nil {
		t.Fatalf("ChatMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "msg_10" {
		t.Errorf("messages = %+v, want one message msg_10", msgs)
	}
}
