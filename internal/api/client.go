// ABOUTME: HTTP client for the hirescore scoring API
// ABOUTME: Wraps every call with warm-up, bounded timeout, and a small retry policy

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hirescore/hirescore-cli/internal/wake"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

const (
	// DefaultTimeout is the per-attempt deadline for identity flows. Long,
	// because the hosted backend cold-starts.
	DefaultTimeout = 70 * time.Second
	// DefaultRetries is the number of extra attempts after the first.
	DefaultRetries = 1
	// DefaultRetryDelay is the base of the linear backoff between attempts.
	DefaultRetryDelay = 1200 * time.Millisecond

	maxBodySize = 1 << 20
)

// Config configures the API client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Warmer     *wake.Coordinator
	Timeout    time.Duration
	Retries    int // -1 disables retries entirely
	RetryDelay time.Duration

	// OnWallet observes every wallet snapshot carried by any response,
	// success or declined. Typically wired to the wallet reconciler.
	OnWallet func(*wallet.Wallet)

	// OnUnauthorized observes a 401 answered to a bearer-authenticated
	// call: the session is invalid and the owner should sign out silently.
	OnUnauthorized func()
}

// Client is the API client. All calls consult the wake coordinator before
// their first attempt and classify failures as declined (surfaced as-is) or
// transient (retried within the configured bound).
type Client struct {
	baseURL        string
	httpClient     *http.Client
	warmer         *wake.Coordinator
	timeout        time.Duration
	retries        int
	retryDelay     time.Duration
	onWallet       func(*wallet.Wallet)
	onUnauthorized func()
}

// New creates a client. Zero values in cfg fall back to the defaults; the
// HTTP client carries no timeout of its own because each attempt gets a
// context deadline.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = DefaultRetries
	} else if retries < 0 {
		retries = 0
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     httpClient,
		warmer:         cfg.Warmer,
		timeout:        timeout,
		retries:        retries,
		retryDelay:     retryDelay,
		onWallet:       cfg.OnWallet,
		onUnauthorized: cfg.OnUnauthorized,
	}
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one logical request for do.
type call struct {
	method       string
	path         string
	body         interface{}
	token        string
	timeout      time.Duration // 0 = client default
	retries      int           // -1 = client default
	warmup       bool
	abortMessage string // replaces a raw deadline error when set
	raw          bool   // out is *[]byte instead of a JSON target
}

// do executes one logical call: warm-up, bounded attempts with linear
// backoff, and classification of failures. A declined response returns a
// *DeclinedError immediately; transient failures are retried up to the
// bound, forcing a fresh wake probe before each retry.
func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	retries := cl.retries
	if retries < 0 {
		retries = c.retries
	}

	if cl.warmup && c.warmer != nil {
		c.warmer.Warm(ctx, c.baseURL, false)
	}

	var lastTransient *TransientError
	attempts := retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// The previous attempt looked like a sleeping backend:
			// wake it for real this time, then back off linearly.
			if c.warmer != nil {
				c.warmer.Warm(ctx, c.baseURL, true)
			}
			delay := c.retryDelay * time.Duration(attempt-1)
			slog.Debug("retrying request", "path", cl.path, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &TransientError{Cause: ctx.Err(), FriendlyMessage: cl.abortMessage}
			}
		}

		err := c.attempt(ctx, cl, timeout, out)
		if err == nil {
			return nil
		}
		var te *TransientError
		if errors.As(err, &te) {
			lastTransient = te
			continue
		}
		return err
	}

	if cl.abortMessage != "" && errors.Is(lastTransient.Cause, context.DeadlineExceeded) {
		lastTransient.FriendlyMessage = cl.abortMessage
	}
	return lastTransient
}

// attempt issues one HTTP request under its own deadline.
func (c *Client) attempt(ctx context.Context, cl call, timeout time.Duration, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if cl.body != nil {
		jsonBody, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(reqCtx, cl.method, c.baseURL+cl.path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransientError{Cause: err}
	}

	if isTransientStatus(resp.StatusCode) {
		return &TransientError{Cause: fmt.Errorf("server unavailable (status %d)", resp.StatusCode)}
	}

	if resp.StatusCode >= 400 {
		declined := declinedFromBody(resp.StatusCode, body)
		// A declined body may still carry fresh state (wallet after a
		// rejected deduction, rotated token); apply it before failing.
		c.noteWallet(declined.Wallet)
		if resp.StatusCode == http.StatusUnauthorized && cl.token != "" && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return declined
	}

	if out == nil {
		return nil
	}
	if cl.raw {
		*out.(*[]byte) = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}

// isTransientStatus reports statuses that signal infrastructure trouble
// rather than a business-logic decision. These retry; every other non-2xx
// is declined and surfaced verbatim.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) noteWallet(w *wallet.Wallet) {
	if w != nil && c.onWallet != nil {
		c.onWallet(w)
	}
}
