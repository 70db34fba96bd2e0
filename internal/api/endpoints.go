// ABOUTME: Typed endpoint methods for the hirescore scoring API
// ABOUTME: Identity flows, paid actions, and the support-chat feed

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	// Paid actions run the scoring model; give them more room than the
	// identity flows before declaring the attempt dead.
	paidActionTimeout = 180 * time.Second

	analyzeAbortMessage  = "The analysis is taking too long. The server may be waking up - please try again."
	generateAbortMessage = "Resume generation is taking too long. The server may be waking up - please try again."
)

// Login exchanges credentials for an identity payload.
func (c *Client) Login(ctx context.Context, email, password string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Signup requests an account; the server answers with otpRequired and sends
// a code to the email address. The password is not stored client-side and
// not resent during verification.
func (c *Client) Signup(ctx context.Context, email, password string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignupVerify confirms the signup OTP and completes account creation.
func (c *Client) SignupVerify(ctx context.Context, email, otp string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/signup/verify", map[string]string{
		"email": email,
		"otp":   otp,
	})
}

// ForgotRequest starts a password reset by sending an OTP to the email.
func (c *Client) ForgotRequest(ctx context.Context, email string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/forgot", map[string]string{
		"email": email,
	})
}

// ForgotReset confirms the reset OTP and sets the new password. A success
// signs the user in, same as login.
func (c *Client) ForgotReset(ctx context.Context, email, otp, newPassword string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/forgot/verify", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	})
}

// ExchangeGoogle trades a federated Google credential for the same identity
// payload shape as login.
func (c *Client) ExchangeGoogle(ctx context.Context, credential string) (*IdentityPayload, error) {
	return c.identityCall(ctx, "/api/auth/google", map[string]string{
		"credential": credential,
	})
}

// Me confirms the bearer token and returns the current identity and wallet.
// Used at startup to restore the session and any time the wallet needs a
// refresh from the authority.
func (c *Client) Me(ctx context.Context, token string) (*IdentityPayload, error) {
	var payload IdentityPayload
	err := c.do(ctx, call{
		method:  http.MethodGet,
		path:    "/api/auth/me",
		token:   token,
		retries: -1,
		warmup:  true,
	}, &payload)
	if err != nil {
		return nil, err
	}
	c.noteWallet(payload.Wallet)
	return &payload, nil
}

// identityCall posts a JSON body and decodes the shared payload shape.
func (c *Client) identityCall(ctx context.Context, path string, body interface{}) (*IdentityPayload, error) {
	var payload IdentityPayload
	err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    path,
		body:    body,
		retries: -1,
		warmup:  true,
	}, &payload)
	if err != nil {
		return nil, err
	}
	c.noteWallet(payload.Wallet)
	return &payload, nil
}

// Analyze scores a resume against a job description. Costs credits; the
// response (or the declined body) carries the post-deduction wallet.
func (c *Client) Analyze(ctx context.Context, token string, req *AnalyzeRequest) (*AnalyzeResult, error) {
	var result AnalyzeResult
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/analyze",
		body:         req,
		token:        token,
		timeout:      paidActionTimeout,
		retries:      -1,
		warmup:       true,
		abortMessage: analyzeAbortMessage,
	}, &result)
	if err != nil {
		return nil, err
	}
	c.noteWallet(result.Wallet)
	return &result, nil
}

// GenerateResume drafts a resume tailored to the job description.
func (c *Client) GenerateResume(ctx context.Context, token string, req *GenerateRequest) (*GenerateResult, error) {
	var result GenerateResult
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/resume/generate",
		body:         req,
		token:        token,
		timeout:      paidActionTimeout,
		retries:      -1,
		warmup:       true,
		abortMessage: generateAbortMessage,
	}, &result)
	if err != nil {
		return nil, err
	}
	c.noteWallet(result.Wallet)
	return &result, nil
}

// DownloadTemplatePDF fetches a rendered resume template as PDF bytes.
// The deduction shows up on the next wallet refresh since a binary body
// cannot carry the snapshot.
func (c *Client) DownloadTemplatePDF(ctx context.Context, token, templateID string) ([]byte, error) {
	var body []byte
	err := c.do(ctx, call{
		method:  http.MethodGet,
		path:    "/api/template/pdf?id=" + url.QueryEscape(templateID),
		token:   token,
		retries: -1,
		warmup:  true,
		raw:     true,
	}, &body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ChatMessages returns support-chat messages newer than sinceID. An empty
// sinceID returns the full thread.
func (c *Client) ChatMessages(ctx context.Context, token, sinceID string) ([]ChatMessage, error) {
	path := "/api/chat/messages"
	if sinceID != "" {
		path += "?since=" + url.QueryEscape(sinceID)
	}
	var resp chatMessagesResponse
	err := c.do(ctx, call{
		method:  http.MethodGet,
		path:    path,
		token:   token,
		retries: -1,
		warmup:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
