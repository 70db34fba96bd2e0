// ABOUTME: Request and response types for the hirescore scoring API
// ABOUTME: Every identity endpoint shares the IdentityPayload shape

package api

import (
	"time"

	"github.com/hirescore/hirescore-cli/internal/wallet"
)

// User is the identity record attached to identity payloads.
type User struct {
	Email string `json:"email"`
}

// IdentityPayload is the shared response shape of login, signup, OTP verify,
// password reset, federated exchange, and the identity-confirmation probe.
// Any field may be absent; consumers apply only what is present.
type IdentityPayload struct {
	Token       string         `json:"token,omitempty"`
	User        *User          `json:"user,omitempty"`
	Wallet      *wallet.Wallet `json:"wallet,omitempty"`
	Message     string         `json:"message,omitempty"`
	OTPRequired bool           `json:"otpRequired,omitempty"`
}

// AnalyzeRequest submits a resume against a job description for scoring.
type AnalyzeRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription"`
}

// AnalyzeResult is the scoring outcome. The wallet snapshot reflects the
// deduction the server just made.
type AnalyzeResult struct {
	Score     int            `json:"score"`
	Summary   string         `json:"summary"`
	Strengths []string       `json:"strengths,omitempty"`
	Gaps      []string       `json:"gaps,omitempty"`
	Wallet    *wallet.Wallet `json:"wallet,omitempty"`
}

// GenerateRequest asks the server to draft a resume tailored to a job.
type GenerateRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription"`
}

// GenerateResult carries the generated resume text.
type GenerateResult struct {
	Resume string         `json:"resume"`
	Wallet *wallet.Wallet `json:"wallet,omitempty"`
}

// ChatMessage is one support-chat message.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatMessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
}
