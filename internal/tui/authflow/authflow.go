// ABOUTME: Interactive sign-in flow as a bubbletea model
// ABOUTME: One modal surface driving login, signup with OTP, and password reset

package authflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hirescore/hirescore-cli/internal/auth"
	"github.com/hirescore/hirescore-cli/internal/tui/styles"
)

// DoneMsg is sent when the flow ends, by authentication or abandonment.
type DoneMsg struct {
	Authenticated bool
}

// resultMsg carries the outcome of a blocking flow transition.
type resultMsg struct {
	err error
}

type phase int

const (
	phaseCredentials phase = iota
	phaseOtp
	phaseForgotEmail
	phaseForgotReset
)

// Model renders whichever form the auth flow's state calls for and feeds
// completed forms back into it. The flow owns all transition logic; the
// model only mirrors its state.
type Model struct {
	flow *auth.Flow

	form       *huh.Form
	phase      phase
	spin       spinner.Model
	submitting bool
	errText    string
	width      int

	email       string
	password    string
	otp         string
	newPassword string
}

// New creates the model in whichever phase matches the flow's current
// state, so a process restarted mid-signup resumes at the OTP prompt.
func New(flow *auth.Flow) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	m := &Model{flow: flow, spin: sp}
	switch flow.State() {
	case auth.StateSignupOtpPending:
		m.email = flow.Email()
		m.enterPhase(phaseOtp)
	case auth.StateForgotOtpRequested:
		m.email = flow.Email()
		m.enterPhase(phaseForgotReset)
	default:
		m.enterPhase(phaseCredentials)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.form.Init(), m.spin.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if m.submitting {
			// Only esc interrupts a submission in flight
			if msg.String() == "esc" {
				m.flow.Abandon()
				return m, func() tea.Msg { return DoneMsg{} }
			}
			return m, nil
		}
		switch msg.String() {
		case "esc":
			if m.phase == phaseForgotEmail || m.phase == phaseForgotReset {
				// Step back to the credential form instead of quitting
				m.flow.SetMode(m.flow.Mode())
				m.errText = ""
				m.enterPhase(phaseCredentials)
				return m, m.form.Init()
			}
			m.flow.Abandon()
			return m, func() tea.Msg { return DoneMsg{} }
		case "ctrl+s":
			if m.phase == phaseCredentials || m.phase == phaseOtp {
				next := auth.ModeSignup
				if m.flow.Mode() == auth.ModeSignup {
					next = auth.ModeLogin
				}
				if err := m.flow.SetMode(next); err == nil {
					m.errText = ""
					m.enterPhase(phaseCredentials)
					return m, m.form.Init()
				}
			}
		case "ctrl+r":
			if m.phase == phaseCredentials && m.flow.State() == auth.StateUnauthenticated {
				m.errText = ""
				m.enterPhase(phaseForgotEmail)
				return m, m.form.Init()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case resultMsg:
		return m.settle(msg.err)

	case DoneMsg:
		return m, tea.Quit
	}

	if m.submitting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	return m, cmd
}

// submit dispatches the completed form to the blocking flow method for the
// current phase. The call runs off the UI goroutine; its outcome comes back
// as a resultMsg.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	m.submitting = true
	m.errText = ""

	var run func() error
	switch m.phase {
	case phaseCredentials:
		email, password := m.email, m.password
		run = func() error { return m.flow.Submit(context.Background(), email, password) }
	case phaseOtp:
		otp := m.otp
		run = func() error { return m.flow.VerifyOTP(context.Background(), otp) }
	case phaseForgotEmail:
		email := m.email
		run = func() error { return m.flow.RequestReset(context.Background(), email) }
	case phaseForgotReset:
		otp, pw := m.otp, m.newPassword
		run = func() error { return m.flow.Reset(context.Background(), otp, pw) }
	}

	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		return resultMsg{err: run()}
	})
}

// settle mirrors the flow's post-transition state into the next phase. On
// failure the current form is rebuilt with the entered values intact; only
// the error line changes.
func (m *Model) settle(err error) (tea.Model, tea.Cmd) {
	m.submitting = false

	// Authentication may have succeeded even when err is set: a deferred
	// action replayed after sign-in can fail without undoing the sign-in.
	// The command layer observes that failure through the action itself.
	if m.flow.State() == auth.StateAuthenticated {
		return m, func() tea.Msg { return DoneMsg{Authenticated: true} }
	}

	if err != nil {
		m.errText = err.Error()
		// A rejected code must be re-entered; everything else stays filled
		m.otp = ""
		m.rebuildForm()
		return m, m.form.Init()
	}

	switch m.flow.State() {
	case auth.StateSignupOtpPending:
		m.enterPhase(phaseOtp)
	case auth.StateForgotOtpRequested:
		m.enterPhase(phaseForgotReset)
	default:
		m.enterPhase(phaseCredentials)
	}
	return m, m.form.Init()
}

// enterPhase swaps in a fresh form for the phase.
func (m *Model) enterPhase(p phase) {
	m.phase = p
	m.otp = ""
	m.password = ""
	m.newPassword = ""
	m.rebuildForm()
}

// rebuildForm creates the form for the current phase, keeping the bound
// field values so a failed submission never empties the user's input.
func (m *Model) rebuildForm() {
	switch m.phase {
	case phaseCredentials:
		m.form = m.credentialsForm()
	case phaseOtp:
		m.form = m.otpForm()
	case phaseForgotEmail:
		m.form = m.forgotEmailForm()
	case phaseForgotReset:
		m.form = m.forgotResetForm()
	}
}

func (m *Model) credentialsForm() *huh.Form {
	title := "Sign in"
	button := "Sign in"
	if m.flow.Mode() == auth.ModeSignup {
		title = "Create account"
		button = "Sign up"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password).
				Validate(validatePassword),
			huh.NewConfirm().
				Title(button).
				Affirmative("Submit").
				Negative(""),
		).Title(title),
	).WithTheme(styles.FormTheme())
}

func (m *Model) otpForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Verification code").
				Description(fmt.Sprintf("We sent a code to %s", m.email)).
				Placeholder("123456").
				CharLimit(6).
				Value(&m.otp).
				Validate(validateOtp),
		).Title("Check your email"),
	).WithTheme(styles.FormTheme())
}

func (m *Model) forgotEmailForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Description("We'll send a reset code to this address").
				Placeholder("you@example.com").
				Value(&m.email).
				Validate(validateEmail),
		).Title("Reset password"),
	).WithTheme(styles.FormTheme())
}

func (m *Model) forgotResetForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reset code").
				Description(fmt.Sprintf("We sent a code to %s", m.email)).
				Placeholder("123456").
				CharLimit(6).
				Value(&m.otp).
				Validate(validateOtp),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&m.newPassword).
				Validate(validatePassword),
		).Title("Choose a new password"),
	).WithTheme(styles.FormTheme())
}

func (m *Model) View() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("HireScore"))
	sb.WriteString("\n")

	if m.submitting {
		sb.WriteString(fmt.Sprintf("%s %s\n", m.spin.View(), m.submittingLabel()))
	} else {
		sb.WriteString(m.form.View())
		if m.errText != "" {
			sb.WriteString("\n")
			sb.WriteString(styles.ErrorText.Render(m.errText))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(m.helpLine())
	return sb.String()
}

func (m *Model) submittingLabel() string {
	switch m.phase {
	case phaseOtp:
		return "Verifying code..."
	case phaseForgotEmail:
		return "Sending reset code..."
	case phaseForgotReset:
		return "Resetting password..."
	default:
		if m.flow.Mode() == auth.ModeSignup {
			return "Creating account..."
		}
		return "Signing in..."
	}
}

func (m *Model) helpLine() string {
	var keys []string
	if m.phase == phaseCredentials && !m.submitting {
		if m.flow.Mode() == auth.ModeSignup {
			keys = append(keys, styles.KeyStyle.Render("ctrl+s")+" sign in instead")
		} else {
			keys = append(keys, styles.KeyStyle.Render("ctrl+s")+" create account")
			keys = append(keys, styles.KeyStyle.Render("ctrl+r")+" forgot password")
		}
	}
	keys = append(keys, styles.KeyStyle.Render("esc")+" cancel")
	return styles.Help.Render(strings.Join(keys, "  "))
}

func validateEmail(s string) error {
	if !strings.Contains(s, "@") || strings.HasPrefix(s, "@") || strings.HasSuffix(s, "@") {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func validatePassword(s string) error {
	if len(s) < 8 {
		return fmt.Errorf("at least 8 characters")
	}
	return nil
}

func validateOtp(s string) error {
	if len(s) != 6 {
		return fmt.Errorf("the code has 6 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("digits only")
		}
	}
	return nil
}
