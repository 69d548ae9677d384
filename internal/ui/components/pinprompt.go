// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// PINSubmittedMsg is emitted when the owner submits a PIN.
type PINSubmittedMsg struct {
	PIN string
}

// PINCancelledMsg is emitted when the owner backs out of the prompt.
type PINCancelledMsg struct{}

// PINPrompt is the exit verification prompt: a masked PIN field with
// attempt feedback and a lockout countdown overlay.
type PINPrompt struct {
	theme *styles.Theme
	input textinput.Model

	title string
	label string
	hint  string

	attemptsRemaining int
	verifying         bool
	message           string
	messageIsError    bool

	lockedOut        bool
	lockoutRemaining time.Duration
}

// NewPINPrompt builds the prompt.
func NewPINPrompt(theme *styles.Theme) *PINPrompt {
	input := textinput.New()
	input.Placeholder = "Owner PIN"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.CharLimit = 32
	input.Focus()

	return &PINPrompt{
		theme:             theme,
		input:             input,
		attemptsRemaining: -1,
		title:             "Exit Verification",
		label:             "Enter the owner PIN to end the session",
		hint:              "enter submits, esc returns to documents",
	}
}

// SetLabels overrides the title, label, and footer hint. The same
// prompt serves both the pre-activation owner check and exit
// verification.
func (p *PINPrompt) SetLabels(title, label, hint string) {
	p.title, p.label, p.hint = title, label, hint
}

// SetVerifying toggles the in-flight indicator while the oracle is
// consulted. Input is ignored while verifying.
func (p *PINPrompt) SetVerifying(v bool) { p.verifying = v }

// SetMismatch reports a wrong PIN and how many attempts remain.
func (p *PINPrompt) SetMismatch(attemptsRemaining int) {
	p.attemptsRemaining = attemptsRemaining
	p.message = fmt.Sprintf("PIN did not match. %d attempt(s) remaining.", attemptsRemaining)
	p.messageIsError = true
	p.input.Reset()
}

// SetError shows an arbitrary error message and clears the input.
func (p *PINPrompt) SetError(msg string) {
	p.message = msg
	p.messageIsError = true
	p.input.Reset()
}

// SetUnavailable reports that no verdict could be produced.
func (p *PINPrompt) SetUnavailable() {
	p.message = "Verification is temporarily unavailable. This attempt was not counted; try again."
	p.messageIsError = false
	p.input.Reset()
}

// SetLockout disables the prompt for the given duration.
func (p *PINPrompt) SetLockout(remaining time.Duration) {
	p.lockedOut = true
	p.lockoutRemaining = remaining
	p.input.Reset()
	p.input.Blur()
}

// TickLockout updates the countdown. When remaining hits zero the
// prompt re-enables.
func (p *PINPrompt) TickLockout(remaining time.Duration) {
	p.lockoutRemaining = remaining
	if remaining <= 0 && p.lockedOut {
		p.lockedOut = false
		p.message = ""
		p.attemptsRemaining = -1
		p.input.Focus()
	}
}

// LockedOut reports whether the prompt is disabled.
func (p *PINPrompt) LockedOut() bool { return p.lockedOut }

// Update handles key input.
func (p *PINPrompt) Update(msg tea.Msg) (*PINPrompt, tea.Cmd) {
	if p.lockedOut || p.verifying {
		// All input is swallowed while disabled; esc still cancels
		// back to the document screen when only verifying.
		if key, ok := msg.(tea.KeyMsg); ok && !p.lockedOut && key.String() == "esc" {
			return p, func() tea.Msg { return PINCancelledMsg{} }
		}
		return p, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			pin := p.input.Value()
			if pin == "" {
				return p, nil
			}
			p.input.Reset()
			return p, func() tea.Msg { return PINSubmittedMsg{PIN: pin} }
		case "esc":
			return p, func() tea.Msg { return PINCancelledMsg{} }
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// View renders the prompt or the lockout overlay.
func (p *PINPrompt) View() string {
	if p.lockedOut {
		secs := int(p.lockoutRemaining.Round(time.Second).Seconds())
		if secs < 0 {
			secs = 0
		}
		return p.theme.LockoutOverlay.Render(fmt.Sprintf(
			"Too many incorrect attempts.\nPIN entry disabled for %ds.", secs))
	}

	var sb strings.Builder
	sb.WriteString(p.theme.Title.Render(p.title))
	sb.WriteString("\n\n")
	sb.WriteString(p.theme.Label.Render(p.label) + "\n")
	sb.WriteString(p.input.View() + "\n")

	if p.verifying {
		sb.WriteString("\n" + p.theme.Hint.Render("verifying…") + "\n")
	}
	if p.message != "" {
		style := p.theme.NoticeWarning
		if p.messageIsError {
			style = p.theme.NoticeError
		}
		sb.WriteString("\n" + style.Render(p.message) + "\n")
	}
	sb.WriteString("\n" + p.theme.Hint.Render(p.hint))
	return sb.String()
}
