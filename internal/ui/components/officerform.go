// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the docvault TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// OfficerSubmittedMsg is emitted when the form validates locally and
// the operator pressed enter on the last field.
type OfficerSubmittedMsg struct {
	Name        string
	BadgeNumber string
}

// OfficerForm collects the requesting officer's name and badge number.
// Local validation mirrors the credential rule: both fields need at
// least two non-whitespace-bounded characters.
type OfficerForm struct {
	theme  *styles.Theme
	name   textinput.Model
	badge  textinput.Model
	focus  int // 0 = name, 1 = badge
	errMsg string
}

// NewOfficerForm builds the form with the name field focused.
func NewOfficerForm(theme *styles.Theme) *OfficerForm {
	name := textinput.New()
	name.Placeholder = "Officer name"
	name.CharLimit = 120
	name.Focus()

	badge := textinput.New()
	badge.Placeholder = "Badge number"
	badge.CharLimit = 40

	return &OfficerForm{theme: theme, name: name, badge: badge}
}

// SetError displays a validation failure under the form.
func (f *OfficerForm) SetError(msg string) { f.errMsg = msg }

// Update handles key input. Enter on the badge field (or on a complete
// form) emits OfficerSubmittedMsg; tab and shift+tab move focus.
func (f *OfficerForm) Update(msg tea.Msg) (*OfficerForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus((f.focus + 1) % 2)
			return f, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + 1) % 2)
			return f, nil
		case "enter":
			if f.focus == 0 {
				f.setFocus(1)
				return f, nil
			}
			return f, f.submit()
		}
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.name, cmd = f.name.Update(msg)
	} else {
		f.badge, cmd = f.badge.Update(msg)
	}
	return f, cmd
}

func (f *OfficerForm) setFocus(i int) {
	f.focus = i
	if i == 0 {
		f.name.Focus()
		f.badge.Blur()
	} else {
		f.badge.Focus()
		f.name.Blur()
	}
}

func (f *OfficerForm) submit() tea.Cmd {
	name := f.name.Value()
	badge := f.badge.Value()
	if _, err := model.NewOfficerCredential(name, badge); err != nil {
		f.errMsg = err.Error()
		return nil
	}
	f.errMsg = ""
	return func() tea.Msg {
		return OfficerSubmittedMsg{Name: name, BadgeNumber: badge}
	}
}

// View renders the form.
func (f *OfficerForm) View() string {
	var sb strings.Builder
	sb.WriteString(f.theme.Title.Render("Officer Identification"))
	sb.WriteString("\n\n")
	sb.WriteString(f.theme.Label.Render("Name") + "\n")
	sb.WriteString(f.name.View() + "\n\n")
	sb.WriteString(f.theme.Label.Render("Badge number") + "\n")
	sb.WriteString(f.badge.View() + "\n")
	if f.errMsg != "" {
		sb.WriteString("\n" + f.theme.FieldError.Render(f.errMsg) + "\n")
	}
	sb.WriteString("\n" + f.theme.Hint.Render("tab switches fields, enter submits"))
	return sb.String()
}
