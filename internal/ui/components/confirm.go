// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// PinningDecisionMsg is emitted when the owner answers the pinning
// confirmation.
type PinningDecisionMsg struct {
	Confirmed bool
}

// PinningConfirm asks the owner to attest that the device is pinned
// to this app before the documents appear. The owner can decline and
// proceed anyway; the confirmation exists so the handover is a
// deliberate act.
type PinningConfirm struct {
	theme *styles.Theme
	yes   bool
}

// NewPinningConfirm builds the confirmation with "yes" preselected.
func NewPinningConfirm(theme *styles.Theme) *PinningConfirm {
	return &PinningConfirm{theme: theme, yes: true}
}

// Update handles key input.
func (c *PinningConfirm) Update(msg tea.Msg) (*PinningConfirm, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch key.String() {
	case "left", "right", "tab", "h", "l":
		c.yes = !c.yes
	case "y":
		c.yes = true
		return c, c.decide()
	case "n":
		c.yes = false
		return c, c.decide()
	case "enter":
		return c, c.decide()
	}
	return c, nil
}

func (c *PinningConfirm) decide() tea.Cmd {
	confirmed := c.yes
	return func() tea.Msg { return PinningDecisionMsg{Confirmed: confirmed} }
}

// View renders the confirmation.
func (c *PinningConfirm) View() string {
	var sb strings.Builder
	sb.WriteString(c.theme.Title.Render("Pin Device"))
	sb.WriteString("\n\n")
	sb.WriteString(c.theme.Value.Render("Pin this app to the screen before handing the device over.") + "\n")
	sb.WriteString(c.theme.Hint.Render("Pinning is a courtesy guard; exit still requires your PIN either way.") + "\n\n")

	yes := "  Pinned  "
	no := "  Skip  "
	if c.yes {
		yes = c.theme.ExitButton.Render(yes)
		no = c.theme.Label.Render(no)
	} else {
		yes = c.theme.Label.Render(yes)
		no = c.theme.ExitButton.Render(no)
	}
	sb.WriteString(yes + "  " + no + "\n\n")
	sb.WriteString(c.theme.Hint.Render("y/n answers, arrows switch, enter confirms"))
	return sb.String()
}
