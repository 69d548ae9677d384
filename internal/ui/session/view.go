// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docvault-tui/internal/engine"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	if banner := m.sessionBanner(); banner != "" {
		sb.WriteString(banner + "\n\n")
	}

	switch m.screen {
	case screenIdle:
		sb.WriteString(m.idleView())
	case screenOwnerGate:
		sb.WriteString(m.gateInput.View())
	case screenOfficer:
		sb.WriteString(m.form.View())
		sb.WriteString("\n" + m.theme.Hint.Render("the form must be completed to continue"))
	case screenPinning:
		sb.WriteString(m.pinning.View())
	case screenDocs:
		sb.WriteString(m.docs.View())
	case screenDocView:
		sb.WriteString(m.docView())
	case screenExit:
		sb.WriteString(m.pin.View())
	case screenHistory:
		sb.WriteString(m.theme.Title.Render("Access History") + "\n\n")
		sb.WriteString(m.historyBody)
	}

	if notices := m.notices.View(); notices != "" {
		sb.WriteString("\n\n" + notices)
	}

	sb.WriteString("\n\n" + m.statusBar())
	return m.theme.App.Render(sb.String())
}

func (m *Model) idleView() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Title.Render("DocVault") + "\n\n")
	sb.WriteString(m.theme.Value.Render("Present documents without handing over your device's contents.") + "\n\n")
	sb.WriteString(m.theme.Hint.Render("s starts a handover, h shows history, q quits"))
	return sb.String()
}

// sessionBanner is pinned above every in-session screen so the viewing
// party always sees whose session this is and how it ends.
func (m *Model) sessionBanner() string {
	if !m.engine.InSession() {
		return ""
	}

	parts := []string{"SESSION ACTIVE"}
	if officer := m.engine.Officer(); officer.Name != "" {
		parts = append(parts, fmt.Sprintf("Officer %s (badge %s)", officer.Name, officer.BadgeNumber))
	}
	if m.engine.Pinned() {
		parts = append(parts, "pinned")
	}
	if m.engine.State() == engine.StateLockedOut {
		parts = append(parts, "LOCKED")
	}
	return m.theme.SessionBanner.Render(strings.Join(parts, "  ·  "))
}

func (m *Model) docView() string {
	doc := m.viewing
	if doc == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.theme.Title.Render(doc.Name) + "\n\n")
	sb.WriteString(m.theme.Label.Render("Category  ") + m.theme.Value.Render(doc.Category.Label()) + "\n")
	if !doc.UpdatedAt.IsZero() {
		sb.WriteString(m.theme.Label.Render("Updated   ") + m.theme.Value.Render(doc.UpdatedAt.Format("2006-01-02 15:04")) + "\n")
	}
	sb.WriteString("\n")

	if doc.Image != "" {
		sb.WriteString(m.theme.Value.Render(renderImagePlaceholder(len(doc.Image))) + "\n")
	} else {
		sb.WriteString(m.theme.Hint.Render("No image attached to this document.") + "\n")
	}

	sb.WriteString("\n" + m.theme.Hint.Render("esc returns to the list, e ends the session"))
	return sb.String()
}

// renderImagePlaceholder stands in for inline image rendering, which
// most terminals cannot do. The encoded size tells the officer the
// document payload is present.
func renderImagePlaceholder(encodedLen int) string {
	approx := encodedLen * 3 / 4
	return fmt.Sprintf("[ document image, %s ]", humanBytes(approx))
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (m *Model) statusBar() string {
	var shortcuts [][2]string
	switch m.screen {
	case screenIdle:
		shortcuts = [][2]string{{"s", "start"}, {"h", "history"}, {"q", "quit"}}
	case screenHistory:
		shortcuts = [][2]string{{"esc", "back"}}
	case screenOwnerGate:
		shortcuts = [][2]string{{"enter", "submit"}, {"esc", "cancel"}}
	case screenOfficer:
		shortcuts = [][2]string{{"tab", "next field"}, {"enter", "submit"}}
	case screenPinning:
		shortcuts = [][2]string{{"y/n", "choose"}, {"enter", "confirm"}}
	case screenDocs:
		shortcuts = [][2]string{{"↑/↓", "navigate"}, {"enter", "open"}, {"e", "end session"}}
	case screenDocView:
		shortcuts = [][2]string{{"esc", "back"}, {"e", "end session"}}
	case screenExit:
		shortcuts = [][2]string{{"enter", "verify"}, {"esc", "back"}}
	}

	rendered := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		rendered = append(rendered,
			m.theme.ShortcutKey.Render(s[0])+" "+m.theme.ShortcutDesc.Render(s[1]))
	}
	return m.theme.StatusBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(rendered, "   ")))
}
