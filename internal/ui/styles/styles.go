// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the docvault
// TUI. Colors use Lip Gloss AdaptiveColor for automatic light/dark
// detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

// Cyan - brand color, titles, prompts
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success states, granted exits
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors, lockout, mismatch warnings
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - notices, advisory states, unavailable oracle
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Surface - main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// Overlay - borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the application.
type Theme struct {
	ColorProfile termenv.Profile
	Width        int
	Height       int

	App   lipgloss.Style
	Title lipgloss.Style

	// Presentation banner shown across the top during a session.
	SessionBanner lipgloss.Style

	Label       lipgloss.Style
	Value       lipgloss.Style
	Hint        lipgloss.Style
	FieldError  lipgloss.Style
	InputCursor lipgloss.Style

	DocItem         lipgloss.Style
	DocItemSelected lipgloss.Style
	DocCategory     lipgloss.Style

	NoticeInfo    lipgloss.Style
	NoticeWarning lipgloss.Style
	NoticeError   lipgloss.Style
	NoticeSuccess lipgloss.Style

	LockoutOverlay lipgloss.Style
	ExitButton     lipgloss.Style
	StatusBar      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
}

// NewTheme builds the theme for the current terminal.
func NewTheme(width, height int) *Theme {
	t := &Theme{
		ColorProfile: termenv.ColorProfile(),
		Width:        width,
		Height:       height,
	}

	t.App = lipgloss.NewStyle().Padding(0, 1)
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	t.SessionBanner = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Cyan).
		Padding(0, 1)

	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Value = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.FieldError = lipgloss.NewStyle().Foreground(Rose)
	t.InputCursor = lipgloss.NewStyle().Foreground(Cyan)

	t.DocItem = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.DocItemSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Cyan).
		PaddingLeft(1)
	t.DocCategory = lipgloss.NewStyle().Foreground(TextMuted)

	t.NoticeInfo = noticeStyle(Cyan)
	t.NoticeWarning = noticeStyle(Amber)
	t.NoticeError = noticeStyle(Rose)
	t.NoticeSuccess = noticeStyle(Emerald)

	t.LockoutOverlay = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose).
		Border(lipgloss.ThickBorder()).
		BorderForeground(Rose).
		Padding(1, 3)

	t.ExitButton = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Rose).
		Padding(0, 2)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Overlay).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}

func noticeStyle(border lipgloss.AdaptiveColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(TextPrimary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// Resize updates the layout dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
}
