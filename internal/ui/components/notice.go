// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Non-blocking transient notices in the corner of the screen, auto
// dismissed. Used for the back-navigation reminder, oracle
// availability, and best-effort task outcomes.
package components

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// NoticeKind selects the notice color.
type NoticeKind int

const (
	// NoticeInfo is an informational notice.
	NoticeInfo NoticeKind = iota
	// NoticeWarning is a cautionary notice.
	NoticeWarning
	// NoticeError is a failure notice.
	NoticeError
	// NoticeSuccess is a completion notice.
	NoticeSuccess
)

// DefaultNoticeDuration is the auto-dismiss delay.
const DefaultNoticeDuration = 4 * time.Second

// NoticeExpiredMsg dismisses the notice with the given ID.
type NoticeExpiredMsg struct {
	ID int64
}

// Notice is one transient message.
type Notice struct {
	ID       int64
	Text     string
	Kind     NoticeKind
	Duration time.Duration
}

var noticeCounter atomic.Int64

// NewNotice creates a notice with the default duration.
func NewNotice(kind NoticeKind, text string) Notice {
	return Notice{
		ID:       noticeCounter.Add(1),
		Text:     text,
		Kind:     kind,
		Duration: DefaultNoticeDuration,
	}
}

// Expire returns the command that dismisses the notice after its
// duration.
func (n Notice) Expire() tea.Cmd {
	id := n.ID
	return tea.Tick(n.Duration, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{ID: id}
	})
}

// NoticeStack holds the visible notices, newest last.
type NoticeStack struct {
	theme   *styles.Theme
	notices []Notice
}

// NewNoticeStack builds an empty stack.
func NewNoticeStack(theme *styles.Theme) *NoticeStack {
	return &NoticeStack{theme: theme}
}

// Push adds a notice and returns its expiry command.
func (s *NoticeStack) Push(n Notice) tea.Cmd {
	s.notices = append(s.notices, n)
	// Cap the stack so a burst of failures cannot fill the screen.
	if len(s.notices) > 4 {
		s.notices = s.notices[len(s.notices)-4:]
	}
	return n.Expire()
}

// Dismiss removes the notice with the given ID.
func (s *NoticeStack) Dismiss(id int64) {
	kept := s.notices[:0]
	for _, n := range s.notices {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notices = kept
}

// Len returns the number of visible notices.
func (s *NoticeStack) Len() int { return len(s.notices) }

// View renders the stack.
func (s *NoticeStack) View() string {
	if len(s.notices) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, n := range s.notices {
		style := s.theme.NoticeInfo
		switch n.Kind {
		case NoticeWarning:
			style = s.theme.NoticeWarning
		case NoticeError:
			style = s.theme.NoticeError
		case NoticeSuccess:
			style = s.theme.NoticeSuccess
		}
		sb.WriteString(style.Render(n.Text))
		if i < len(s.notices)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
