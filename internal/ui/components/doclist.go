// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// DocumentOpenedMsg is emitted when the officer opens a document.
type DocumentOpenedMsg struct {
	Document model.Document
}

// DocList presents the owner's documents during an active session.
// It has three display modes: loading (spinner), loaded (list), and
// degraded (fetch failed or timed out, empty list plus notice). In
// every mode the exit affordance stays visible; the list never blocks
// it.
type DocList struct {
	theme   *styles.Theme
	spinner spinner.Model

	loading  bool
	degraded string // non-empty = degraded mode explanation
	docs     []model.Document
	cursor   int
	opened   map[string]bool
}

// NewDocList builds the list in loading mode.
func NewDocList(theme *styles.Theme) *DocList {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &DocList{
		theme:   theme,
		spinner: sp,
		loading: true,
		opened:  make(map[string]bool),
	}
}

// Init starts the loading spinner.
func (d *DocList) Init() tea.Cmd {
	return d.spinner.Tick
}

// SetDocuments leaves loading mode with the fetched documents.
func (d *DocList) SetDocuments(docs []model.Document) {
	d.loading = false
	d.degraded = ""
	d.docs = docs
	d.cursor = 0
}

// SetDegraded leaves loading mode with no documents and an
// explanation. The session continues; only the list is empty.
func (d *DocList) SetDegraded(reason string) {
	d.loading = false
	d.degraded = reason
	d.docs = nil
}

// Loading reports whether the list is still in loading mode.
func (d *DocList) Loading() bool { return d.loading }

// Update handles key input and spinner ticks.
func (d *DocList) Update(msg tea.Msg) (*DocList, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case tea.KeyMsg:
		if d.loading || len(d.docs) == 0 {
			return d, nil
		}
		switch msg.String() {
		case "up", "k":
			if d.cursor > 0 {
				d.cursor--
			}
		case "down", "j":
			if d.cursor < len(d.docs)-1 {
				d.cursor++
			}
		case "enter":
			doc := d.docs[d.cursor]
			d.opened[doc.ID] = true
			return d, func() tea.Msg { return DocumentOpenedMsg{Document: doc} }
		}
	}
	return d, nil
}

// View renders the list for the current mode.
func (d *DocList) View() string {
	var sb strings.Builder
	sb.WriteString(d.theme.Title.Render("Documents"))
	sb.WriteString("\n\n")

	switch {
	case d.loading:
		sb.WriteString(d.spinner.View() + " " + d.theme.Hint.Render("loading documents…"))
	case d.degraded != "":
		sb.WriteString(d.theme.NoticeWarning.Render(d.degraded))
	case len(d.docs) == 0:
		sb.WriteString(d.theme.Hint.Render("No documents on file."))
	default:
		for i, doc := range d.docs {
			line := d.renderItem(doc, i == d.cursor)
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n" + d.theme.Hint.Render(fmt.Sprintf("%d document(s). arrows move, enter opens", len(d.docs))))
	}
	return sb.String()
}

func (d *DocList) renderItem(doc model.Document, selected bool) string {
	name := doc.Name
	if name == "" {
		name = doc.Category.Label()
	}
	maxName := d.theme.Width - 30
	if maxName < 16 {
		maxName = 16
	}
	name = runewidth.Truncate(name, maxName, "…")

	marker := "  "
	if d.opened[doc.ID] {
		marker = "✓ "
	}
	line := marker + name + "  " + d.theme.DocCategory.Render(doc.Category.Label())
	if selected {
		return d.theme.DocItemSelected.Render("› " + line)
	}
	return d.theme.DocItem.Render(line)
}
