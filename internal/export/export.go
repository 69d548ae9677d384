// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders the access history for owners: markdown,
// JSON, and HTML files for record keeping, plus ANSI terminal output
// for the history subcommand.
package export

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docvault-tui/internal/model"
)

// Format is an export output format.
type Format string

const (
	// FormatMarkdown emits a markdown table of sessions.
	FormatMarkdown Format = "markdown"

	// FormatJSON emits the raw entries as a JSON array.
	FormatJSON Format = "json"

	// FormatHTML emits a standalone HTML page.
	FormatHTML Format = "html"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (markdown, json, html)", s)
	}
}

// Write renders entries in the given format.
func Write(w io.Writer, entries []model.AccessLogEntry, format Format) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(entries))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatHTML:
		_, err := io.WriteString(w, htmlPage(entries))
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders entries as a markdown document.
func Markdown(entries []model.AccessLogEntry) string {
	var sb strings.Builder
	sb.WriteString("# Access History\n\n")
	if len(entries) == 0 {
		sb.WriteString("No recorded sessions.\n")
		return sb.String()
	}

	sb.WriteString("| When | Officer | Badge | Documents Viewed | Location |\n")
	sb.WriteString("|------|---------|-------|------------------|----------|\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			e.Timestamp.UTC().Format(time.RFC3339),
			escapeCell(e.OfficerName),
			escapeCell(e.BadgeNumber),
			escapeCell(strings.Join(e.DocumentsViewed, ", ")),
			formatLocation(e.Location),
		))
	}
	sb.WriteString(fmt.Sprintf("\n%d session(s) recorded.\n", len(entries)))
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func formatLocation(loc *model.GeoSnapshot) string {
	if loc == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.5f, %.5f", loc.Latitude, loc.Longitude)
}

// =============================================================================
// HTML
// =============================================================================

func htmlPage(entries []model.AccessLogEntry) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>Access History</title>\n")
	sb.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #999;padding:0.4em 0.8em}</style>\n")
	sb.WriteString("</head>\n<body>\n<h1>Access History</h1>\n")

	if len(entries) == 0 {
		sb.WriteString("<p>No recorded sessions.</p>\n")
	} else {
		sb.WriteString("<table>\n<tr><th>When</th><th>Officer</th><th>Badge</th><th>Documents Viewed</th><th>Location</th></tr>\n")
		for _, e := range entries {
			sb.WriteString("<tr>")
			sb.WriteString("<td>" + html.EscapeString(e.Timestamp.UTC().Format(time.RFC3339)) + "</td>")
			sb.WriteString("<td>" + html.EscapeString(e.OfficerName) + "</td>")
			sb.WriteString("<td>" + html.EscapeString(e.BadgeNumber) + "</td>")
			sb.WriteString("<td>" + html.EscapeString(strings.Join(e.DocumentsViewed, ", ")) + "</td>")
			sb.WriteString("<td>" + html.EscapeString(formatLocation(e.Location)) + "</td>")
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</table>\n")
	}

	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// =============================================================================
// TERMINAL RENDERING
// =============================================================================

// RenderTerminal renders the history as ANSI-styled text for TTY
// output, falling back to plain markdown when the renderer cannot
// initialize.
func RenderTerminal(entries []model.AccessLogEntry, width int) string {
	md := Markdown(entries)
	if width <= 0 {
		width = 80
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// HighlightJSON returns a syntax-highlighted JSON preview of entries
// for terminal display.
func HighlightJSON(entries []model.AccessLogEntry) (string, error) {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}

	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, string(raw))
	if err != nil {
		return string(raw), nil
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return string(raw), nil
	}
	return sb.String(), nil
}
