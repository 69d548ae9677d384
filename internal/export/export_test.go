// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docvault-tui/internal/model"
)

func sampleEntries(t *testing.T) []model.AccessLogEntry {
	t.Helper()
	officer, err := model.NewOfficerCredential("Dana Reyes", "4451")
	require.NoError(t, err)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []model.AccessLogEntry{
		model.NewAccessLogEntry("owner-1", officer, at,
			&model.GeoSnapshot{Latitude: 37.7749, Longitude: -122.4194},
			[]string{"State ID", "Carry Permit"}),
		model.NewAccessLogEntry("owner-1", officer, at.Add(time.Hour), nil, nil),
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		" JSON ":   FormatJSON,
		"html":     FormatHTML,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdownTable(t *testing.T) {
	md := Markdown(sampleEntries(t))
	assert.Contains(t, md, "# Access History")
	assert.Contains(t, md, "Dana Reyes")
	assert.Contains(t, md, "4451")
	assert.Contains(t, md, "State ID, Carry Permit")
	assert.Contains(t, md, "37.77490, -122.41940")
	assert.Contains(t, md, "2 session(s) recorded.")
}

func TestMarkdownEmpty(t *testing.T) {
	md := Markdown(nil)
	assert.Contains(t, md, "No recorded sessions.")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	officer, err := model.NewOfficerCredential("A|B", "4451")
	require.NoError(t, err)
	entry := model.NewAccessLogEntry("owner-1", officer, time.Now().UTC(), nil, nil)
	md := Markdown([]model.AccessLogEntry{entry})
	assert.Contains(t, md, `A\|B`)
}

func TestWriteJSONRoundTrips(t *testing.T) {
	entries := sampleEntries(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, FormatJSON))

	var decoded []model.AccessLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, entries[0].ID, decoded[0].ID)
	assert.Equal(t, "Dana Reyes", decoded[0].OfficerName)
}

func TestWriteHTMLEscapes(t *testing.T) {
	officer, err := model.NewOfficerCredential("<script>", "4451")
	require.NoError(t, err)
	entry := model.NewAccessLogEntry("owner-1", officer, time.Now().UTC(), nil, nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []model.AccessLogEntry{entry}, FormatHTML))
	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderTerminalFallsBackToMarkdown(t *testing.T) {
	out := RenderTerminal(sampleEntries(t), 80)
	assert.Contains(t, out, "Dana Reyes")
}

func TestHighlightJSON(t *testing.T) {
	out, err := HighlightJSON(sampleEntries(t))
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Dana Reyes") || strings.Contains(out, "Dana"),
		"highlighted output keeps the content")
}
