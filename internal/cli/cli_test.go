// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"show", "--limit", "20", "--since=2024-01-01", "--json", "-q"})

	assert.Equal(t, "show", p.Subcommand())
	assert.Equal(t, "20", p.Flag("limit"))
	assert.Equal(t, 20, p.FlagIntOrDefault("limit", 5))
	assert.Equal(t, "2024-01-01", p.Flag("since"))
	assert.True(t, p.BoolFlag("json"))
	assert.True(t, p.BoolFlag("q"))
	assert.False(t, p.BoolFlag("remote"))
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--remote=true"})
	assert.False(t, p.BoolFlag("json"))
	assert.True(t, p.BoolFlag("remote"))
}

func TestArgParserDefaults(t *testing.T) {
	p := NewArgParser(nil)
	assert.Equal(t, "", p.Subcommand())
	assert.Equal(t, "markdown", p.FlagOrDefault("format", "markdown"))
	assert.Equal(t, 80, p.FlagIntOrDefault("width", 80))
	assert.Equal(t, 0, p.PositionalCount())
}

func TestArgParserPositional(t *testing.T) {
	p := NewArgParser([]string{"set", "vault.url", "https://vault.example.com"})
	assert.Equal(t, "set", p.Positional(0))
	assert.Equal(t, "vault.url", p.Positional(1))
	assert.Equal(t, "https://vault.example.com", p.Positional(2))
	assert.Equal(t, "", p.Positional(3))
}

func TestParseRoutesCommands(t *testing.T) {
	cases := []struct {
		argv []string
		want Command
	}{
		{[]string{"docvault"}, CmdTUI},
		{[]string{"docvault", "history"}, CmdHistory},
		{[]string{"docvault", "hist", "--json"}, CmdHistory},
		{[]string{"docvault", "export", "--format", "html"}, CmdExport},
		{[]string{"docvault", "enroll", "--totp"}, CmdEnroll},
		{[]string{"docvault", "config", "show"}, CmdConfig},
		{[]string{"docvault", "version"}, CmdVersion},
		{[]string{"docvault", "-v"}, CmdVersion},
		{[]string{"docvault", "help"}, CmdHelp},
	}

	for _, tc := range cases {
		os.Args = tc.argv
		cmd, _ := Parse()
		assert.Equal(t, tc.want, cmd, "argv %v", tc.argv)
	}
}

func TestParseExtractsGlobalFlags(t *testing.T) {
	os.Args = []string{"docvault", "history", "--json", "--limit", "10"}
	cmd, args := Parse()

	assert.Equal(t, CmdHistory, cmd)
	assert.True(t, args.JSON)
	assert.Equal(t, 10, args.Parser.FlagIntOrDefault("limit", 0))
}

func TestParseConfigSubcommand(t *testing.T) {
	os.Args = []string{"docvault", "config", "set", "ui.theme", "light"}
	cmd, args := Parse()

	assert.Equal(t, CmdConfig, cmd)
	assert.Equal(t, "set", args.Subcommand)
	assert.Equal(t, "ui.theme", args.Parser.Positional(1))
	assert.Equal(t, "light", args.Parser.Positional(2))
}
