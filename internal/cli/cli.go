// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for docvault.
package cli

import (
	"fmt"
	"os"
	"runtime"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdHistory
	CmdExport
	CmdEnroll
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	JSON    bool
	Verbose bool

	// Command-specific
	Subcommand string
	Parser     *ArgParser
}

const usageText = `docvault - present documents without surrendering your device

DocVault shows selected documents to a viewing party inside a locked
session. The session only ends after the owner's PIN is verified.

Usage:
  docvault                   Start a presentation session (default)
  docvault history           Show recorded access history
  docvault export            Export access history to a file
  docvault enroll            Enroll or replace the owner PIN
  docvault config [show|set|path]  Configuration
  docvault version, -v       Show version information
  docvault help, -h          Show this help

History:
  docvault history                   Render history in the terminal
  docvault history --json            Highlighted JSON output
  docvault history --remote          Fetch history from the vault
  docvault history --limit 20        Show the 20 most recent entries

Export:
  docvault export --format markdown --out history.md
  docvault export --format json --out history.json
  docvault export --format html --out history.html

Enroll:
  docvault enroll                    Set the owner PIN
  docvault enroll --totp             Also enroll a TOTP authenticator

Config:
  docvault config show               Show effective configuration
  docvault config set vault.url https://vault.example.com
  docvault config path               Print the config file location

Environment:
  DOCVAULT_VAULT_URL      Vault base URL
  DOCVAULT_VAULT_API_KEY  Vault API key
  DOCVAULT_OWNER_ID       Owner identifier
`

// Parse reads os.Args and returns the command plus parsed arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	args := Args{}

	if len(raw) == 0 {
		return CmdTUI, args
	}

	cmd := CmdTUI
	var rest []string

	switch raw[0] {
	case "history", "hist":
		cmd, rest = CmdHistory, raw[1:]
	case "export":
		cmd, rest = CmdExport, raw[1:]
	case "enroll":
		cmd, rest = CmdEnroll, raw[1:]
	case "config", "cfg":
		cmd, rest = CmdConfig, raw[1:]
	case "version", "-v", "--version":
		cmd, rest = CmdVersion, raw[1:]
	case "help", "-h", "--help":
		cmd, rest = CmdHelp, raw[1:]
	default:
		rest = raw
	}

	args.Parser = NewArgParser(rest)
	args.Subcommand = args.Parser.Subcommand()
	args.Quiet = args.Parser.BoolFlag("quiet") || args.Parser.BoolFlag("q")
	args.JSON = args.Parser.BoolFlag("json")
	args.Verbose = args.Parser.BoolFlag("verbose")

	return cmd, args
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"built\":%q,\"go\":%q}\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	fmt.Printf("docvault %s (commit %s, built %s, %s)\n",
		Version, GitCommit, BuildDate, runtime.Version())
}

// HandleHelp prints usage.
func HandleHelp(Args) {
	fmt.Print(usageText)
}
