// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - CLI command for access history in docvault.
//
// Command: history [flags]
// Aliases: hist
//
// Flags:
//
//	--json            Highlighted JSON output
//	--remote          Fetch history from the vault instead of the local spool
//	--limit N         Show only the N most recent entries
//	--width N         Rendering width (default from config)
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/docvault-tui/internal/export"
	"github.com/jeranaias/docvault-tui/internal/model"
)

// HandleHistory prints the recorded access history.
func HandleHistory(args Args) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	var entries []model.AccessLogEntry

	if args.Parser.BoolFlag("remote") {
		client := NewVaultClient(cfg)
		if client == nil {
			return fmt.Errorf("no vault configured; set vault.base_url or drop --remote")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.VaultTimeout())
		defer cancel()
		entries, err = client.FetchAccessLog(ctx, cfg.Owner.UserID)
		if err != nil {
			return fmt.Errorf("failed to fetch remote history: %w", err)
		}
	} else {
		spool, err := OpenSpool(cfg)
		if err != nil {
			return err
		}
		defer spool.Close()

		var tampered int
		entries, tampered, err = spool.All()
		if err != nil {
			return fmt.Errorf("failed to read access log: %w", err)
		}
		if tampered > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d access-log line(s) failed integrity checks and were skipped\n", tampered)
		}
	}

	if limit := args.Parser.FlagIntOrDefault("limit", 0); limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	if args.JSON {
		out, err := export.HighlightJSON(entries)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	width := args.Parser.FlagIntOrDefault("width", cfg.UI.WordWrap)
	fmt.Println(export.RenderTerminal(entries, width))
	return nil
}
