// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - CLI command for exporting access history in docvault.
//
// Command: export [flags]
//
// Flags:
//
//	--format FORMAT   markdown (default), json, or html
//	--out PATH        Output file (default history.<ext>)
//	--remote          Export vault history instead of the local spool
package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/docvault-tui/internal/export"
	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/util"
)

// HandleExport writes the access history to a file.
func HandleExport(args Args) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(args.Parser.FlagOrDefault("format", "markdown"))
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

	out := args.Parser.FlagOrDefault("out", "history."+extensionFor(format))

	var buf bytes.Buffer
	if err := export.Write(&buf, entries, format); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(out, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if !args.Quiet {
		fmt.Printf("Exported %d entries to %s\n", len(entries), out)
	}
	return nil
}

func extensionFor(format export.Format) string {
	switch format {
	case export.FormatJSON:
		return "json"
	case export.FormatHTML:
		return "html"
	default:
		return "md"
	}
}
