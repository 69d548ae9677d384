// docvault TUI - secure document presentation sessions in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/alert"
	"github.com/jeranaias/docvault-tui/internal/capture"
	"github.com/jeranaias/docvault-tui/internal/cli"
	"github.com/jeranaias/docvault-tui/internal/config"
	"github.com/jeranaias/docvault-tui/internal/engine"
	"github.com/jeranaias/docvault-tui/internal/lockdown"
	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/oracle"
	"github.com/jeranaias/docvault-tui/internal/store"
	"github.com/jeranaias/docvault-tui/internal/ui/session"
	"github.com/jeranaias/docvault-tui/internal/vaultapi"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI()
	case cli.CmdHistory:
		err = cli.HandleHistory(args)
	case cli.CmdExport:
		err = cli.HandleExport(args)
	case cli.CmdEnroll:
		err = cli.HandleEnroll(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires storage, oracles, and peripherals into the session
// engine and runs the presentation interface.
func runTUI() error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.SessionDBPath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer db.Close()

	spool, err := cli.OpenSpool(cfg)
	if err != nil {
		return fmt.Errorf("failed to open access log: %w", err)
	}
	defer spool.Close()

	local := oracle.NewLocal(cfg.Storage.CredentialPath)
	if !local.Enrolled() {
		return fmt.Errorf("no owner PIN enrolled; run `docvault enroll` first")
	}

	// The remote vault, when configured, is the verification oracle,
	// document source, log sink, and alert channel. Without it the
	// local credential and spool carry everything.
	client := cli.NewVaultClient(cfg)

	var verifier oracle.Oracle = local
	var pusher engine.LogPusher
	var sender alert.Sender
	var fetcher session.DocumentFetcher
	if client != nil {
		verifier = vaultapi.NewRemoteOracle(client, cfg.Owner.UserID)
		pusher = client
		sender = client
		fetcher = client
	}

	cam := capture.NewDeviceCapture(cfg.Capture.PhotoCmd, cfg.Capture.GeoCmd)
	responder := alert.NewResponder(cam, cam, sender, cfg.Owner.UserID)

	var pinning lockdown.Lockdown = lockdown.Noop{}
	if len(cfg.Lockdown.EngageCmd) > 0 {
		pinning = lockdown.NewCommand(cfg.Lockdown.EngageCmd, cfg.Lockdown.ReleaseCmd)
	}

	eng := engine.New(cfg.Owner.UserID, verifier, db, spool, pusher, responder, pinning)

	// A session left behind by a crash resumes at exit verification:
	// the only way past it is still the owner's PIN.
	snap, err := db.Load()
	if err == nil && snap.Active {
		if err := eng.Restore(snap.Officer, snap.Location, snap.PinningConfirmed); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}

	// The location fix is taken when the officer is identified, not at
	// launch, so the record reflects where the session happened.
	m := session.New(cfg, eng, local, fetcher, spool).WithLocator(cam)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Intruder-response outcomes surface as notices.
	responder.WithResultHook(func(res model.BestEffortResult) {
		p.Send(res)
	})

	// Config edits apply on the next launch; a live reload only
	// surfaces a notice so an in-flight session never changes rules.
	configPath, err := config.ConfigPath()
	if err == nil {
		watcher, werr := config.NewWatcher(configPath, func(_ *config.Config, err error) {
			if err == nil {
				p.Send(model.BestEffortResult{Task: "config reload (applies on restart)", At: time.Now()})
			}
		})
		if werr == nil && watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	_, err = p.Run()
	return err
}
