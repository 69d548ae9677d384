// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - CLI command for configuration management in docvault.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)    Show effective configuration
//	set <key> <val>   Set a configuration value
//	path              Print the config file location
//
// Settable keys:
//
//	owner.id, owner.email, vault.url, vault.api_key, ui.theme
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docvault-tui/internal/config"
	"github.com/jeranaias/docvault-tui/internal/util"
)

// HandleConfig manages the configuration file.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow()
	case "set":
		return configSet(args.Parser.Positional(1), args.Parser.Positional(2))
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q (show, set, path)", args.Subcommand)
	}
}

func configShow() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	vaultURL := cfg.Vault.BaseURL
	if vaultURL == "" {
		vaultURL = "(offline mode)"
	}
	apiKey := "(not set)"
	if cfg.Vault.APIKey != "" {
		apiKey = util.MaskTail(cfg.Vault.APIKey, 4)
	}

	fmt.Printf("owner.id        %s\n", valueOr(cfg.Owner.UserID, "(not set)"))
	fmt.Printf("owner.email     %s\n", valueOr(cfg.Owner.Email, "(not set)"))
	fmt.Printf("vault.url       %s\n", vaultURL)
	fmt.Printf("vault.api_key   %s\n", apiKey)
	fmt.Printf("ui.theme        %s\n", cfg.UI.Theme)
	fmt.Printf("storage.db      %s\n", cfg.Storage.SessionDBPath)
	fmt.Printf("storage.log     %s\n", cfg.Storage.AuditLogPath)
	return nil
}

func configSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: docvault config set <key> <value>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch strings.ToLower(key) {
	case "owner.id":
		cfg.Owner.UserID = value
	case "owner.email":
		cfg.Owner.Email = value
	case "vault.url":
		cfg.Vault.BaseURL = value
	case "vault.api_key":
		cfg.Vault.APIKey = value
	case "ui.theme":
		cfg.UI.Theme = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("Set %s\n", key)
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
