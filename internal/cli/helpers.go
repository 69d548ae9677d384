// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared wiring used by CLI command handlers.
package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jeranaias/docvault-tui/internal/audit"
	"github.com/jeranaias/docvault-tui/internal/config"
	"github.com/jeranaias/docvault-tui/internal/vaultapi"
)

// LoadConfig loads the effective configuration, generating and
// persisting the local audit integrity key on first run.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.AuditKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate audit key: %w", err)
		}
		cfg.Storage.AuditKey = hex.EncodeToString(key)
		if err := config.Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to persist audit key: %w", err)
		}
	}
	return cfg, nil
}

// AuditKey decodes the configured audit integrity key.
func AuditKey(cfg *config.Config) ([]byte, error) {
	key, err := hex.DecodeString(cfg.Storage.AuditKey)
	if err != nil {
		return nil, fmt.Errorf("audit key is not valid hex: %w", err)
	}
	return key, nil
}

// OpenSpool opens the local access-log spool from configuration.
func OpenSpool(cfg *config.Config) (*audit.Spool, error) {
	key, err := AuditKey(cfg)
	if err != nil {
		return nil, err
	}
	return audit.Open(cfg.Storage.AuditLogPath, key)
}

// NewVaultClient builds the vault client from configuration, or nil
// when no vault is configured (offline mode).
func NewVaultClient(cfg *config.Config) *vaultapi.Client {
	if cfg.Vault.BaseURL == "" {
		return nil
	}
	return vaultapi.NewClient(cfg.Vault.BaseURL).
		WithAPIKey(cfg.Vault.APIKey).
		WithTimeout(cfg.VaultTimeout()).
		WithMaxRetries(cfg.Vault.MaxRetries)
}
