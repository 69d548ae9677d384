// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.Vault.TimeoutSecs)
	assert.Equal(t, 5, cfg.Vault.VerifyBurst)
	assert.Equal(t, 10, cfg.Session.DocFetchTimeoutSecs)
	assert.Equal(t, 5, cfg.Session.WatchdogSecs)
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Vault.TimeoutSecs)
	assert.NotEmpty(t, cfg.Storage.SessionDBPath)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Owner.UserID = "owner-1"
	cfg.Vault.BaseURL = "https://vault.example.com"
	cfg.Capture.PhotoCmd = []string{"ffmpeg", "-f", "v4l2"}
	require.NoError(t, SaveToPath(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", loaded.Owner.UserID)
	assert.Equal(t, "https://vault.example.com", loaded.Vault.BaseURL)
	assert.Equal(t, []string{"ffmpeg", "-f", "v4l2"}, loaded.Capture.PhotoCmd)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("vault = [broken"), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidateClampsKnobs(t *testing.T) {
	cfg := Default()
	cfg.Vault.TimeoutSecs = -1
	cfg.Vault.VerifyBurst = 2
	cfg.Session.WatchdogSecs = 0
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Vault.TimeoutSecs)
	assert.Equal(t, 5, cfg.Vault.VerifyBurst, "burst below the mismatch threshold is clamped up")
	assert.Equal(t, 5, cfg.Session.WatchdogSecs)
}

func TestValidateRejectsUnknownTheme(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "solarized"
	assert.Error(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCVAULT_VAULT_URL", "https://env.example.com")
	t.Setenv("DOCVAULT_OWNER_ID", "env-owner")
	t.Setenv("DOCVAULT_VAULT_TIMEOUT_SECS", "25")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Vault.BaseURL)
	assert.Equal(t, "env-owner", cfg.Owner.UserID)
	assert.Equal(t, 25, cfg.Vault.TimeoutSecs)
}

func TestSecurePermissionsTightened(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1\"\n"), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.Storage.AuditLogPath = "/var/log/custom.log"
	cfg.ResolvePaths("/home/user/.docvault")

	assert.Equal(t, "/home/user/.docvault/session.db", cfg.Storage.SessionDBPath)
	assert.Equal(t, "/var/log/custom.log", cfg.Storage.AuditLogPath)
	assert.Equal(t, "/home/user/.docvault/credential.json", cfg.Storage.CredentialPath)
}
