// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// docvault.
//
// Configuration comes from ~/.docvault/config.toml with sensible
// defaults and environment variable overrides. Protocol constants
// (mismatch threshold, lockout duration) are deliberately NOT
// configurable; only operational knobs live here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete docvault configuration.
type Config struct {
	Version string `toml:"version"`

	Owner    OwnerConfig    `toml:"owner"`
	Vault    VaultConfig    `toml:"vault"`
	Session  SessionConfig  `toml:"session"`
	Capture  CaptureConfig  `toml:"capture"`
	Lockdown LockdownConfig `toml:"lockdown"`
	Storage  StorageConfig  `toml:"storage"`
	UI       UIConfig       `toml:"ui"`
}

// OwnerConfig identifies the device owner.
type OwnerConfig struct {
	// UserID is the owner's vault account identifier.
	UserID string `toml:"user_id"`
	// Email is used for TOTP provisioning labels.
	Email string `toml:"email"`
}

// VaultConfig configures the remote vault client.
type VaultConfig struct {
	// BaseURL is the vault API root. Empty means offline mode: the
	// local oracle and spool carry everything.
	BaseURL string `toml:"base_url"`
	// APIKey is the bearer token for vault requests.
	APIKey string `toml:"api_key"`
	// TimeoutSecs is the per-request timeout.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `toml:"max_retries"`
	// VerifyBurst is the PIN verification burst allowance. It must
	// stay above the lockout threshold so throttling never hides a
	// lockout.
	VerifyBurst int `toml:"verify_burst"`
}

// SessionConfig configures session presentation timing.
type SessionConfig struct {
	// DocFetchTimeoutSecs bounds the document fetch when a session
	// activates. On expiry the session continues with an empty list
	// and a notice; the exit affordance is never delayed by loading.
	DocFetchTimeoutSecs int `toml:"doc_fetch_timeout_secs"`
	// WatchdogSecs is how long the document screen may stay in a
	// loading state before the watchdog forces the exit affordance
	// visible.
	WatchdogSecs int `toml:"watchdog_secs"`
}

// CaptureConfig configures the intruder-response peripherals. Commands
// are argv form.
type CaptureConfig struct {
	PhotoCmd []string `toml:"photo_cmd"`
	GeoCmd   []string `toml:"geo_cmd"`
}

// LockdownConfig configures advisory device pinning.
type LockdownConfig struct {
	EngageCmd  []string `toml:"engage_cmd"`
	ReleaseCmd []string `toml:"release_cmd"`
}

// StorageConfig configures on-disk paths. Empty values resolve under
// the config directory.
type StorageConfig struct {
	SessionDBPath  string `toml:"session_db_path"`
	AuditLogPath   string `toml:"audit_log_path"`
	CredentialPath string `toml:"credential_path"`
	// AuditKey is the hex-encoded local integrity key for the audit
	// spool. Generated on first run when empty.
	AuditKey string `toml:"audit_key"`
}

// UIConfig configures terminal presentation.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
	// WordWrap is the rendering width for history output.
	WordWrap int `toml:"word_wrap"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Vault: VaultConfig{
			TimeoutSecs: 10,
			MaxRetries:  3,
			VerifyBurst: 5,
		},
		Session: SessionConfig{
			DocFetchTimeoutSecs: 10,
			WatchdogSecs:        5,
		},
		UI: UIConfig{
			Theme:    "dark",
			WordWrap: 80,
		},
	}
}

// VaultTimeout returns the vault request timeout as a duration.
func (c *Config) VaultTimeout() time.Duration {
	return time.Duration(c.Vault.TimeoutSecs) * time.Second
}

// DocFetchTimeout returns the document fetch deadline as a duration.
func (c *Config) DocFetchTimeout() time.Duration {
	return time.Duration(c.Session.DocFetchTimeoutSecs) * time.Second
}

// WatchdogInterval returns the loading watchdog deadline as a duration.
func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.Session.WatchdogSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the docvault configuration directory
// (~/.docvault).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".docvault"), nil
}

// ConfigPath returns the configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ResolvePaths fills empty storage paths relative to dir.
func (c *Config) ResolvePaths(dir string) {
	if c.Storage.SessionDBPath == "" {
		c.Storage.SessionDBPath = filepath.Join(dir, "session.db")
	}
	if c.Storage.AuditLogPath == "" {
		c.Storage.AuditLogPath = filepath.Join(dir, "access.log")
	}
	if c.Storage.CredentialPath == "" {
		c.Storage.CredentialPath = filepath.Join(dir, "credential.json")
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default location. A missing
// file yields defaults; a malformed file is an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, then applies
// environment overrides, defaults, and validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.ResolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default location atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to path atomically.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config temp file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close config temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// ensureSecurePermissions tightens world-readable config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 == 0 {
		return nil
	}
	return os.Chmod(path, 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - DOCVAULT_VAULT_URL
//   - DOCVAULT_API_KEY
//   - DOCVAULT_OWNER_ID
//   - DOCVAULT_AUDIT_KEY
//   - DOCVAULT_THEME
//   - DOCVAULT_VAULT_TIMEOUT_SECS
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCVAULT_VAULT_URL"); v != "" {
		c.Vault.BaseURL = v
	}
	if v := os.Getenv("DOCVAULT_API_KEY"); v != "" {
		c.Vault.APIKey = v
	}
	if v := os.Getenv("DOCVAULT_OWNER_ID"); v != "" {
		c.Owner.UserID = v
	}
	if v := os.Getenv("DOCVAULT_AUDIT_KEY"); v != "" {
		c.Storage.AuditKey = v
	}
	if v := os.Getenv("DOCVAULT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DOCVAULT_VAULT_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Vault.TimeoutSecs = secs
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks operational knobs and clamps unusable values back to
// defaults rather than rejecting the whole file.
func (c *Config) Validate() error {
	if c.Vault.TimeoutSecs <= 0 {
		c.Vault.TimeoutSecs = 10
	}
	if c.Vault.MaxRetries <= 0 {
		c.Vault.MaxRetries = 3
	}
	if c.Vault.VerifyBurst < 4 {
		// Below the mismatch threshold the throttle could mask the
		// third attempt. Clamp up.
		c.Vault.VerifyBurst = 5
	}
	if c.Session.DocFetchTimeoutSecs <= 0 {
		c.Session.DocFetchTimeoutSecs = 10
	}
	if c.Session.WatchdogSecs <= 0 {
		c.Session.WatchdogSecs = 5
	}
	if c.UI.WordWrap <= 0 {
		c.UI.WordWrap = 80
	}
	switch c.UI.Theme {
	case "", "dark", "light":
		if c.UI.Theme == "" {
			c.UI.Theme = "dark"
		}
	default:
		return fmt.Errorf("unknown theme %q (dark, light)", c.UI.Theme)
	}
	return nil
}
