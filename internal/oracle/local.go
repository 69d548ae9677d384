// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package oracle

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"

	"github.com/jeranaias/docvault-tui/internal/util"
)

// =============================================================================
// ARGON2ID PARAMETERS
// =============================================================================

const (
	// argonTime is the number of argon2id passes.
	argonTime = 3

	// argonMemoryKiB is the argon2id memory cost (64MB).
	argonMemoryKiB = 64 * 1024

	// argonThreads is the argon2id parallelism degree.
	argonThreads = 4

	// argonKeyLen is the derived key length in bytes.
	argonKeyLen = 32

	// saltLen is the random salt length in bytes.
	saltLen = 16
)

// MinPINLength is the minimum enrolled PIN length.
const MinPINLength = 4

// =============================================================================
// CREDENTIAL FILE
// =============================================================================

// credentialFile is the persisted enrollment record. The PIN itself is
// never stored, only a salted argon2id digest of it.
type credentialFile struct {
	Salt       []byte `json:"salt"`
	Hash       []byte `json:"hash"`
	Time       uint32 `json:"time"`
	MemoryKiB  uint32 `json:"memory_kib"`
	Threads    uint8  `json:"threads"`
	TOTPSecret string `json:"totp_secret,omitempty"`
}

func derive(pin string, salt []byte, timeCost, memoryKiB uint32, threads uint8) []byte {
	return argon2.IDKey([]byte(pin), salt, timeCost, memoryKiB, threads, argonKeyLen)
}

// =============================================================================
// LOCAL ORACLE
// =============================================================================

// Local is a file-backed Oracle. It is the on-device credential source
// used for owner pre-activation and as the offline fallback when the
// remote vault cannot be reached.
type Local struct {
	mu   sync.Mutex
	path string
}

// NewLocal returns a Local oracle backed by the credential file at path.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

// Path returns the credential file location.
func (l *Local) Path() string { return l.path }

// Enrolled reports whether a credential file exists.
func (l *Local) Enrolled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := os.Stat(l.path)
	return err == nil
}

// Enroll hashes and stores the owner's PIN, replacing any existing
// enrollment. The write is atomic (temp file plus rename).
func (l *Local) Enroll(pin string) error {
	if len(pin) < MinPINLength {
		return fmt.Errorf("pin must be at least %d characters", MinPINLength)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cred, err := l.loadLocked()
	if err != nil && err != ErrNotEnrolled {
		return err
	}
	if cred == nil {
		cred = &credentialFile{}
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	cred.Salt = salt
	cred.Hash = derive(pin, salt, argonTime, argonMemoryKiB, argonThreads)
	cred.Time = argonTime
	cred.MemoryKiB = argonMemoryKiB
	cred.Threads = argonThreads

	return l.saveLocked(cred)
}

// VerifyPIN implements Oracle. A missing or unreadable credential file
// is ErrUnavailable: the oracle cannot rule, so no verdict is given.
func (l *Local) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, ErrUnavailable
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cred, err := l.loadLocked()
	if err != nil {
		return false, ErrUnavailable
	}

	candidate := derive(pin, cred.Salt, cred.Time, cred.MemoryKiB, cred.Threads)
	return subtle.ConstantTimeCompare(candidate, cred.Hash) == 1, nil
}

// =============================================================================
// TOTP (OWNER PRE-ACTIVATION SECOND FACTOR)
// =============================================================================

// EnrollTOTP generates and stores a new TOTP secret for the owner,
// returning the provisioning key for authenticator apps. A PIN must
// already be enrolled.
func (l *Local) EnrollTOTP(issuer, account string) (*otp.Key, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cred, err := l.loadLocked()
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	cred.TOTPSecret = key.Secret()
	if err := l.saveLocked(cred); err != nil {
		return nil, err
	}
	return key, nil
}

// TOTPEnrolled reports whether a TOTP secret is stored.
func (l *Local) TOTPEnrolled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cred, err := l.loadLocked()
	return err == nil && cred.TOTPSecret != ""
}

// VerifyTOTP checks a one-time code against the stored secret.
func (l *Local) VerifyTOTP(code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cred, err := l.loadLocked()
	if err != nil {
		return false, err
	}
	if cred.TOTPSecret == "" {
		return false, ErrNotEnrolled
	}
	return totp.Validate(code, cred.TOTPSecret), nil
}

// =============================================================================
// FILE I/O
// =============================================================================

func (l *Local) loadLocked() (*credentialFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred credentialFile
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	if len(cred.Salt) == 0 || len(cred.Hash) == 0 {
		return nil, fmt.Errorf("credential file is incomplete")
	}
	return &cred, nil
}

func (l *Local) saveLocked(cred *credentialFile) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential file: %w", err)
	}
	if err := util.AtomicWriteFile(l.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}
