// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit maintains the local access-log spool. Every officer
// session is appended here before session state is cleared, so the
// record survives even when the remote vault is unreachable. Entries
// are JSON lines, fsynced on every append, with an HMAC over each line
// so later tampering with the spool is detectable.
package audit

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/docvault-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxFileSize is the default max spool size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// =============================================================================
// SPOOL RECORD
// =============================================================================

// record is the on-disk envelope. The MAC covers the serialized entry
// so a modified or reordered line fails verification.
type record struct {
	Entry  model.AccessLogEntry `json:"entry"`
	Synced bool                 `json:"synced"`
	MAC    string               `json:"mac"`
}

func computeMAC(key []byte, entryJSON []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(entryJSON)
	return hex.EncodeToString(mac.Sum(nil))
}

// =============================================================================
// SPOOL
// =============================================================================

// Spool is a thread-safe append-only access-log store.
type Spool struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	key     []byte
	maxSize int64
}

// Open opens (creating if needed) the spool at path. key is the local
// integrity key; it never leaves the device.
func Open(path string, key []byte) (*Spool, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit spool: %w", err)
	}

	return &Spool{
		path:    path,
		file:    file,
		key:     key,
		maxSize: DefaultMaxFileSize,
	}, nil
}

// Path returns the spool file path.
func (s *Spool) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SetMaxSize sets the maximum file size before rotation.
func (s *Spool) SetMaxSize(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSize = size
}

// Append writes one access-log entry and syncs it to disk. synced
// records whether the remote vault accepted the entry at append time;
// unsynced entries are retried later via Pending.
func (s *Spool) Append(entry model.AccessLogEntry, synced bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit spool is closed")
	}

	if err := s.checkRotationLocked(); err != nil {
		return err
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode access log entry: %w", err)
	}

	rec := record{
		Entry:  entry,
		Synced: synced,
		MAC:    computeMAC(s.key, entryJSON),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	if _, err := fmt.Fprintln(s.file, string(line)); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit spool: %w", err)
	}

	return nil
}

// All returns every spooled entry in append order. Records whose MAC
// does not verify are skipped and counted in tampered.
func (s *Spool) All() (entries []model.AccessLogEntry, tampered int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(func(rec record) bool { return true })
}

// Pending returns entries not yet accepted by the remote vault.
func (s *Spool) Pending() ([]model.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, _, err := s.readLocked(func(rec record) bool { return !rec.Synced })
	return entries, err
}

// MarkSynced flags the given entry IDs as accepted by the remote
// vault. The spool is rewritten atomically.
func (s *Spool) MarkSynced(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	recs, err := s.readRecordsLocked()
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, rec := range recs {
		if idSet[rec.Entry.ID] {
			rec.Synced = true
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode audit record: %w", err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}

	return s.rewriteLocked(sb.String())
}

// Close closes the spool file.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Spool) readLocked(keep func(record) bool) ([]model.AccessLogEntry, int, error) {
	recs, err := s.readRecordsLocked()
	if err != nil {
		return nil, 0, err
	}

	var entries []model.AccessLogEntry
	tampered := 0
	for _, rec := range recs {
		entryJSON, err := json.Marshal(rec.Entry)
		if err != nil {
			tampered++
			continue
		}
		if !hmac.Equal([]byte(rec.MAC), []byte(computeMAC(s.key, entryJSON))) {
			tampered++
			continue
		}
		if keep(rec) {
			entries = append(entries, rec.Entry)
		}
	}
	return entries, tampered, nil
}

func (s *Spool) readRecordsLocked() ([]record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit spool for reading: %w", err)
	}
	defer file.Close()

	var recs []record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Corrupt line, counted as tampered by readLocked via bad MAC
			recs = append(recs, record{})
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit spool: %w", err)
	}
	return recs, nil
}

// rewriteLocked replaces the spool contents via temp file plus rename.
func (s *Spool) rewriteLocked(contents string) error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("failed to close audit spool for rewrite: %w", err)
		}
		s.file = nil
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(contents), 0600); err != nil {
		return fmt.Errorf("failed to write audit spool temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace audit spool: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to reopen audit spool: %w", err)
	}
	s.file = file
	return nil
}

func (s *Spool) checkRotationLocked() error {
	if s.maxSize <= 0 {
		return nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return nil
	}
	if info.Size() < s.maxSize {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit spool for rotation: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	rotated := fmt.Sprintf("%s_%s%s", base, timestamp, ext)
	if err := os.Rename(s.path, rotated); err != nil {
		s.file, _ = os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate audit spool: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create new audit spool after rotation: %w", err)
	}
	s.file = file
	return nil
}
