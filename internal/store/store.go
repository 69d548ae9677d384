// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable local persistence for the ephemeral
// secure-session fields. It is a small key-value table backed by
// SQLite; every multi-key update runs inside a single transaction so a
// reader can never observe a partially written session (e.g. an
// officer present without the session-active marker).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/docvault-tui/internal/model"
)

// =============================================================================
// KEYS
// =============================================================================

// Persisted keys. Each maps to one semantic session field.
const (
	keyOfficerName      = "officer_name"
	keyOfficerBadge     = "officer_badge"
	keyGeoLatitude      = "geo_latitude"
	keyGeoLongitude     = "geo_longitude"
	keySessionActive    = "session_active"
	keyPinningConfirmed = "pinning_confirmed"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("session store is closed")

// =============================================================================
// STORE
// =============================================================================

// Store is the durable local session store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the session store at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	// Single writer; the store is only touched from the UI event loop.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		CREATE TABLE IF NOT EXISTS session_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// WRITES (all atomic)
// =============================================================================

// SaveSession atomically persists the officer credential, the optional
// geo snapshot, and the session-active marker. Either all keys update
// or none do.
func (s *Store) SaveSession(officer model.OfficerCredential, loc *model.GeoSnapshot) error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		keyOfficerName:   officer.Name,
		keyOfficerBadge:  officer.BadgeNumber,
		keySessionActive: "1",
	}
	if loc != nil {
		pairs[keyGeoLatitude] = strconv.FormatFloat(loc.Latitude, 'f', -1, 64)
		pairs[keyGeoLongitude] = strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
	}

	for k, v := range pairs {
		if err := upsert(tx, k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetPinningConfirmed records the owner's lockdown attestation.
func (s *Store) SetPinningConfirmed(confirmed bool) error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin pinning write: %w", err)
	}
	defer tx.Rollback()

	value := "0"
	if confirmed {
		value = "1"
	}
	if err := upsert(tx, keyPinningConfirmed, value); err != nil {
		return err
	}

	return tx.Commit()
}

// Clear atomically removes every persisted session field. Called on a
// successful, authorized exit.
func (s *Store) Clear() error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin session clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM session_state`); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}

	return tx.Commit()
}

func upsert(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Snapshot is the persisted view of an in-flight session, used for
// crash recovery at startup.
type Snapshot struct {
	Active           bool
	Officer          model.OfficerCredential
	Location         *model.GeoSnapshot
	PinningConfirmed bool
}

// Load reads the persisted session fields. A zero-value Snapshot with
// Active=false means no session was in flight.
func (s *Store) Load() (*Snapshot, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT key, value FROM session_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	snap := &Snapshot{
		Active: values[keySessionActive] == "1",
		Officer: model.OfficerCredential{
			Name:        values[keyOfficerName],
			BadgeNumber: values[keyOfficerBadge],
		},
		PinningConfirmed: values[keyPinningConfirmed] == "1",
	}

	latStr, hasLat := values[keyGeoLatitude]
	lonStr, hasLon := values[keyGeoLongitude]
	if hasLat && hasLon {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr == nil && lonErr == nil {
			snap.Location = &model.GeoSnapshot{Latitude: lat, Longitude: lon}
		}
	}

	return snap, nil
}
