// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docvault-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmptyStore(t *testing.T) {
	s := openTestStore(t)

	snap, err := s.Load()
	require.NoError(t, err)
	assert.False(t, snap.Active)
	assert.False(t, snap.PinningConfirmed)
	assert.Empty(t, snap.Officer.Name)
	assert.Nil(t, snap.Location)
}

func TestSaveAndLoadSession(t *testing.T) {
	s := openTestStore(t)

	officer := model.OfficerCredential{Name: "Dana Reyes", BadgeNumber: "4451"}
	loc := &model.GeoSnapshot{Latitude: 37.7749, Longitude: -122.4194}
	require.NoError(t, s.SaveSession(officer, loc))
	require.NoError(t, s.SetPinningConfirmed(true))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.True(t, snap.Active)
	assert.True(t, snap.PinningConfirmed)
	assert.Equal(t, officer, snap.Officer)
	require.NotNil(t, snap.Location)
	assert.InDelta(t, 37.7749, snap.Location.Latitude, 1e-9)
	assert.InDelta(t, -122.4194, snap.Location.Longitude, 1e-9)
}

func TestSaveSessionWithoutLocation(t *testing.T) {
	s := openTestStore(t)

	officer := model.OfficerCredential{Name: "Al", BadgeNumber: "77"}
	require.NoError(t, s.SaveSession(officer, nil))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.True(t, snap.Active)
	assert.Nil(t, snap.Location)
}

func TestClearRemovesAllFields(t *testing.T) {
	s := openTestStore(t)

	officer := model.OfficerCredential{Name: "Dana Reyes", BadgeNumber: "4451"}
	require.NoError(t, s.SaveSession(officer, &model.GeoSnapshot{Latitude: 1, Longitude: 2}))
	require.NoError(t, s.SetPinningConfirmed(true))
	require.NoError(t, s.Clear())

	snap, err := s.Load()
	require.NoError(t, err)
	assert.False(t, snap.Active)
	assert.False(t, snap.PinningConfirmed)
	assert.Empty(t, snap.Officer.Name)
	assert.Empty(t, snap.Officer.BadgeNumber)
	assert.Nil(t, snap.Location)
}

func TestSaveSessionOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSession(model.OfficerCredential{Name: "First", BadgeNumber: "1111"}, nil))
	require.NoError(t, s.SaveSession(model.OfficerCredential{Name: "Second", BadgeNumber: "2222"}, nil))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "Second", snap.Officer.Name)
	assert.Equal(t, "2222", snap.Officer.BadgeNumber)
}

func TestUseAfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Clear(), ErrClosed)
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(model.OfficerCredential{Name: "Dana Reyes", BadgeNumber: "4451"}, nil))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	snap, err := s2.Load()
	require.NoError(t, err)
	assert.True(t, snap.Active)
	assert.Equal(t, "Dana Reyes", snap.Officer.Name)
}
