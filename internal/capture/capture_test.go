// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationText(t *testing.T) {
	loc, err := parseLocation([]byte("37.7749 -122.4194\n"))
	require.NoError(t, err)
	assert.InDelta(t, 37.7749, loc.Latitude, 1e-9)
	assert.InDelta(t, -122.4194, loc.Longitude, 1e-9)
}

func TestParseLocationJSON(t *testing.T) {
	loc, err := parseLocation([]byte(`{"latitude": 40.71, "longitude": -74.0}`))
	require.NoError(t, err)
	assert.InDelta(t, 40.71, loc.Latitude, 1e-9)
	assert.InDelta(t, -74.0, loc.Longitude, 1e-9)
}

func TestParseLocationRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "no-fix", "abc def", `{"latitude": "x"}`} {
		_, err := parseLocation([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestUnconfiguredDevice(t *testing.T) {
	d := NewDeviceCapture(nil, nil)

	_, err := d.CapturePhoto(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = d.CurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestCapturePhotoViaCommand(t *testing.T) {
	d := NewDeviceCapture([]string{"printf", "fakejpeg"}, nil)

	photo, err := d.CapturePhoto(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fakejpeg"), photo)
}

func TestCurrentLocationViaCommand(t *testing.T) {
	d := NewDeviceCapture(nil, []string{"printf", "12.5 -3.25"})

	loc, err := d.CurrentLocation(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.5, loc.Latitude, 1e-9)
	assert.InDelta(t, -3.25, loc.Longitude, 1e-9)
}

func TestFailingCommandIsAnError(t *testing.T) {
	d := NewDeviceCapture([]string{"false"}, nil)
	_, err := d.CapturePhoto(context.Background())
	assert.Error(t, err)
}
