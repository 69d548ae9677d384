// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package capture acquires evidence from device peripherals: a
// front-camera photo and a geolocation fix. Both are best effort.
// Acquisition shells out to configurable device commands so the
// same binary runs on handsets, kiosks, and dev machines; a missing
// or failing command degrades to "no evidence", never to an error
// that blocks the caller's flow.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/docvault-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultPhotoTimeout bounds a camera acquisition.
	DefaultPhotoTimeout = 4 * time.Second

	// DefaultGeoTimeout bounds a location fix.
	DefaultGeoTimeout = 4 * time.Second

	// MaxPhotoSize caps captured photo payloads (8MB).
	MaxPhotoSize = 8 * 1024 * 1024
)

// ErrNoDevice means no capture command is configured.
var ErrNoDevice = errors.New("no capture device configured")

// =============================================================================
// CAPTURER
// =============================================================================

// Camera produces a photo from the front-facing camera.
type Camera interface {
	CapturePhoto(ctx context.Context) ([]byte, error)
}

// Locator produces a geolocation snapshot.
type Locator interface {
	CurrentLocation(ctx context.Context) (*model.GeoSnapshot, error)
}

// DeviceCapture drives the device's camera and location commands.
type DeviceCapture struct {
	photoCmd     []string
	geoCmd       []string
	photoTimeout time.Duration
	geoTimeout   time.Duration
}

// NewDeviceCapture builds a capturer from the configured commands.
// Each command is argv form; the photo command must write image bytes
// to stdout, the geo command must write either "lat lon" or a JSON
// object with latitude/longitude fields.
func NewDeviceCapture(photoCmd, geoCmd []string) *DeviceCapture {
	return &DeviceCapture{
		photoCmd:     photoCmd,
		geoCmd:       geoCmd,
		photoTimeout: DefaultPhotoTimeout,
		geoTimeout:   DefaultGeoTimeout,
	}
}

// WithTimeouts overrides the per-acquisition timeouts.
func (d *DeviceCapture) WithTimeouts(photo, geo time.Duration) *DeviceCapture {
	d.photoTimeout = photo
	d.geoTimeout = geo
	return d
}

// CapturePhoto implements Camera.
func (d *DeviceCapture) CapturePhoto(ctx context.Context) ([]byte, error) {
	if len(d.photoCmd) == 0 {
		return nil, ErrNoDevice
	}

	ctx, cancel := context.WithTimeout(ctx, d.photoTimeout)
	defer cancel()

	out, err := runCommand(ctx, d.photoCmd)
	if err != nil {
		return nil, fmt.Errorf("camera capture failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("camera produced no image data")
	}
	if len(out) > MaxPhotoSize {
		out = out[:MaxPhotoSize]
	}
	return out, nil
}

// CurrentLocation implements Locator.
func (d *DeviceCapture) CurrentLocation(ctx context.Context) (*model.GeoSnapshot, error) {
	if len(d.geoCmd) == 0 {
		return nil, ErrNoDevice
	}

	ctx, cancel := context.WithTimeout(ctx, d.geoTimeout)
	defer cancel()

	out, err := runCommand(ctx, d.geoCmd)
	if err != nil {
		return nil, fmt.Errorf("location fix failed: %w", err)
	}
	return parseLocation(out)
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// parseLocation accepts "lat lon" text or a {"latitude","longitude"}
// JSON object.
func parseLocation(out []byte) (*model.GeoSnapshot, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, fmt.Errorf("location command produced no output")
	}

	if strings.HasPrefix(trimmed, "{") {
		var loc struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := json.Unmarshal([]byte(trimmed), &loc); err != nil {
			return nil, fmt.Errorf("failed to parse location JSON: %w", err)
		}
		return &model.GeoSnapshot{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return nil, fmt.Errorf("unrecognized location output %q", trimmed)
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q: %w", fields[0], err)
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q: %w", fields[1], err)
	}
	return &model.GeoSnapshot{Latitude: lat, Longitude: lon}, nil
}
