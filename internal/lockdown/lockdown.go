// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lockdown asks the platform to pin the app to the foreground
// while an officer session runs (screen pinning, guided access, kiosk
// mode, whatever the device offers). The request is ADVISORY ONLY:
// session security never depends on it. All protocol guarantees come
// from the session engine regardless of whether pinning engaged, so
// every failure here degrades to a notice, not an error path.
package lockdown

import (
	"context"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a lockdown request.
const DefaultTimeout = 3 * time.Second

// Status describes the advisory pinning state for display.
type Status string

const (
	// StatusUnsupported means the device offers no pinning facility.
	StatusUnsupported Status = "unsupported"

	// StatusEngaged means the platform accepted the pinning request.
	StatusEngaged Status = "engaged"

	// StatusFailed means the request was made and did not take.
	StatusFailed Status = "failed"

	// StatusReleased means pinning was released after the session.
	StatusReleased Status = "released"
)

// Lockdown requests and releases advisory app pinning.
type Lockdown interface {
	// Engage asks the platform to pin the app. The returned status is
	// informational; callers proceed identically on every outcome.
	Engage(ctx context.Context) Status

	// Release undoes a prior Engage. Best effort.
	Release(ctx context.Context) Status
}

// =============================================================================
// COMMAND-BACKED LOCKDOWN
// =============================================================================

// Command shells out to platform tools to toggle pinning.
type Command struct {
	engageCmd  []string
	releaseCmd []string
	timeout    time.Duration
}

// NewCommand builds a lockdown from argv-form engage/release commands.
// Either may be empty, which degrades to unsupported.
func NewCommand(engageCmd, releaseCmd []string) *Command {
	return &Command{
		engageCmd:  engageCmd,
		releaseCmd: releaseCmd,
		timeout:    DefaultTimeout,
	}
}

// Engage implements Lockdown.
func (c *Command) Engage(ctx context.Context) Status {
	return c.run(ctx, c.engageCmd, StatusEngaged)
}

// Release implements Lockdown.
func (c *Command) Release(ctx context.Context) Status {
	return c.run(ctx, c.releaseCmd, StatusReleased)
}

func (c *Command) run(ctx context.Context, argv []string, onSuccess Status) Status {
	if len(argv) == 0 {
		return StatusUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run(); err != nil {
		return StatusFailed
	}
	return onSuccess
}

// =============================================================================
// NOOP LOCKDOWN
// =============================================================================

// Noop reports unsupported for every request. Used on platforms with
// no pinning facility and in tests.
type Noop struct{}

// Engage implements Lockdown.
func (Noop) Engage(ctx context.Context) Status { return StatusUnsupported }

// Release implements Lockdown.
func (Noop) Release(ctx context.Context) Status { return StatusUnsupported }

var (
	_ Lockdown = (*Command)(nil)
	_ Lockdown = Noop{}
)
