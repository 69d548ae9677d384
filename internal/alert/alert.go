// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package alert runs the intruder response: on every confirmed PIN
// mismatch during exit verification, it captures a photo and a
// location fix and notifies the owner's vault. The whole response is
// fire and forget. Each task gets exactly one attempt, failures are
// independent, and nothing here ever blocks or delays PIN handling.
package alert

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/docvault-tui/internal/capture"
	"github.com/jeranaias/docvault-tui/internal/model"
)

// DefaultTimeout bounds the entire response, including the upload.
const DefaultTimeout = 15 * time.Second

// Task names reported in BestEffortResult.
const (
	TaskPhoto    = "photo"
	TaskLocation = "location"
	TaskNotify   = "notify"
)

// ErrNoSender means no alert destination is configured.
var ErrNoSender = errors.New("no alert sender configured")

// Sender delivers the assembled alert to the owner's vault.
type Sender interface {
	SendIntruderAlert(ctx context.Context, alert model.IntruderAlert) error
}

// Responder orchestrates the intruder response.
type Responder struct {
	camera  capture.Camera
	locator capture.Locator
	sender  Sender
	ownerID string
	timeout time.Duration
	now     func() time.Time

	// onResult receives one result per task, from the response
	// goroutine. Used for logging and UI notices. May be nil.
	onResult func(model.BestEffortResult)
}

// NewResponder builds an intruder responder. camera, locator, and
// sender may each be nil; the corresponding task then reports a
// failure instead of running.
func NewResponder(camera capture.Camera, locator capture.Locator, sender Sender, ownerID string) *Responder {
	return &Responder{
		camera:  camera,
		locator: locator,
		sender:  sender,
		ownerID: ownerID,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// WithTimeout overrides the overall response deadline.
func (r *Responder) WithTimeout(d time.Duration) *Responder {
	r.timeout = d
	return r
}

// WithClock overrides the clock, for tests.
func (r *Responder) WithClock(now func() time.Time) *Responder {
	r.now = now
	return r
}

// WithResultHook registers a per-task result callback. The hook is
// invoked from the response goroutine.
func (r *Responder) WithResultHook(hook func(model.BestEffortResult)) *Responder {
	r.onResult = hook
	return r
}

// Trigger launches the intruder response and returns immediately. The
// returned channel closes when the response finishes, for callers that
// want to observe completion (tests, shutdown draining); ignoring it
// is the normal path.
func (r *Responder) Trigger() <-chan struct{} {
	done := make(chan struct{})

	// Capture fields before the goroutine so later reconfiguration
	// cannot race with an in-flight response.
	camera := r.camera
	locator := r.locator
	sender := r.sender
	ownerID := r.ownerID
	timeout := r.timeout
	now := r.now
	onResult := r.onResult

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report := func(task string, err error) {
			if onResult != nil {
				onResult(model.BestEffortResult{Task: task, Err: err, At: now()})
			}
		}

		var photo []byte
		if camera == nil {
			report(TaskPhoto, capture.ErrNoDevice)
		} else {
			p, err := camera.CapturePhoto(ctx)
			if err == nil {
				photo = p
			}
			report(TaskPhoto, err)
		}

		var loc *model.GeoSnapshot
		if locator == nil {
			report(TaskLocation, capture.ErrNoDevice)
		} else {
			l, err := locator.CurrentLocation(ctx)
			if err == nil {
				loc = l
			}
			report(TaskLocation, err)
		}

		// The notification goes out even when both captures failed; a
		// bare timestamped alert still tells the owner something
		// happened.
		if sender == nil {
			report(TaskNotify, ErrNoSender)
			return
		}
		a := model.NewIntruderAlert(ownerID, photo, loc, now().UTC())
		report(TaskNotify, sender.SendIntruderAlert(ctx, a))
	}()

	return done
}
