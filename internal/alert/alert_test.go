// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docvault-tui/internal/capture"
	"github.com/jeranaias/docvault-tui/internal/model"
)

type fakeCamera struct {
	photo []byte
	err   error
}

func (f *fakeCamera) CapturePhoto(ctx context.Context) ([]byte, error) {
	return f.photo, f.err
}

type fakeLocator struct {
	loc *model.GeoSnapshot
	err error
}

func (f *fakeLocator) CurrentLocation(ctx context.Context) (*model.GeoSnapshot, error) {
	return f.loc, f.err
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []model.IntruderAlert
	err   error
	block chan struct{}
}

func (f *fakeSender) SendIntruderAlert(ctx context.Context, a model.IntruderAlert) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
	return f.err
}

func (f *fakeSender) alerts() []model.IntruderAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.IntruderAlert(nil), f.sent...)
}

func collectResults() (func(model.BestEffortResult), func() map[string]error) {
	var mu sync.Mutex
	results := make(map[string]error)
	hook := func(r model.BestEffortResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Task] = r.Err
	}
	snapshot := func() map[string]error {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]error, len(results))
		for k, v := range results {
			out[k] = v
		}
		return out
	}
	return hook, snapshot
}

func TestFullResponse(t *testing.T) {
	camera := &fakeCamera{photo: []byte("jpeg")}
	locator := &fakeLocator{loc: &model.GeoSnapshot{Latitude: 1, Longitude: 2}}
	sender := &fakeSender{}
	hook, results := collectResults()

	r := NewResponder(camera, locator, sender, "owner-1").WithResultHook(hook)
	<-r.Trigger()

	alerts := sender.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "owner-1", alerts[0].OwnerID)
	assert.Equal(t, []byte("jpeg"), alerts[0].Photo)
	require.NotNil(t, alerts[0].Location)
	assert.InDelta(t, 1.0, alerts[0].Location.Latitude, 1e-9)

	got := results()
	assert.NoError(t, got[TaskPhoto])
	assert.NoError(t, got[TaskLocation])
	assert.NoError(t, got[TaskNotify])
}

func TestFailuresAreIndependent(t *testing.T) {
	camera := &fakeCamera{err: errors.New("no camera")}
	locator := &fakeLocator{loc: &model.GeoSnapshot{Latitude: 5, Longitude: 6}}
	sender := &fakeSender{}
	hook, results := collectResults()

	r := NewResponder(camera, locator, sender, "owner-1").WithResultHook(hook)
	<-r.Trigger()

	// The alert still goes out without the photo.
	alerts := sender.alerts()
	require.Len(t, alerts, 1)
	assert.Empty(t, alerts[0].Photo)
	require.NotNil(t, alerts[0].Location)

	got := results()
	assert.Error(t, got[TaskPhoto])
	assert.NoError(t, got[TaskLocation])
	assert.NoError(t, got[TaskNotify])
}

func TestAlertSentEvenWhenAllCapturesFail(t *testing.T) {
	camera := &fakeCamera{err: capture.ErrNoDevice}
	locator := &fakeLocator{err: capture.ErrNoDevice}
	sender := &fakeSender{}

	r := NewResponder(camera, locator, sender, "owner-1")
	<-r.Trigger()

	alerts := sender.alerts()
	require.Len(t, alerts, 1)
	assert.Empty(t, alerts[0].Photo)
	assert.Nil(t, alerts[0].Location)
}

func TestNilPeripheralsReport(t *testing.T) {
	hook, results := collectResults()
	r := NewResponder(nil, nil, nil, "owner-1").WithResultHook(hook)
	<-r.Trigger()

	got := results()
	assert.ErrorIs(t, got[TaskPhoto], capture.ErrNoDevice)
	assert.ErrorIs(t, got[TaskLocation], capture.ErrNoDevice)
	assert.ErrorIs(t, got[TaskNotify], ErrNoSender)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	r := NewResponder(&fakeCamera{photo: []byte("p")}, &fakeLocator{loc: nil}, sender, "owner-1")

	start := time.Now()
	done := r.Trigger()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(sender.block)
	<-done
}
