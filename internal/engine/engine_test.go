// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docvault-tui/internal/lockdown"
	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/oracle"
)

// =============================================================================
// FAKES
// =============================================================================

// scriptedOracle returns its verdicts in order. A nil entry means
// ErrUnavailable.
type scriptedOracle struct {
	verdicts []*bool
	calls    int
}

func verdict(v bool) *bool { return &v }

func (s *scriptedOracle) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	if s.calls >= len(s.verdicts) {
		s.calls++
		return false, oracle.ErrUnavailable
	}
	v := s.verdicts[s.calls]
	s.calls++
	if v == nil {
		return false, oracle.ErrUnavailable
	}
	return *v, nil
}

type fakeStore struct {
	saved   int
	cleared int
	pinning []bool
	lastLoc *model.GeoSnapshot
	saveErr error
}

func (f *fakeStore) SaveSession(officer model.OfficerCredential, loc *model.GeoSnapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved++
	f.lastLoc = loc
	return nil
}

func (f *fakeStore) SetPinningConfirmed(confirmed bool) error {
	f.pinning = append(f.pinning, confirmed)
	return nil
}

func (f *fakeStore) Clear() error {
	f.cleared++
	return nil
}

type fakeAudit struct {
	entries []model.AccessLogEntry
	synced  []bool
	err     error
}

func (f *fakeAudit) Append(entry model.AccessLogEntry, synced bool) error {
	f.entries = append(f.entries, entry)
	f.synced = append(f.synced, synced)
	return f.err
}

type fakePusher struct {
	pushed int
	err    error
}

func (f *fakePusher) AppendAccessLog(ctx context.Context, entry model.AccessLogEntry) error {
	f.pushed++
	return f.err
}

type fakeResponder struct {
	triggers int
}

func (f *fakeResponder) Trigger() <-chan struct{} {
	f.triggers++
	done := make(chan struct{})
	close(done)
	return done
}

type fakeLockdown struct {
	engaged  int
	released int
}

func (f *fakeLockdown) Engage(ctx context.Context) lockdown.Status {
	f.engaged++
	return lockdown.StatusEngaged
}

func (f *fakeLockdown) Release(ctx context.Context) lockdown.Status {
	f.released++
	return lockdown.StatusReleased
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	engine    *Engine
	oracle    *scriptedOracle
	store     *fakeStore
	audit     *fakeAudit
	pusher    *fakePusher
	responder *fakeResponder
	lockdown  *fakeLockdown
	clock     *time.Time
}

func newHarness(t *testing.T, verdicts ...*bool) *harness {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{
		oracle:    &scriptedOracle{verdicts: verdicts},
		store:     &fakeStore{},
		audit:     &fakeAudit{},
		pusher:    &fakePusher{},
		responder: &fakeResponder{},
		lockdown:  &fakeLockdown{},
		clock:     &now,
	}
	h.engine = New("owner-1", h.oracle, h.store, h.audit, h.pusher, h.responder, h.lockdown,
		WithClock(func() time.Time { return *h.clock }),
	)
	return h
}

func (h *harness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

// toActive drives the engine through handover into an active session.
func (h *harness) toActive(t *testing.T) {
	t.Helper()
	require.NoError(t, h.engine.BeginHandover())
	require.NoError(t, h.engine.SubmitOfficer("Dana Reyes", "4451"))
	_, err := h.engine.ConfirmPinning(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, StateActive, h.engine.State())
}

// toExit drives the engine to the PIN prompt.
func (h *harness) toExit(t *testing.T) {
	t.Helper()
	h.toActive(t)
	require.NoError(t, h.engine.RequestExit())
	require.Equal(t, StateExitVerification, h.engine.State())
}

func (h *harness) submit(t *testing.T) PINResult {
	t.Helper()
	res, err := h.engine.SubmitPIN(context.Background(), "0000")
	require.NoError(t, err)
	return res
}

// =============================================================================
// HANDOVER AND OFFICER ENTRY
// =============================================================================

func TestHandoverFlow(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, StateIdle, h.engine.State())

	require.NoError(t, h.engine.BeginHandover())
	assert.Equal(t, StateAwaitingOfficerEntry, h.engine.State())

	require.NoError(t, h.engine.SubmitOfficer("Dana Reyes", "4451"))
	assert.Equal(t, StatePinningConfirmation, h.engine.State())
	assert.Equal(t, 1, h.store.saved)

	status, err := h.engine.ConfirmPinning(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, lockdown.StatusEngaged, status)
	assert.Equal(t, StateActive, h.engine.State())
	assert.Equal(t, []bool{true}, h.store.pinning)
}

func TestOfficerValidationFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.BeginHandover())

	var fieldErr *model.FieldError
	err := h.engine.SubmitOfficer("A", "4451")
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "name", fieldErr.Field)

	err = h.engine.SubmitOfficer("Dana Reyes", "7")
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "badge_number", fieldErr.Field)

	// Whitespace does not count toward the minimum.
	err = h.engine.SubmitOfficer("  B  ", "4451")
	assert.Error(t, err)

	assert.Equal(t, StateAwaitingOfficerEntry, h.engine.State())
	assert.Zero(t, h.store.saved)

	// Boundary: exactly two characters after trimming passes.
	require.NoError(t, h.engine.SubmitOfficer(" Al ", " 77 "))
	assert.Equal(t, "Al", h.engine.Officer().Name)
	assert.Equal(t, "77", h.engine.Officer().BadgeNumber)
}

func TestSubmitOfficerFailsClosedOnStoreError(t *testing.T) {
	h := newHarness(t)
	h.store.saveErr = errors.New("disk full")
	require.NoError(t, h.engine.BeginHandover())

	err := h.engine.SubmitOfficer("Dana Reyes", "4451")
	assert.Error(t, err)
	assert.Equal(t, StateAwaitingOfficerEntry, h.engine.State())
}

func TestLocationFixLandsMidSession(t *testing.T) {
	h := newHarness(t, verdict(true))
	require.NoError(t, h.engine.BeginHandover())

	// Before the officer is identified there is no session to attach
	// a fix to.
	h.engine.SetLocation(&model.GeoSnapshot{Latitude: 1, Longitude: 1})
	assert.Zero(t, h.store.saved)

	require.NoError(t, h.engine.SubmitOfficer("Dana Reyes", "4451"))
	fix := &model.GeoSnapshot{Latitude: 37.7, Longitude: -122.4}
	h.engine.SetLocation(fix)
	assert.Equal(t, 2, h.store.saved, "the fix re-persists the session")
	assert.Equal(t, fix, h.store.lastLoc)

	h.engine.SetLocation(nil)
	assert.Equal(t, fix, h.store.lastLoc)

	_, err := h.engine.ConfirmPinning(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, h.engine.RequestExit())
	res := h.submit(t)
	require.Equal(t, PINGranted, res.Outcome)
	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, fix, h.audit.entries[0].Location)

	// A fix arriving after the exit is dropped.
	h.engine.SetLocation(&model.GeoSnapshot{Latitude: 2, Longitude: 2})
	assert.Equal(t, fix, h.store.lastLoc)
}

func TestArmedHandoverIsOneWay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.BeginHandover())

	// No transition out of officer entry except a completed form. Back
	// gestures are swallowed and re-arming is rejected.
	assert.True(t, h.engine.HandleBack())
	assert.Equal(t, StateAwaitingOfficerEntry, h.engine.State())
	assert.ErrorIs(t, h.engine.BeginHandover(), ErrInvalidTransition)
	assert.ErrorIs(t, h.engine.RequestExit(), ErrInvalidTransition)
	_, err := h.engine.SubmitPIN(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateAwaitingOfficerEntry, h.engine.State())
}

func TestPinningDeclinedStillActivates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.BeginHandover())
	require.NoError(t, h.engine.SubmitOfficer("Dana Reyes", "4451"))

	status, err := h.engine.ConfirmPinning(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, lockdown.StatusUnsupported, status)
	assert.Equal(t, StateActive, h.engine.State())
	assert.Zero(t, h.lockdown.engaged)
}

// =============================================================================
// BACK NAVIGATION
// =============================================================================

func TestBackIsAlwaysSwallowedInSession(t *testing.T) {
	h := newHarness(t, nil, verdict(false))
	assert.False(t, h.engine.HandleBack(), "back in idle is not a session event")

	require.NoError(t, h.engine.BeginHandover())
	states := []func(){
		func() {},
		func() { require.NoError(t, h.engine.SubmitOfficer("Dana Reyes", "4451")) },
		func() { _, err := h.engine.ConfirmPinning(context.Background(), true); require.NoError(t, err) },
		func() { require.NoError(t, h.engine.RequestExit()) },
		func() { h.submit(t) }, // oracle unavailable, still in exit verification
	}
	for _, step := range states {
		step()
		before := h.engine.State()
		assert.True(t, h.engine.HandleBack(), "back in %s", before)
		assert.Equal(t, before, h.engine.State(), "back must not move state")
	}
}

// =============================================================================
// EXIT VERIFICATION
// =============================================================================

func TestRequestExitIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.toActive(t)

	require.NoError(t, h.engine.RequestExit())
	require.NoError(t, h.engine.RequestExit())
	assert.Equal(t, StateExitVerification, h.engine.State())

	require.NoError(t, h.engine.CancelExit())
	assert.Equal(t, StateActive, h.engine.State())
}

func TestMismatchCountsDown(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false))
	h.toExit(t)

	res := h.submit(t)
	assert.Equal(t, PINMismatch, res.Outcome)
	assert.Equal(t, 2, res.AttemptsRemaining)

	res = h.submit(t)
	assert.Equal(t, PINMismatch, res.Outcome)
	assert.Equal(t, 1, res.AttemptsRemaining)
	assert.Equal(t, StateExitVerification, h.engine.State())
	assert.Equal(t, 2, h.responder.triggers, "every confirmed mismatch fires the intruder response")
}

func TestEveryMismatchFiresIntruderResponse(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false), verdict(false))
	h.toExit(t)

	for want := 1; want <= MaxPINMismatches; want++ {
		h.submit(t)
		assert.Equal(t, want, h.responder.triggers, "mismatch %d", want)
	}
}

func TestShortSecretRejectedLocally(t *testing.T) {
	h := newHarness(t, verdict(false))
	h.toExit(t)

	res, err := h.engine.SubmitPIN(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, PINTooShort, res.Outcome)
	assert.Equal(t, MaxPINMismatches, res.AttemptsRemaining)

	// Local validation: the oracle is never consulted, the counter
	// never moves, nothing fires.
	assert.Zero(t, h.oracle.calls)
	assert.Zero(t, h.engine.Mismatches())
	assert.Zero(t, h.responder.triggers)
	assert.Equal(t, StateExitVerification, h.engine.State())

	// A short submission between real attempts does not disturb the
	// consecutive count.
	h.submit(t)
	require.Equal(t, 1, h.engine.Mismatches())
	res, err = h.engine.SubmitPIN(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, PINTooShort, res.Outcome)
	assert.Equal(t, 2, res.AttemptsRemaining)
	assert.Equal(t, 1, h.engine.Mismatches())
	assert.Equal(t, 1, h.oracle.calls)
}

func TestThirdMismatchLocksOut(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false), verdict(false))
	h.toExit(t)

	h.submit(t)
	h.submit(t)
	res := h.submit(t)

	assert.Equal(t, PINLockedOut, res.Outcome)
	assert.Equal(t, LockoutDuration, res.LockoutRemaining)
	assert.Equal(t, StateLockedOut, h.engine.State())
	assert.Zero(t, h.engine.Mismatches(), "counter resets when the lockout starts")
	assert.Equal(t, 3, h.responder.triggers, "one intruder response per confirmed mismatch")
}

func TestLockoutExpiry(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false), verdict(false))
	h.toExit(t)
	h.submit(t)
	h.submit(t)
	h.submit(t)
	require.Equal(t, StateLockedOut, h.engine.State())

	// At T+29s the prompt is still disabled.
	h.advance(29 * time.Second)
	assert.False(t, h.engine.Tick())
	_, err := h.engine.SubmitPIN(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, time.Second, h.engine.LockoutRemaining())

	// At T+30s the prompt re-enables with a zero counter.
	h.advance(time.Second)
	assert.True(t, h.engine.Tick())
	assert.Equal(t, StateExitVerification, h.engine.State())
	assert.Zero(t, h.engine.Mismatches())
	assert.Zero(t, h.engine.LockoutRemaining())
}

func TestUnavailableDoesNotCountOrAlert(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false), nil, verdict(false))
	h.toExit(t)

	h.submit(t)
	h.submit(t)
	require.Equal(t, 2, h.engine.Mismatches())

	// No verdict: counter frozen, no alert, prompt stays up.
	res := h.submit(t)
	assert.Equal(t, PINUnavailable, res.Outcome)
	assert.Equal(t, 1, res.AttemptsRemaining)
	assert.Equal(t, 2, h.engine.Mismatches())
	assert.Equal(t, StateExitVerification, h.engine.State())
	assert.Equal(t, 2, h.responder.triggers, "no verdict, no response")

	// The next real mismatch is the third consecutive one.
	res = h.submit(t)
	assert.Equal(t, PINLockedOut, res.Outcome)
	assert.Equal(t, StateLockedOut, h.engine.State())
	assert.Equal(t, 3, h.responder.triggers)
}

func TestGrantedExitClearsEverything(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(true))
	h.toExit(t)
	h.engine.CancelExit()
	h.engine.RecordDocumentViewed("State ID")
	h.engine.RecordDocumentViewed("Carry Permit")
	h.engine.RecordDocumentViewed("State ID") // deduplicated
	require.NoError(t, h.engine.RequestExit())

	h.submit(t) // mismatch
	res := h.submit(t)

	assert.Equal(t, PINGranted, res.Outcome)
	require.NotNil(t, res.LogEntry)
	assert.NoError(t, res.LogErr)

	// Exactly one access-log entry, pushed and spooled before the clear.
	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, "owner-1", entry.OwnerID)
	assert.Equal(t, "Dana Reyes", entry.OfficerName)
	assert.Equal(t, "4451", entry.BadgeNumber)
	assert.Equal(t, []string{"State ID", "Carry Permit"}, entry.DocumentsViewed)
	assert.Equal(t, []bool{true}, h.audit.synced)
	assert.Equal(t, 1, h.pusher.pushed)
	assert.Equal(t, 1, h.store.cleared)
	assert.Equal(t, 1, h.lockdown.released)

	// Fully reset.
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Zero(t, h.engine.Mismatches())
	assert.Empty(t, h.engine.Officer().Name)
	assert.Empty(t, h.engine.DocumentsViewed())
}

func TestGrantedExitSurvivesPushFailure(t *testing.T) {
	h := newHarness(t, verdict(true))
	h.pusher.err = errors.New("vault unreachable")
	h.toExit(t)

	res := h.submit(t)
	assert.Equal(t, PINGranted, res.Outcome)

	// Spooled unsynced for later retry; the exit completes regardless.
	assert.Equal(t, []bool{false}, h.audit.synced)
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Equal(t, 1, h.store.cleared)
}

func TestGrantedExitReportsLocalLogFailure(t *testing.T) {
	h := newHarness(t, verdict(true))
	h.audit.err = errors.New("spool full")
	h.toExit(t)

	res := h.submit(t)
	assert.Equal(t, PINGranted, res.Outcome)
	assert.Error(t, res.LogErr)
	assert.Equal(t, StateIdle, h.engine.State())
}

func TestSubmitPINOutsideExitVerification(t *testing.T) {
	h := newHarness(t)
	h.toActive(t)

	_, err := h.engine.SubmitPIN(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMismatchCounterSurvivesCancelAndReopen(t *testing.T) {
	h := newHarness(t, verdict(false), verdict(false), verdict(false))
	h.toExit(t)

	h.submit(t)
	require.NoError(t, h.engine.CancelExit())
	require.NoError(t, h.engine.RequestExit())
	h.submit(t)
	res := h.submit(t)

	// Consecutive mismatches count across reopens of the prompt.
	assert.Equal(t, PINLockedOut, res.Outcome)
}

// =============================================================================
// CRASH RECOVERY
// =============================================================================

func TestRestoreResumesInExitVerification(t *testing.T) {
	h := newHarness(t, verdict(true))

	officer := model.OfficerCredential{Name: "Dana Reyes", BadgeNumber: "4451"}
	require.NoError(t, h.engine.Restore(officer, nil, true))
	assert.Equal(t, StateExitVerification, h.engine.State())

	res := h.submit(t)
	assert.Equal(t, PINGranted, res.Outcome)
	assert.Equal(t, "Dana Reyes", h.audit.entries[0].OfficerName)
}

func TestRestoreOnlyFromIdle(t *testing.T) {
	h := newHarness(t)
	h.toActive(t)
	err := h.engine.Restore(model.OfficerCredential{Name: "X Y", BadgeNumber: "99"}, nil, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
