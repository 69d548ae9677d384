// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine is the secure-session state machine. It owns every
// transition between handing the device to an officer and getting it
// back, and it is the single place where exit authorization, mismatch
// counting, lockout, and the intruder response are decided.
//
// The engine is not safe for concurrent use. It is driven from the UI
// event loop, which serializes all inputs; anything asynchronous
// (oracle round trips, captures, uploads) happens outside and feeds
// results back in as inputs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/docvault-tui/internal/lockdown"
	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/oracle"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MaxPINMismatches is the number of consecutive mismatches that
	// triggers a lockout.
	MaxPINMismatches = 3

	// LockoutDuration is how long exit verification stays disabled
	// after MaxPINMismatches consecutive mismatches.
	LockoutDuration = 30 * time.Second

	// OracleTimeout bounds a single PIN verification round trip so the
	// exit path can never hang indefinitely.
	OracleTimeout = 10 * time.Second

	// LogPushTimeout bounds the remote access-log push attempted on a
	// successful exit. The spool append is what the protocol requires;
	// the push is opportunistic.
	LogPushTimeout = 5 * time.Second
)

// =============================================================================
// STATES
// =============================================================================

// State is a secure-session phase.
type State int

const (
	// StateIdle means no session: the owner holds the device.
	StateIdle State = iota

	// StateAwaitingOfficerEntry means the owner armed a handover and
	// the officer identification form is up.
	StateAwaitingOfficerEntry

	// StatePinningConfirmation means officer identity is captured and
	// the owner is being asked to confirm device pinning.
	StatePinningConfirmation

	// StateActive means documents are presented to the officer.
	StateActive

	// StateExitVerification means an exit was requested and the owner
	// PIN prompt is up.
	StateExitVerification

	// StateLockedOut means too many consecutive mismatches; the PIN
	// prompt is disabled until the lockout expires.
	StateLockedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingOfficerEntry:
		return "awaiting_officer_entry"
	case StatePinningConfirmation:
		return "pinning_confirmation"
	case StateActive:
		return "active"
	case StateExitVerification:
		return "exit_verification"
	case StateLockedOut:
		return "locked_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidTransition means the operation does not apply in the
	// current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrLockedOut means PIN entry is disabled until the lockout
	// expires.
	ErrLockedOut = errors.New("exit verification locked out")
)

// =============================================================================
// OUTCOMES
// =============================================================================

// PINOutcome is the result of one PIN submission.
type PINOutcome int

const (
	// PINGranted means the PIN matched and the session ended.
	PINGranted PINOutcome = iota

	// PINMismatch means the oracle ruled the PIN wrong and attempts
	// remain.
	PINMismatch

	// PINLockedOut means this mismatch was the third consecutive one
	// and the prompt is now disabled.
	PINLockedOut

	// PINUnavailable means the oracle produced no verdict. The counter
	// did not move and no alert fired.
	PINUnavailable

	// PINTooShort means the submission failed local validation and was
	// never sent to the oracle. The counter did not move.
	PINTooShort
)

// PINResult carries the outcome of a PIN submission plus what the UI
// needs to render it.
type PINResult struct {
	Outcome           PINOutcome
	AttemptsRemaining int
	LockoutRemaining  time.Duration

	// LogEntry is the access-log entry recorded on a granted exit.
	LogEntry *model.AccessLogEntry

	// LogErr reports a failed local access-log append on a granted
	// exit. The exit still completes; the owner is notified.
	LogErr error
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// SessionStore persists session fields across process death.
type SessionStore interface {
	SaveSession(officer model.OfficerCredential, loc *model.GeoSnapshot) error
	SetPinningConfirmed(confirmed bool) error
	Clear() error
}

// AccessLogger appends a completed session to the local access log.
// synced records whether the remote push already succeeded.
type AccessLogger interface {
	Append(entry model.AccessLogEntry, synced bool) error
}

// LogPusher pushes an access-log entry to the remote vault.
type LogPusher interface {
	AppendAccessLog(ctx context.Context, entry model.AccessLogEntry) error
}

// Responder launches the fire-and-forget intruder response.
type Responder interface {
	Trigger() <-chan struct{}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the secure-session state machine.
type Engine struct {
	state      State
	mismatches int
	lockedTill time.Time

	officer  model.OfficerCredential
	location *model.GeoSnapshot
	started  time.Time
	viewed   []string
	viewedAt map[string]bool
	pinned   bool

	ownerID   string
	oracle    oracle.Oracle
	store     SessionStore
	audit     AccessLogger
	pusher    LogPusher
	responder Responder
	lockdown  lockdown.Lockdown

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine in StateIdle. oracle and store are required;
// audit, pusher, responder, and lockdown may be nil and then degrade
// to no-ops (the protocol transitions are unaffected).
func New(ownerID string, o oracle.Oracle, store SessionStore, audit AccessLogger, pusher LogPusher, responder Responder, ld lockdown.Lockdown, opts ...Option) *Engine {
	e := &Engine{
		state:     StateIdle,
		ownerID:   ownerID,
		oracle:    o,
		store:     store,
		audit:     audit,
		pusher:    pusher,
		responder: responder,
		lockdown:  ld,
		viewedAt:  make(map[string]bool),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lockdown == nil {
		e.lockdown = lockdown.Noop{}
	}
	return e
}

// State returns the current session phase.
func (e *Engine) State() State { return e.state }

// Officer returns the identified officer for the current session.
func (e *Engine) Officer() model.OfficerCredential { return e.officer }

// Mismatches returns the consecutive mismatch count.
func (e *Engine) Mismatches() int { return e.mismatches }

// Pinned reports whether the owner asked for device pinning this
// session.
func (e *Engine) Pinned() bool { return e.pinned }

// DocumentsViewed returns the names recorded so far, in view order.
func (e *Engine) DocumentsViewed() []string {
	return append([]string(nil), e.viewed...)
}

// =============================================================================
// HANDOVER
// =============================================================================

// BeginHandover arms a session: Idle to AwaitingOfficerEntry. The
// caller authenticates the owner before arming; the engine only
// enforces ordering. Arming is one-way: once armed, the only path
// back to Idle is a verified exit.
func (e *Engine) BeginHandover() error {
	if e.state != StateIdle {
		return fmt.Errorf("%w: begin handover in %s", ErrInvalidTransition, e.state)
	}
	e.state = StateAwaitingOfficerEntry
	return nil
}

// SubmitOfficer validates and records the officer identity, persists
// the session, and advances to PinningConfirmation. A validation
// failure keeps the state unchanged and returns the field error.
func (e *Engine) SubmitOfficer(name, badge string) error {
	if e.state != StateAwaitingOfficerEntry {
		return fmt.Errorf("%w: officer entry in %s", ErrInvalidTransition, e.state)
	}

	officer, err := model.NewOfficerCredential(name, badge)
	if err != nil {
		return err
	}

	if err := e.store.SaveSession(officer, e.location); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	e.officer = officer
	e.started = e.now().UTC()
	e.state = StatePinningConfirmation
	return nil
}

// ConfirmPinning records the owner's pinning decision and activates
// the session. When confirmed, the advisory lockdown is requested; its
// outcome is returned for display and never gates activation.
func (e *Engine) ConfirmPinning(ctx context.Context, confirmed bool) (lockdown.Status, error) {
	if e.state != StatePinningConfirmation {
		return "", fmt.Errorf("%w: pinning confirmation in %s", ErrInvalidTransition, e.state)
	}

	if err := e.store.SetPinningConfirmed(confirmed); err != nil {
		return "", fmt.Errorf("failed to persist pinning choice: %w", err)
	}
	e.pinned = confirmed

	status := lockdown.StatusUnsupported
	if confirmed {
		status = e.lockdown.Engage(ctx)
	}

	e.state = StateActive
	return status, nil
}

// SetLocation records a geo fix for the in-flight session. The fix is
// captured asynchronously when the officer is identified and may land
// in any later state; it is dropped once the session is over. The
// persisted session is refreshed so crash recovery keeps the fix.
func (e *Engine) SetLocation(loc *model.GeoSnapshot) {
	if loc == nil || e.state == StateIdle || e.officer.Name == "" {
		return
	}
	e.location = loc
	_ = e.store.SaveSession(e.officer, loc)
}

// RecordDocumentViewed notes a document shown during the active
// session, once per name.
func (e *Engine) RecordDocumentViewed(name string) {
	if e.state != StateActive || name == "" || e.viewedAt[name] {
		return
	}
	e.viewedAt[name] = true
	e.viewed = append(e.viewed, name)
}

// =============================================================================
// BACK NAVIGATION
// =============================================================================

// InSession reports whether a session is in flight (any state other
// than Idle).
func (e *Engine) InSession() bool { return e.state != StateIdle }

// HandleBack consumes a back-navigation gesture. During a session the
// gesture never changes state; the return value says whether the UI
// should show the "exit requires verification" notice.
func (e *Engine) HandleBack() (swallowed bool) {
	return e.InSession()
}

// =============================================================================
// EXIT VERIFICATION
// =============================================================================

// RequestExit opens exit verification from the active session. The
// request is idempotent: repeated requests while verification is
// already open are no-ops, and a request during lockout leaves the
// lockout untouched.
func (e *Engine) RequestExit() error {
	switch e.state {
	case StateActive:
		e.state = StateExitVerification
		return nil
	case StateExitVerification, StateLockedOut:
		return nil
	default:
		return fmt.Errorf("%w: exit request in %s", ErrInvalidTransition, e.state)
	}
}

// CancelExit backs out of the PIN prompt to the active session. Not
// available during lockout.
func (e *Engine) CancelExit() error {
	if e.state != StateExitVerification {
		return fmt.Errorf("%w: cancel exit in %s", ErrInvalidTransition, e.state)
	}
	e.state = StateActive
	return nil
}

// SubmitPIN runs one exit verification attempt. The oracle is asked
// for a verdict; only an actual verdict moves the mismatch counter.
func (e *Engine) SubmitPIN(ctx context.Context, pin string) (PINResult, error) {
	if e.state == StateLockedOut {
		return PINResult{}, fmt.Errorf("%w: %s remaining", ErrLockedOut, e.LockoutRemaining().Round(time.Second))
	}
	if e.state != StateExitVerification {
		return PINResult{}, fmt.Errorf("%w: pin submission in %s", ErrInvalidTransition, e.state)
	}

	// A secret below the enrollment minimum can never match. Reject it
	// locally: no oracle round trip, no counter movement.
	if len(pin) < oracle.MinPINLength {
		return PINResult{
			Outcome:           PINTooShort,
			AttemptsRemaining: MaxPINMismatches - e.mismatches,
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, OracleTimeout)
	defer cancel()

	ok, err := e.oracle.VerifyPIN(ctx, pin)
	if err != nil {
		// No verdict. The counter must not move, no alert fires, and
		// the prompt stays available.
		return PINResult{
			Outcome:           PINUnavailable,
			AttemptsRemaining: MaxPINMismatches - e.mismatches,
		}, nil
	}

	if !ok {
		return e.recordMismatch(), nil
	}
	return e.grantExit(ctx), nil
}

// recordMismatch advances the counter, fires the intruder response,
// and locks out on the third consecutive mismatch. Every confirmed
// mismatch is someone other than the owner guessing, so every one
// triggers the response. The response must never delay the state
// transition, so its channel is deliberately not awaited.
func (e *Engine) recordMismatch() PINResult {
	e.mismatches++
	if e.responder != nil {
		_ = e.responder.Trigger()
	}

	if e.mismatches < MaxPINMismatches {
		return PINResult{
			Outcome:           PINMismatch,
			AttemptsRemaining: MaxPINMismatches - e.mismatches,
		}
	}

	// Third consecutive mismatch: lock out and reset the counter.
	e.mismatches = 0
	e.state = StateLockedOut
	e.lockedTill = e.now().Add(LockoutDuration)
	return PINResult{
		Outcome:          PINLockedOut,
		LockoutRemaining: LockoutDuration,
	}
}

// grantExit ends the session after a verified PIN: record the access
// log, clear persisted state, release pinning, return to Idle. The
// log append is attempted before the clear so a crash in between
// leaves the record, not the session.
func (e *Engine) grantExit(ctx context.Context) PINResult {
	entry := model.NewAccessLogEntry(e.ownerID, e.officer, e.started, e.location, e.viewed)

	synced := false
	if e.pusher != nil {
		pushCtx, cancel := context.WithTimeout(context.Background(), LogPushTimeout)
		synced = e.pusher.AppendAccessLog(pushCtx, entry) == nil
		cancel()
	}

	var logErr error
	if e.audit != nil {
		logErr = e.audit.Append(entry, synced)
	}

	// Clearing can fail (disk full, store closed). The exit still
	// completes; stale persisted state is re-cleared on next launch.
	_ = e.store.Clear()

	if e.pinned {
		e.lockdown.Release(ctx)
	}

	e.state = StateIdle
	e.mismatches = 0
	e.officer = model.OfficerCredential{}
	e.started = time.Time{}
	e.viewed = nil
	e.viewedAt = make(map[string]bool)
	e.pinned = false

	return PINResult{
		Outcome:           PINGranted,
		AttemptsRemaining: MaxPINMismatches,
		LogEntry:          &entry,
		LogErr:            logErr,
	}
}

// =============================================================================
// LOCKOUT CLOCK
// =============================================================================

// LockoutRemaining returns how long until PIN entry re-enables, or 0
// when not locked out.
func (e *Engine) LockoutRemaining() time.Duration {
	if e.state != StateLockedOut {
		return 0
	}
	remaining := e.lockedTill.Sub(e.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick advances the lockout clock. When the lockout has fully elapsed
// the engine returns to ExitVerification with a zero mismatch counter.
// Returns true if the prompt just re-enabled.
func (e *Engine) Tick() bool {
	if e.state != StateLockedOut {
		return false
	}
	if e.now().Before(e.lockedTill) {
		return false
	}
	e.state = StateExitVerification
	e.mismatches = 0
	e.lockedTill = time.Time{}
	return true
}

// =============================================================================
// CRASH RECOVERY
// =============================================================================

// Restore rehydrates an in-flight session from persisted state, used
// at startup. The engine resumes in ExitVerification: after a restart
// mid-session the only way forward is verified exit.
func (e *Engine) Restore(officer model.OfficerCredential, loc *model.GeoSnapshot, pinned bool) error {
	if e.state != StateIdle {
		return fmt.Errorf("%w: restore in %s", ErrInvalidTransition, e.state)
	}
	e.officer = officer
	e.location = loc
	e.pinned = pinned
	e.started = e.now().UTC()
	e.state = StateExitVerification
	return nil
}
