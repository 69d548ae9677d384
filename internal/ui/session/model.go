// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the top-level TUI for an officer session. It
// drives the session engine from the Bubble Tea event loop, which
// serializes every transition: all engine calls happen on the update
// path, and anything slow (oracle round trips, document fetches,
// captures) runs as a command and re-enters as a message.
package session

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docvault-tui/internal/config"
	"github.com/jeranaias/docvault-tui/internal/engine"
	"github.com/jeranaias/docvault-tui/internal/export"
	"github.com/jeranaias/docvault-tui/internal/lockdown"
	"github.com/jeranaias/docvault-tui/internal/model"
	"github.com/jeranaias/docvault-tui/internal/oracle"
	"github.com/jeranaias/docvault-tui/internal/ui/components"
	"github.com/jeranaias/docvault-tui/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

// screen is what the terminal currently shows. Screens follow the
// engine's state; the engine, not the screen, is the source of truth
// for the protocol.
type screen int

const (
	screenIdle screen = iota
	screenOwnerGate
	screenOfficer
	screenPinning
	screenDocs
	screenDocView
	screenExit
	screenHistory
)

// =============================================================================
// MESSAGES
// =============================================================================

// docsFetchedMsg carries the (possibly failed) document fetch result.
type docsFetchedMsg struct {
	docs []model.Document
	err  error
}

// watchdogFiredMsg forces the document screen out of its loading
// state so the exit affordance can never be starved by a hung fetch.
type watchdogFiredMsg struct{}

// pinVerdictMsg carries the engine's exit verification result.
type pinVerdictMsg struct {
	res engine.PINResult
	err error
}

// ownerGateMsg carries the pre-activation owner check result.
type ownerGateMsg struct {
	ok  bool
	err error
}

// lockoutTickMsg drives the lockout countdown.
type lockoutTickMsg time.Time

// locationFixMsg carries the best-effort geo fix captured when the
// officer is identified. A nil fix means no locator or no fix.
type locationFixMsg struct {
	loc *model.GeoSnapshot
}

// LocationSource produces a best-effort geo fix. capture.DeviceCapture
// satisfies it directly.
type LocationSource interface {
	CurrentLocation(ctx context.Context) (*model.GeoSnapshot, error)
}

// DocumentFetcher loads the owner's documents for presentation.
type DocumentFetcher interface {
	FetchDocuments(ctx context.Context, ownerID string) ([]model.Document, error)
}

// HistorySource reads the recorded access history. The audit spool
// satisfies it directly.
type HistorySource interface {
	All() (entries []model.AccessLogEntry, tampered int, err error)
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the secure-session app.
type Model struct {
	theme  *styles.Theme
	cfg    *config.Config
	engine *engine.Engine

	// gate authenticates the owner before a handover can be armed.
	gate *oracle.Local

	fetcher DocumentFetcher
	history HistorySource
	locator LocationSource

	screen  screen
	form    *components.OfficerForm
	pinning *components.PinningConfirm
	docs    *components.DocList
	pin     *components.PINPrompt
	notices *components.NoticeStack

	gateInput   *components.PINPrompt
	viewing     *model.Document
	historyBody string
	verifying   bool
	quitting    bool
}

// New builds the session model.
func New(cfg *config.Config, eng *engine.Engine, gate *oracle.Local, fetcher DocumentFetcher, history HistorySource) *Model {
	theme := styles.NewTheme(80, 24)
	return &Model{
		theme:   theme,
		cfg:     cfg,
		engine:  eng,
		gate:    gate,
		fetcher: fetcher,
		history: history,
		screen:  screenIdle,
		notices: components.NewNoticeStack(theme),
	}
}

// WithLocator attaches the geo source queried at officer entry.
func (m *Model) WithLocator(loc LocationSource) *Model {
	m.locator = loc
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	// A session persisted by a previous crash resumes directly at
	// exit verification.
	if m.engine.State() == engine.StateExitVerification {
		m.pin = components.NewPINPrompt(m.theme)
		m.screen = screenExit
	}
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.theme.Resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case components.OfficerSubmittedMsg:
		return m.handleOfficerSubmitted(msg)

	case components.PinningDecisionMsg:
		return m.handlePinningDecision(msg)

	case components.DocumentOpenedMsg:
		m.engine.RecordDocumentViewed(msg.Document.Name)
		doc := msg.Document
		m.viewing = &doc
		m.screen = screenDocView
		return m, nil

	case components.PINSubmittedMsg:
		return m.handlePINSubmitted(msg)

	case components.PINCancelledMsg:
		return m.handlePINCancelled()

	case components.NoticeExpiredMsg:
		m.notices.Dismiss(msg.ID)
		return m, nil

	case docsFetchedMsg:
		return m.handleDocsFetched(msg)

	case watchdogFiredMsg:
		if m.screen == screenDocs && m.docs != nil && m.docs.Loading() {
			m.docs.SetDegraded("Documents are taking too long to load. You can still end the session.")
		}
		return m, nil

	case pinVerdictMsg:
		return m.handlePINVerdict(msg)

	case ownerGateMsg:
		return m.handleOwnerGate(msg)

	case lockoutTickMsg:
		return m.handleLockoutTick()

	case locationFixMsg:
		m.engine.SetLocation(msg.loc)
		return m, nil

	case model.BestEffortResult:
		// Intruder-response task outcomes, posted from the responder
		// goroutine via Program.Send.
		kind := components.NoticeSuccess
		if !msg.Succeeded() {
			kind = components.NoticeWarning
		}
		return m, m.notices.Push(components.NewNotice(kind, msg.String()))
	}

	return m.updateComponents(msg)
}

// updateKey routes keys, enforcing the session-boundary rules before
// any component sees them.
func (m *Model) updateKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := key.String()

	// Quit and back gestures are swallowed for the whole session.
	// The only door out of an in-flight session is exit verification.
	if m.engine.InSession() {
		switch s {
		case "ctrl+c", "q":
			if m.screen == screenOfficer || m.screen == screenExit || m.screen == screenOwnerGate {
				// q is an ordinary character inside text fields.
				if s == "q" {
					break
				}
			}
			if s == "ctrl+c" || m.screen == screenDocs {
				m.engine.HandleBack()
				return m, m.notices.Push(components.NewNotice(
					components.NoticeInfo, "Ending the session requires the owner PIN."))
			}
		case "esc":
			if m.screen == screenDocs {
				m.engine.HandleBack()
				return m, m.notices.Push(components.NewNotice(
					components.NoticeInfo, "Ending the session requires the owner PIN."))
			}
		}
	}

	switch m.screen {
	case screenIdle:
		switch s {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s", "enter":
			m.gateInput = components.NewPINPrompt(m.theme)
			m.gateInput.SetLabels("Start Handover",
				"Enter your PIN to arm a presentation session",
				"enter submits, esc cancels")
			m.screen = screenOwnerGate
			return m, nil
		case "h":
			m.openHistory()
			return m, nil
		}
		return m, nil

	case screenHistory:
		switch s {
		case "esc", "q", "h", "enter":
			m.historyBody = ""
			m.screen = screenIdle
		}
		return m, nil

	case screenOwnerGate:
		if s == "esc" {
			m.screen = screenIdle
			return m, nil
		}
		var cmd tea.Cmd
		m.gateInput, cmd = m.gateInput.Update(key)
		return m, cmd

	case screenOfficer:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(key)
		return m, cmd

	case screenPinning:
		var cmd tea.Cmd
		m.pinning, cmd = m.pinning.Update(key)
		return m, cmd

	case screenDocs:
		if s == "e" {
			return m.openExitVerification()
		}
		var cmd tea.Cmd
		m.docs, cmd = m.docs.Update(key)
		return m, cmd

	case screenDocView:
		switch s {
		case "esc", "enter", "backspace":
			m.viewing = nil
			m.screen = screenDocs
		case "e":
			m.viewing = nil
			return m.openExitVerification()
		}
		return m, nil

	case screenExit:
		var cmd tea.Cmd
		m.pin, cmd = m.pin.Update(key)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenDocs:
		if m.docs != nil {
			m.docs, cmd = m.docs.Update(msg)
		}
	}
	return m, cmd
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (m *Model) handleOwnerGate(msg ownerGateMsg) (tea.Model, tea.Cmd) {
	m.verifying = false
	m.gateInput.SetVerifying(false)

	if msg.err != nil {
		m.gateInput.SetUnavailable()
		return m, nil
	}
	if !msg.ok {
		m.gateInput.SetError("PIN did not match.")
		return m, nil
	}

	if err := m.engine.BeginHandover(); err != nil {
		return m, m.notices.Push(components.NewNotice(components.NoticeError, err.Error()))
	}
	m.form = components.NewOfficerForm(m.theme)
	m.screen = screenOfficer
	return m, nil
}

func (m *Model) handleOfficerSubmitted(msg components.OfficerSubmittedMsg) (tea.Model, tea.Cmd) {
	if err := m.engine.SubmitOfficer(msg.Name, msg.BadgeNumber); err != nil {
		m.form.SetError(err.Error())
		return m, nil
	}
	m.pinning = components.NewPinningConfirm(m.theme)
	m.screen = screenPinning
	// The geo fix belongs to the moment the officer was identified.
	// Captured off the update path; the session never waits for it.
	return m, m.captureLocationCmd()
}

func (m *Model) handlePinningDecision(msg components.PinningDecisionMsg) (tea.Model, tea.Cmd) {
	status, err := m.engine.ConfirmPinning(context.Background(), msg.Confirmed)
	if err != nil {
		return m, m.notices.Push(components.NewNotice(components.NoticeError, err.Error()))
	}

	m.docs = components.NewDocList(m.theme)
	m.screen = screenDocs

	cmds := []tea.Cmd{m.docs.Init(), m.fetchDocsCmd(), m.watchdogCmd()}
	if msg.Confirmed && status == lockdown.StatusFailed {
		cmds = append(cmds, m.notices.Push(components.NewNotice(
			components.NoticeWarning, "Device pinning did not engage. The session is protected regardless.")))
	}
	return m, tea.Batch(cmds...)
}

// openHistory reads the local spool and renders it for display. Only
// reachable from idle; history is owner-facing, not part of a session.
func (m *Model) openHistory() {
	if m.history == nil {
		m.historyBody = "No access history available."
		m.screen = screenHistory
		return
	}
	entries, tampered, err := m.history.All()
	switch {
	case err != nil:
		m.historyBody = "Could not read the access log: " + err.Error()
	case len(entries) == 0:
		m.historyBody = "No sessions recorded yet."
	default:
		m.historyBody = export.RenderTerminal(entries, m.cfg.UI.WordWrap)
		if tampered > 0 {
			m.historyBody += fmt.Sprintf("\n%d record(s) failed integrity checks and were skipped.", tampered)
		}
	}
	m.screen = screenHistory
}

func (m *Model) openExitVerification() (tea.Model, tea.Cmd) {
	if err := m.engine.RequestExit(); err != nil {
		return m, m.notices.Push(components.NewNotice(components.NoticeError, err.Error()))
	}
	if m.pin == nil {
		m.pin = components.NewPINPrompt(m.theme)
	}
	m.screen = screenExit
	return m, nil
}

func (m *Model) handlePINCancelled() (tea.Model, tea.Cmd) {
	if m.screen == screenOwnerGate {
		m.screen = screenIdle
		return m, nil
	}
	if err := m.engine.CancelExit(); err != nil {
		return m, nil
	}
	m.pin = nil
	m.screen = screenDocs
	return m, nil
}

func (m *Model) handlePINSubmitted(msg components.PINSubmittedMsg) (tea.Model, tea.Cmd) {
	if m.verifying {
		return m, nil
	}
	m.verifying = true

	if m.screen == screenOwnerGate {
		m.gateInput.SetVerifying(true)
		return m, m.ownerGateCmd(msg.PIN)
	}

	m.pin.SetVerifying(true)
	return m, m.verifyCmd(msg.PIN)
}

func (m *Model) handlePINVerdict(msg pinVerdictMsg) (tea.Model, tea.Cmd) {
	m.verifying = false
	m.pin.SetVerifying(false)

	if msg.err != nil {
		// Locked out or invalid state race; render whatever the
		// engine says.
		if m.engine.State() == engine.StateLockedOut {
			m.pin.SetLockout(m.engine.LockoutRemaining())
			return m, m.lockoutTickCmd()
		}
		return m, m.notices.Push(components.NewNotice(components.NoticeError, msg.err.Error()))
	}

	switch msg.res.Outcome {
	case engine.PINGranted:
		m.screen = screenIdle
		m.pin = nil
		m.docs = nil
		m.viewing = nil
		cmds := []tea.Cmd{m.notices.Push(components.NewNotice(
			components.NoticeSuccess, "Session ended. Access was recorded."))}
		if msg.res.LogErr != nil {
			cmds = append(cmds, m.notices.Push(components.NewNotice(
				components.NoticeWarning, "The access record could not be written locally.")))
		}
		return m, tea.Batch(cmds...)

	case engine.PINMismatch:
		m.pin.SetMismatch(msg.res.AttemptsRemaining)
		return m, nil

	case engine.PINLockedOut:
		m.pin.SetLockout(msg.res.LockoutRemaining)
		return m, m.lockoutTickCmd()

	case engine.PINUnavailable:
		m.pin.SetUnavailable()
		return m, nil

	case engine.PINTooShort:
		m.pin.SetError(fmt.Sprintf("PIN must be at least %d characters.", oracle.MinPINLength))
		return m, nil
	}
	return m, nil
}

func (m *Model) handleDocsFetched(msg docsFetchedMsg) (tea.Model, tea.Cmd) {
	if m.docs == nil || m.screen != screenDocs && m.screen != screenExit && m.screen != screenDocView {
		return m, nil
	}
	if msg.err != nil {
		m.docs.SetDegraded("Documents could not be loaded. You can still end the session.")
		return m, nil
	}
	m.docs.SetDocuments(msg.docs)
	return m, nil
}

func (m *Model) handleLockoutTick() (tea.Model, tea.Cmd) {
	reenabled := m.engine.Tick()
	if m.pin != nil {
		m.pin.TickLockout(m.engine.LockoutRemaining())
	}
	if reenabled {
		return m, nil
	}
	if m.engine.State() == engine.StateLockedOut {
		return m, m.lockoutTickCmd()
	}
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// verifyCmd runs one engine PIN submission off the update path. The
// verifying flag guarantees a single submission in flight, so the
// engine is never touched concurrently.
func (m *Model) verifyCmd(pin string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		res, err := eng.SubmitPIN(context.Background(), pin)
		return pinVerdictMsg{res: res, err: err}
	}
}

// ownerGateCmd checks the owner's PIN against the local credential
// before a handover can be armed.
func (m *Model) ownerGateCmd(pin string) tea.Cmd {
	gate := m.gate
	return func() tea.Msg {
		if gate == nil {
			return ownerGateMsg{err: oracle.ErrNotEnrolled}
		}
		ok, err := gate.VerifyPIN(context.Background(), pin)
		return ownerGateMsg{ok: ok, err: err}
	}
}

// captureLocationCmd grabs a geo fix for the access record. Failure
// just means the record carries no location.
func (m *Model) captureLocationCmd() tea.Cmd {
	if m.locator == nil {
		return nil
	}
	locator := m.locator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		loc, err := locator.CurrentLocation(ctx)
		if err != nil {
			return locationFixMsg{}
		}
		return locationFixMsg{loc: loc}
	}
}

// fetchDocsCmd loads the document list with the configured deadline.
func (m *Model) fetchDocsCmd() tea.Cmd {
	if m.fetcher == nil {
		return func() tea.Msg {
			return docsFetchedMsg{err: fmt.Errorf("no vault configured")}
		}
	}
	fetcher := m.fetcher
	ownerID := m.cfg.Owner.UserID
	timeout := m.cfg.DocFetchTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		docs, err := fetcher.FetchDocuments(ctx, ownerID)
		return docsFetchedMsg{docs: docs, err: err}
	}
}

// watchdogCmd bounds how long the document screen may show a loading
// state.
func (m *Model) watchdogCmd() tea.Cmd {
	return tea.Tick(m.cfg.WatchdogInterval(), func(time.Time) tea.Msg {
		return watchdogFiredMsg{}
	})
}

func (m *Model) lockoutTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return lockoutTickMsg(t)
	})
}
