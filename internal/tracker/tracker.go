// Package tracker drives the clock-in session state machine: start, stop,
// crash recovery, daily-total sync, and the forced stop at the day boundary.
// All state transitions are funneled through one operation mutex, so a timer
// callback racing a user command resolves to whoever acquires it first; the
// loser observes the post-state and becomes a no-op.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hbeckers/punchd/internal/clock"
	apperrors "github.com/hbeckers/punchd/internal/errors"
	"github.com/hbeckers/punchd/internal/model"
	"github.com/hbeckers/punchd/internal/store"
)

// Gateway is the remote attendance service surface the tracker depends on.
type Gateway interface {
	CreateOpenEntry(ctx context.Context, employeeID, date, startTime string) (string, error)
	CloseEntry(ctx context.Context, entryID, endTime string, breakMinutes int) error
	ListEntries(ctx context.Context, employeeID, startDate, endDate string) ([]model.AttendanceRecord, error)
}

// SessionStore is the durable local state the tracker keeps consistent with
// its in-memory session.
type SessionStore interface {
	EmployeeID(ctx context.Context) (string, error)
	ActiveSession(ctx context.Context) (*model.Session, error)
	SaveActiveSession(ctx context.Context, session model.Session) error
	ClearActiveSession(ctx context.Context) error
}

// CredentialSource reports whether API credentials exist; nil means
// unconfigured.
type CredentialSource interface {
	Load() (*store.Credentials, error)
}

// Scheduler is armed while a session runs and disarmed when it stops.
type Scheduler interface {
	Arm()
	Disarm()
}

// Status is the snapshot exposed to the presentation layer.
type Status struct {
	State             model.TrackerState  `json:"state"`
	Running           bool                `json:"running"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	ElapsedSeconds    int                 `json:"elapsed_seconds"`
	TodayTotalMinutes int                 `json:"today_total_minutes"`
	InFlight          bool                `json:"in_flight"`
	LastError         *apperrors.AppError `json:"last_error,omitempty"`
}

type Tracker struct {
	gateway Gateway
	store   SessionStore
	creds   CredentialSource
	clk     clock.Clock
	sched   Scheduler

	// opMu serializes operations end to end, including their network I/O.
	// mu guards the snapshot fields so Status never blocks behind opMu.
	opMu sync.Mutex
	mu   sync.RWMutex

	state      model.TrackerState
	session    *model.Session
	todayTotal int
	lastErr    *apperrors.AppError
	inFlight   bool
}

func New(gateway Gateway, sessionStore SessionStore, creds CredentialSource, clk clock.Clock) *Tracker {
	return &Tracker{
		gateway: gateway,
		store:   sessionStore,
		creds:   creds,
		clk:     clk,
		state:   model.StateRecovering,
	}
}

// SetScheduler wires the day-boundary scheduler. Set once during startup,
// before any operation runs; the tracker and scheduler reference each other,
// so one side has to be attached after construction.
func (t *Tracker) SetScheduler(sched Scheduler) {
	t.sched = sched
}

// Start begins tracking. No-op when already running. If the remote service
// already holds an open entry for today it is adopted instead of duplicated,
// which guards against a double start after a missed stop.
func (t *Tracker) Start(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.currentState() == model.StateRunning {
		log.Debug().Msg("start requested while already running")
		return nil
	}

	employeeID, err := t.ensureConfigured(ctx)
	if err != nil {
		t.settle(model.StateUnconfigured, err)
		return err
	}

	t.enterPhase(model.StateStarting)
	today := clock.Today(t.clk)

	records, err := t.gateway.ListEntries(ctx, employeeID, today, today)
	if err != nil {
		t.settle(model.StateIdle, err)
		return err
	}

	for _, record := range records {
		if record.IsOpen() {
			startAt, perr := record.StartInstant(t.clk.Location())
			if perr != nil {
				startAt = t.clk.Now()
			}
			log.Info().Str("entryId", record.ID).Msg("adopting existing open attendance entry")
			return t.commitRunning(ctx, model.Session{AttendanceID: record.ID, StartTime: startAt})
		}
	}

	now := t.clk.Now().In(t.clk.Location())
	entryID, err := t.gateway.CreateOpenEntry(ctx, employeeID, today, now.Format(model.ClockFormat))
	if err != nil {
		t.settle(model.StateIdle, err)
		return err
	}

	return t.commitRunning(ctx, model.Session{AttendanceID: entryID, StartTime: now})
}

// Stop closes the running session at the current time. No-op when not
// running. On gateway failure the session and its persisted state are kept
// so the user can retry.
func (t *Tracker) Stop(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.currentState() != model.StateRunning {
		log.Debug().Msg("stop requested while not running")
		return nil
	}

	t.enterPhase(model.StateStopping)

	persisted, err := t.store.ActiveSession(ctx)
	if err != nil {
		appErr := apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read persisted session", err)
		t.settle(model.StateRunning, appErr)
		return appErr
	}

	if persisted == nil {
		// Running with no persisted id is a local-state bug; nothing a
		// retry could fix, so treat it as already stopped.
		log.Warn().Msg("running session has no persisted attendance id, clearing local state")
		if err := t.store.ClearActiveSession(ctx); err != nil {
			log.Error().Err(err).Msg("failed to clear inconsistent session state")
		}
		t.settleIdle()
		if t.sched != nil {
			t.sched.Disarm()
		}
		return nil
	}

	endTime := t.clk.Now().In(t.clk.Location()).Format(model.ClockFormat)
	if err := t.gateway.CloseEntry(ctx, persisted.AttendanceID, endTime, 0); err != nil {
		t.settle(model.StateRunning, err)
		return err
	}

	if err := t.store.ClearActiveSession(ctx); err != nil {
		log.Error().Err(err).Msg("failed to clear persisted session after stop")
	}
	t.settleIdle()
	if t.sched != nil {
		t.sched.Disarm()
	}

	log.Info().
		Str("entryId", persisted.AttendanceID).
		Str("endTime", endTime).
		Msg("session stopped")

	if err := t.syncTotalFor(ctx, t.mustEmployeeID(ctx)); err != nil {
		log.Warn().Err(err).Msg("total resync after stop failed")
	}
	return nil
}

// RecoverState reconciles persisted session state against the remote service
// after a restart. A persisted session from a previous calendar day is
// discarded without a remote call; a network failure leaves the persisted
// state untouched and reports RecoveryInconclusive.
func (t *Tracker) RecoverState(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.enterPhase(model.StateRecovering)

	persisted, err := t.store.ActiveSession(ctx)
	if err != nil {
		appErr := apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read persisted session", err)
		t.settle(model.StateRecovering, appErr)
		return appErr
	}

	if persisted == nil {
		return t.finishRecoveryIdle(ctx)
	}

	if !clock.SameDay(t.clk, persisted.StartTime) {
		log.Info().
			Time("startedAt", persisted.StartTime).
			Msg("discarding persisted session from a previous day")
		if err := t.store.ClearActiveSession(ctx); err != nil {
			log.Error().Err(err).Msg("failed to discard stale session")
		}
		return t.finishRecoveryIdle(ctx)
	}

	employeeID, err := t.ensureConfigured(ctx)
	if err != nil {
		t.settle(model.StateUnconfigured, err)
		return err
	}

	today := clock.Today(t.clk)
	records, err := t.gateway.ListEntries(ctx, employeeID, today, today)
	if err != nil {
		// Neither confirmed nor discarded: keep the persisted session so a
		// later sync can still resolve it, and report an unknown state.
		appErr := apperrors.RecoveryInconclusive(err)
		t.settle(model.StateRecovering, appErr)
		log.Warn().Err(err).Msg("recovery query failed, keeping persisted session")
		return appErr
	}

	var match *model.AttendanceRecord
	for i := range records {
		if records[i].ID == persisted.AttendanceID {
			match = &records[i]
			break
		}
	}

	switch {
	case match != nil && match.IsOpen():
		t.commitRecovered(*persisted)
	case match != nil:
		log.Info().Str("entryId", persisted.AttendanceID).Msg("persisted session was closed out-of-band, discarding")
		if err := t.store.ClearActiveSession(ctx); err != nil {
			log.Error().Err(err).Msg("failed to discard closed session")
		}
		t.settleIdle()
	default:
		log.Info().Str("entryId", persisted.AttendanceID).Msg("persisted session no longer exists remotely, discarding")
		if err := t.store.ClearActiveSession(ctx); err != nil {
			log.Error().Err(err).Msg("failed to discard deleted session")
		}
		t.settleIdle()
	}

	t.publishTotal(records)
	return nil
}

// SyncTodayTotal queries all of today's entries and publishes the summed
// minutes of the closed ones. Safe in any state, including mid-session.
func (t *Tracker) SyncTodayTotal(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	employeeID, err := t.ensureConfigured(ctx)
	if err != nil {
		t.setLastError(err)
		return err
	}
	return t.syncTotalFor(ctx, employeeID)
}

// StopAtMidnight closes the running session at 23:59 of its own day, never
// "now", so a timer firing seconds late cannot produce a day-spanning entry.
// Invoked by the scheduler; no-op when not running. A failure is surfaced
// and deliberately not retried.
func (t *Tracker) StopAtMidnight(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.currentState() != model.StateRunning {
		return nil
	}

	session := t.currentSession()
	t.enterPhase(model.StateStopping)

	if err := t.gateway.CloseEntry(ctx, session.AttendanceID, clock.ForceStopClock, 0); err != nil {
		t.settle(model.StateRunning, err)
		log.Error().
			Err(err).
			Str("entryId", session.AttendanceID).
			Msg("forced day-boundary stop failed, session left running")
		return err
	}

	if err := t.store.ClearActiveSession(ctx); err != nil {
		log.Error().Err(err).Msg("failed to clear persisted session after forced stop")
	}
	t.settleIdle()

	log.Info().
		Str("entryId", session.AttendanceID).
		Str("endTime", clock.ForceStopClock).
		Msg("session force-stopped at day boundary")
	return nil
}

// StartNewDay is the scheduler's post-midnight restart. Identical to Start,
// including the no-op when a session is already running.
func (t *Tracker) StartNewDay(ctx context.Context) error {
	return t.Start(ctx)
}

// Status returns a snapshot for the presentation layer. Served from the
// snapshot lock so it never waits on an in-flight network operation.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := Status{
		State:             t.state,
		Running:           t.state == model.StateRunning,
		TodayTotalMinutes: t.todayTotal,
		InFlight:          t.inFlight,
		LastError:         t.lastErr,
	}
	if t.session != nil {
		startedAt := t.session.StartTime
		status.StartedAt = &startedAt
		if status.Running {
			elapsed := int(t.clk.Now().Sub(startedAt).Seconds())
			if elapsed < 0 {
				elapsed = 0
			}
			status.ElapsedSeconds = elapsed
		}
	}
	return status
}

// ensureConfigured fails fast before any network call when credentials or
// the employee id are missing.
func (t *Tracker) ensureConfigured(ctx context.Context) (string, error) {
	employeeID, err := t.store.EmployeeID(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read employee id", err)
	}
	if employeeID == "" {
		return "", apperrors.NotConfigured("Employee id is not configured")
	}

	creds, err := t.creds.Load()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to load credentials", err)
	}
	if creds == nil {
		return "", apperrors.NotConfigured("API credentials are not configured")
	}
	return employeeID, nil
}

func (t *Tracker) commitRunning(ctx context.Context, session model.Session) error {
	if err := t.store.SaveActiveSession(ctx, session); err != nil {
		// The remote entry already exists; a lost persisted pair only
		// degrades crash recovery, so keep tracking and surface the error.
		appErr := apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to persist session", err)
		t.setRunning(session)
		t.setLastError(appErr)
		if t.sched != nil {
			t.sched.Arm()
		}
		return appErr
	}

	t.setRunning(session)
	if t.sched != nil {
		t.sched.Arm()
	}

	log.Info().
		Str("entryId", session.AttendanceID).
		Time("startedAt", session.StartTime).
		Msg("session running")
	return nil
}

func (t *Tracker) commitRecovered(session model.Session) {
	t.setRunning(session)
	if t.sched != nil {
		t.sched.Arm()
	}
	log.Info().
		Str("entryId", session.AttendanceID).
		Time("startedAt", session.StartTime).
		Msg("recovered running session")
}

func (t *Tracker) finishRecoveryIdle(ctx context.Context) error {
	employeeID, err := t.ensureConfigured(ctx)
	if err != nil {
		t.settle(model.StateUnconfigured, err)
		return nil
	}
	t.settleIdle()
	if err := t.syncTotalFor(ctx, employeeID); err != nil {
		log.Warn().Err(err).Msg("total resync during recovery failed")
	}
	return nil
}

func (t *Tracker) syncTotalFor(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return nil
	}
	today := clock.Today(t.clk)

	records, err := t.gateway.ListEntries(ctx, employeeID, today, today)
	if err != nil {
		appErr := toAppError(err)
		t.setLastError(appErr)
		return appErr
	}

	t.publishTotal(records)

	t.mu.Lock()
	t.lastErr = nil
	t.mu.Unlock()
	return nil
}

func (t *Tracker) mustEmployeeID(ctx context.Context) string {
	employeeID, err := t.store.EmployeeID(ctx)
	if err != nil {
		return ""
	}
	return employeeID
}

func (t *Tracker) publishTotal(records []model.AttendanceRecord) {
	total := 0
	for _, record := range records {
		total += record.DurationMinutes()
	}

	t.mu.Lock()
	t.todayTotal = total
	t.mu.Unlock()

	log.Debug().Int("minutes", total).Msg("today total updated")
}

// snapshot helpers

func (t *Tracker) currentState() model.TrackerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tracker) currentSession() model.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.session == nil {
		return model.Session{}
	}
	return *t.session
}

func (t *Tracker) enterPhase(state model.TrackerState) {
	t.mu.Lock()
	t.state = state
	t.inFlight = true
	t.mu.Unlock()
}

func (t *Tracker) setRunning(session model.Session) {
	t.mu.Lock()
	t.state = model.StateRunning
	t.session = &session
	t.inFlight = false
	t.lastErr = nil
	t.mu.Unlock()
}

func (t *Tracker) settleIdle() {
	t.mu.Lock()
	t.state = model.StateIdle
	t.session = nil
	t.inFlight = false
	t.lastErr = nil
	t.mu.Unlock()
}

// settle records a failed operation: the state machine returns to the given
// stable state and the error becomes visible to the presentation layer.
func (t *Tracker) settle(state model.TrackerState, err error) {
	appErr := toAppError(err)
	t.mu.Lock()
	t.state = state
	t.inFlight = false
	t.lastErr = appErr
	t.mu.Unlock()
}

func (t *Tracker) setLastError(err error) {
	appErr := toAppError(err)
	t.mu.Lock()
	t.inFlight = false
	t.lastErr = appErr
	t.mu.Unlock()
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrCodeInternal, "Unexpected error", err)
}
