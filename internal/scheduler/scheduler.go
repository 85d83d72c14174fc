// Package scheduler arms a single-shot timer for 23:59:59 of the current
// calendar day and, when auto-restart is enabled, a second one shortly after
// midnight. At most one force-stop timer is ever pending: arming cancels
// before scheduling, and a cancelled timer never runs its callback.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hbeckers/punchd/internal/clock"
	"github.com/hbeckers/punchd/internal/config"
)

// newDayGrace is how far past midnight the restart callback lands, safely
// inside the new calendar day even with a slightly skewed clock.
const newDayGrace = 5 * time.Second

// Tracker is the subset of tracker operations the timers invoke.
type Tracker interface {
	StopAtMidnight(ctx context.Context) error
	StartNewDay(ctx context.Context) error
}

type Scheduler struct {
	clk         clock.Clock
	tracker     Tracker
	autoRestart func() bool

	mu         sync.Mutex
	generation uint64
	stopTimer  *time.Timer
	startTimer *time.Timer
}

// New creates a disarmed scheduler. autoRestart is consulted when the
// force-stop fires, so a preference change takes effect without rearming.
func New(clk clock.Clock, tracker Tracker, autoRestart func() bool) *Scheduler {
	return &Scheduler{
		clk:         clk,
		tracker:     tracker,
		autoRestart: autoRestart,
	}
}

// Arm schedules the force-stop for 23:59:59 today, cancelling any previously
// pending timers first.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	remaining := clock.UntilDayEnd(s.clk)
	if remaining <= 0 {
		// The boundary has already passed; a timer with a non-positive
		// delay would fire immediately and close the wrong day.
		log.Warn().Dur("remaining", remaining).Msg("day end already passed, not arming force-stop")
		return
	}

	gen := s.generation
	s.stopTimer = time.AfterFunc(remaining, func() { s.onDayEnd(gen) })
	log.Debug().Dur("in", remaining).Msg("force-stop timer armed")
}

// Disarm cancels both timers. Idempotent.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
}

// cancelLocked invalidates the current generation so an already-fired
// callback that lost the race to the lock becomes a no-op.
func (s *Scheduler) cancelLocked() {
	s.generation++
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
	if s.startTimer != nil {
		s.startTimer.Stop()
		s.startTimer = nil
	}
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

func (s *Scheduler) onDayEnd(gen uint64) {
	if !s.current(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TimerOperationTimeout)
	defer cancel()

	if err := s.tracker.StopAtMidnight(ctx); err != nil {
		// Surfaced through the tracker; deliberately no reschedule, a
		// persistent failure would otherwise hammer the remote service.
		log.Error().Err(err).Msg("day-boundary stop failed")
		return
	}

	if s.autoRestart == nil || !s.autoRestart() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	// Fired at ~23:59:59; wait out the rest of the day plus a grace margin
	// so the new entry lands on the new calendar date.
	remaining := clock.UntilDayEnd(s.clk)
	if remaining < 0 {
		remaining = 0
	}
	delay := remaining + time.Second + newDayGrace

	s.startTimer = time.AfterFunc(delay, func() { s.onNewDay(gen) })
	log.Debug().Dur("in", delay).Msg("new-day restart timer armed")
}

func (s *Scheduler) onNewDay(gen uint64) {
	if !s.current(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TimerOperationTimeout)
	defer cancel()

	// A successful start arms the force-stop timer for the new day via the
	// tracker's normal start path.
	if err := s.tracker.StartNewDay(ctx); err != nil {
		log.Error().Err(err).Msg("new-day restart failed")
	}
}
