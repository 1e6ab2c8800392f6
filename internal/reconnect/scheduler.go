package reconnect

import (
	"log/slog"
	"sync"
	"time"

	"github.com/spotiflac/pushclient/internal/clock"
)

// Scheduler decides whether and when to re-establish a session after an
// unexpected close.
type Scheduler struct {
	policy Policy
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	delay    time.Duration
	timer    *clock.Timer
	epoch    uint64
	active   bool // false until Start, false again after Cancel
}

// NewScheduler creates a scheduler in the Idle state. A nil clock uses
// the real clock; a nil logger uses slog.Default().
//
// Transition methods never call back into the owner while holding the
// scheduler lock, so owners may call them under their own lock. The
// only callback is the fire func passed to Disconnected, which runs on
// the timer's goroutine with no lock held.
func NewScheduler(policy Policy, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = DefaultPolicy().InitialDelay
	}
	if policy.MaxDelay > 0 && policy.MaxDelay < policy.InitialDelay {
		policy.MaxDelay = policy.InitialDelay
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		policy: policy,
		clock:  clk,
		logger: logger,
		state:  Idle,
		delay:  policy.InitialDelay,
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current backoff state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Attempts: s.attempts, NextDelay: s.delay}
}

// Start arms the scheduler for a manual open. Coming from Idle or
// Exhausted, the attempt counter and delay are reset so the manual open
// begins a fresh backoff cycle.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	if s.state != Idle && s.state != Exhausted {
		return
	}
	s.stopTimerLocked()
	s.attempts = 0
	s.delay = s.policy.InitialDelay
}

// Connected records a successful open: attempts and delay reset, any
// armed timer is cancelled. It returns the previous state.
func (s *Scheduler) Connected() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.stopTimerLocked()
	s.attempts = 0
	s.delay = s.policy.InitialDelay
	return s.transitionLocked(Connected)
}

// Disconnected records an abnormal close or a failed dial. If attempts
// remain, a timer is armed for the current delay and fire is invoked
// when it expires; otherwise the scheduler moves to Exhausted.
//
// Before Start or after Cancel it does nothing: an intentional close
// never schedules a reconnect. It returns the previous and new states.
func (s *Scheduler) Disconnected(fire func()) (from, to State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return s.state, s.state
	}

	s.stopTimerLocked()

	if s.policy.MaxAttempts > 0 && s.attempts >= s.policy.MaxAttempts {
		s.logger.Error("max reconnection attempts reached", "attempts", s.attempts)
		return s.transitionLocked(Exhausted), Exhausted
	}

	s.attempts++
	wait := s.delay
	attempt := s.attempts
	epoch := s.epoch
	s.delay = s.policy.next(s.delay)
	from = s.transitionLocked(Scheduled)

	s.timer = s.clock.AfterFunc(wait, func() {
		s.mu.Lock()
		stale := !s.active || s.epoch != epoch || s.state != Scheduled
		s.mu.Unlock()
		if stale {
			return
		}
		s.logger.Info("reconnecting", "attempt", attempt)
		fire()
	})

	s.logger.Info("reconnect scheduled", "attempt", attempt, "delay", wait)
	return from, Scheduled
}

// Cancel records an intentional close. The armed timer is stopped before
// Cancel returns, and a timer that already fired but has not yet run its
// callback is neutralised. It returns the previous state.
func (s *Scheduler) Cancel() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.stopTimerLocked()
	return s.transitionLocked(Idle)
}

// stopTimerLocked cancels the armed timer and invalidates callbacks that
// are already running. Caller holds s.mu.
func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
}

func (s *Scheduler) transitionLocked(to State) State {
	from := s.state
	s.state = to
	return from
}
