package reconnect

import (
	"fmt"
	"math"
	"time"
)

// State is the scheduler's position in the reconnect state machine.
type State int

const (
	// Idle means no session and no timer. Initial state, and the state
	// after an intentional close.
	Idle State = iota
	// Connected means a session is live.
	Connected
	// Scheduled means a reconnect timer is armed or its dial is running.
	Scheduled
	// Exhausted means the attempt cap was reached. Only a manual open
	// leaves this state.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case Scheduled:
		return "scheduled"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy bounds the exponential backoff.
type Policy struct {
	InitialDelay time.Duration // Wait before the first reconnect attempt
	MaxDelay     time.Duration // Upper bound for any single wait
	MaxAttempts  int           // Reconnect attempts before giving up (<= 0 = unlimited)
}

// DefaultPolicy returns 1s doubling to 30s, ten attempts.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  10,
	}
}

// Delay returns the wait before the n-th (0-based) consecutive reconnect
// attempt: min(InitialDelay * 2^n, MaxDelay).
func (p Policy) Delay(n int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < n && (p.MaxDelay <= 0 || d < p.MaxDelay); i++ {
		d = p.next(d)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) next(d time.Duration) time.Duration {
	if d > math.MaxInt64/2 {
		return d
	}
	d *= 2
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Snapshot is a point-in-time copy of the scheduler's backoff state.
type Snapshot struct {
	State     State
	Attempts  int           // Reconnect attempts since the last successful open
	NextDelay time.Duration // Wait that the next scheduled attempt will use
}
