// Package asyncpoll provides a transcription adapter for backends with
// an asynchronous submission API: submit the recording, then poll a
// task id on a fixed interval until it completes or a deadline passes.
package asyncpoll

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a submitted task.
type State int

const (
	// StateSubmitted - Task accepted by the backend, not yet polled.
	StateSubmitted State = iota
	// StatePolling - Task is being polled for a result.
	StatePolling
	// StateCompleted - Task finished with a result.
	StateCompleted
	// StateFailed - Backend reported a permanent failure.
	StateFailed
	// StateTimedOut - Maximum wait elapsed before a result arrived.
	StateTimedOut
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "SUBMITTED"
	case StatePolling:
		return "POLLING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Errors for invalid state transitions.
var (
	ErrTaskTerminal = errors.New("task already in a terminal state")
	ErrNotPolling   = errors.New("task is not in a pollable state")
)

// Tracker manages the state machine for one submitted task.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	SUBMITTED → POLLING → COMPLETED
//	               │
//	               ├──→ FAILED     (backend reports permanent failure)
//	               └──→ TIMED_OUT  (maxWait elapsed)
//
// Isolated poll errors do not transition the state: POLLING stays
// POLLING and the next tick retries, until the deadline decides.
type Tracker struct {
	mu     sync.RWMutex
	taskID string
	state  State
	polls  int
}

// NewTracker creates a tracker for a freshly submitted task.
func NewTracker(taskID string) *Tracker {
	return &Tracker{
		taskID: taskID,
		state:  StateSubmitted,
	}
}

// TaskID returns the backend task identifier.
func (t *Tracker) TaskID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.taskID
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Polls returns how many poll attempts have been recorded.
func (t *Tracker) Polls() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.polls
}

// BeginPolling transitions SUBMITTED → POLLING.
func (t *Tracker) BeginPolling() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateSubmitted:
		t.state = StatePolling
		return nil
	case StatePolling:
		return nil // already polling, idempotent
	default:
		return ErrTaskTerminal
	}
}

// RecordPoll notes one poll attempt. Valid only while polling.
func (t *Tracker) RecordPoll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePolling {
		return ErrNotPolling
	}
	t.polls++
	return nil
}

// Complete transitions POLLING → COMPLETED.
func (t *Tracker) Complete() error {
	return t.finish(StateCompleted)
}

// Fail transitions POLLING → FAILED.
func (t *Tracker) Fail() error {
	return t.finish(StateFailed)
}

// TimeOut transitions POLLING → TIMED_OUT.
func (t *Tracker) TimeOut() error {
	return t.finish(StateTimedOut)
}

func (t *Tracker) finish(terminal State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return ErrTaskTerminal
	}
	t.state = terminal
	return nil
}
