// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"sync/atomic"
)

// State is the lifecycle state of a render task.
//
// Tasks move Pending → Running → one of the terminal states. Idle is
// not represented: a page with no task record is idle.
type State int32

const (
	// StatePending means the task is queued but not yet executing.
	StatePending State = iota + 1
	// StateRunning means the task is drawing into its surface.
	StateRunning
	// StateDone means the render completed and the surface was handed
	// to the display layer.
	StateDone
	// StateCancelled means the task was superseded or the page left
	// the visible window. Never an error condition.
	StateCancelled
	// StateFailed means the render failed after its retry.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateDone:
		return "Done"
	case StateCancelled:
		return "Cancelled"
	case StateFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Priority orders render work. Visible pages block on pool capacity;
// preload work yields instead of competing for it.
type Priority int

const (
	// PriorityVisible is for pages inside the visible window.
	PriorityVisible Priority = iota
	// PriorityPreload is for adjacent pages rendered ahead of need.
	PriorityPreload
)

// Task is one in-flight page render. The scheduler owns the task until
// it reaches a terminal state; on Done, ownership of the rendered
// surface transfers to the display layer through Result.
type Task struct {
	id       uint64
	page     int
	scale    float64
	priority Priority

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the task's unique id.
func (t *Task) ID() uint64 { return t.id }

// Page returns the page index this task renders.
func (t *Task) Page() int { return t.page }

// Scale returns the requested effective scale.
func (t *Task) Scale() float64 { return t.scale }

// State returns the task's current state.
func (t *Task) State() State { return State(t.state.Load()) }

// transition moves the task from one state to another atomically and
// reports success. A failed transition means another party (usually a
// cancel) got there first; the caller must re-check State.
func (t *Task) transition(from, to State) bool {
	return t.state.CompareAndSwap(int32(from), int32(to))
}

// markCancelled is phase one of cancellation: flip any non-terminal
// state to Cancelled so late completions are ignored. Returns true if
// this call performed the flip.
func (t *Task) markCancelled() bool {
	for {
		s := t.State()
		if s.Terminal() {
			return false
		}
		if t.transition(s, StateCancelled) {
			return true
		}
	}
}

// cancelled reports whether the task has been marked cancelled.
func (t *Task) cancelled() bool { return t.State() == StateCancelled }

// PageError is a per-page render failure. It is contained at page
// granularity: the caller shows an inline placeholder for this page
// and other pages are unaffected.
type PageError struct {
	Page int
	Err  error
}

// Error implements error.
func (e *PageError) Error() string {
	return fmt.Sprintf("render: page %d: %v", e.Page, e.Err)
}

// Unwrap returns the underlying failure.
func (e *PageError) Unwrap() error { return e.Err }
