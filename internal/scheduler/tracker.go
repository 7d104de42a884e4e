/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

// BlockState is the remembered outcome of the previous evaluation.
type BlockState int

const (
	Idle BlockState = iota
	Blocking
)

func (s BlockState) String() string {
	if s == Blocking {
		return "blocking"
	}
	return "idle"
}

// Transition is the edge observed between two evaluations.
type Transition int

const (
	NoTransition Transition = iota
	Entered                 // Idle -> Blocking
	Exited                  // Blocking -> Idle
)

func (t Transition) String() string {
	switch t {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "none"
	}
}

// Tracker turns the per-tick blocking level into edges. It is owned by a
// single goroutine and is not safe for concurrent use.
type Tracker struct {
	state  BlockState
	primed bool
}

// NewTracker returns a tracker in the Idle state. With skipColdStart the first
// observation only sets the state and never reports a transition.
func NewTracker(skipColdStart bool) *Tracker {
	return &Tracker{primed: !skipColdStart}
}

// State returns the current state.
func (t *Tracker) State() BlockState { return t.state }

// Observe records the latest evaluation and reports the resulting edge.
func (t *Tracker) Observe(blocking bool) Transition {
	next := Idle
	if blocking {
		next = Blocking
	}

	if !t.primed {
		t.primed = true
		t.state = next
		return NoTransition
	}

	prev := t.state
	t.state = next
	switch {
	case prev == Idle && next == Blocking:
		return Entered
	case prev == Blocking && next == Idle:
		return Exited
	default:
		return NoTransition
	}
}
