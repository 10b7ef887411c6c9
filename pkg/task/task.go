// Package task defines the unit of scheduled work and the total order
// over pending work.
//
// Pending tasks are ordered first by the virtual instant at which they
// become eligible to run (RunsAt, ascending) and then by creation ID
// (ascending). Because IDs are unique within an engine, this is a strict
// total order: no two distinct tasks compare equal. That property is what
// lets the pending collection be a sorted set rather than a list, with
// efficient minimum and remove-by-identity operations.
package task

import "time"

// ID identifies a task within one engine. IDs are assigned from a
// monotonically increasing counter at creation and never reused. An ID is
// an ordering tie-breaker only; it carries no other meaning.
type ID uint64

// Task is a unit of pending work: a zero-argument action plus the virtual
// instant at or after which it may run. ID and RunsAt are fixed at
// creation and must not be changed afterwards.
type Task struct {
	// ID is the creation-order tie-breaker.
	ID ID

	// RunsAt is the virtual instant (a signed offset from an arbitrary
	// epoch) at or after which the task becomes eligible.
	RunsAt time.Duration

	// Action is the work itself.
	Action func()
}

// Less reports whether t orders strictly before other: earlier RunsAt
// first, ties broken by lower ID. Action takes no part in the comparison,
// so a task's position in the order is fixed at creation and removal by
// identity needs only (RunsAt, ID).
func (t Task) Less(other Task) bool {
	if t.RunsAt != other.RunsAt {
		return t.RunsAt < other.RunsAt
	}
	return t.ID < other.ID
}
