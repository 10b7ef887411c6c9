// Package sched implements a deterministic virtual-time scheduler for
// testing asynchronous code without real threads or wall-clock delays.
//
// Nothing runs on its own: callers enqueue work with Submit or
// ScheduleAfter and then drive execution explicitly with StepOne,
// AdvanceBy, or AdvanceUntilQuiescent. The clock is a logical value that
// moves only when a drive call moves it, so a test expresses "ten seconds
// pass" as one synchronous call.
//
// Determinism is deliberately imperfect in exactly one place: when
// several tasks are eligible at the same instant, the engine picks among
// them uniformly at random, the way a real scheduler gives no ordering
// promise for work that becomes ready simultaneously. The randomness is
// seedable (WithSeed) so an interleaving found by one run can be replayed.
// Tasks at distinct instants always run in instant order.
//
// The engine state is a single immutable snapshot replaced wholesale
// under a mutex. Actions execute with the lock released, so a running
// task may freely submit further work; the task is removed from the
// published state in the same critical section that selects it, so it
// runs at most once.
package sched

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/daviddao/simsched/pkg/task"
)

// CancelFunc removes its task from the pending set if the task has not
// yet run. Calling it after the task ran, or calling it more than once,
// is a no-op; it never affects the clock or other tasks.
type CancelFunc func()

// State is a read-only view of the engine at one instant, for test
// assertions. Mutating a State has no effect on the engine.
type State struct {
	// LastID is the most recently assigned task ID, zero if none yet.
	LastID task.ID

	// Clock is the current virtual time.
	Clock time.Duration

	// Pending is the number of tasks waiting to run.
	Pending int

	// LastFailure is the most recently reported failure, or nil.
	LastFailure error
}

// Quiescent reports whether no tasks remain pending.
func (s State) Quiescent() bool { return s.Pending == 0 }

// Scheduler is a deterministic virtual-time scheduler. Each instance owns
// an independent clock and pending set; construct with New (the zero
// value is not usable). All methods are safe for concurrent use, but no
// method performs background work: code executes only as a direct,
// synchronous consequence of a drive call.
type Scheduler struct {
	mu  sync.Mutex
	st  *state
	rng *rand.Rand

	logger    *slog.Logger
	onFailure func(error)
}

// New constructs an engine. It takes no required configuration; see the
// Option values for seeding the tie-break, logging, and failure hooks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		st:     newState(),
		rng:    rand.New(rand.NewSource(rand.Int63())),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sched")
	return s
}

// Submit enqueues fn to run at the current virtual time, i.e. as soon as
// the engine is next driven.
func (s *Scheduler) Submit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(s.st.clock, fn)
}

// ScheduleAfter enqueues fn to run once the virtual clock reaches now
// plus delay. Negative delays are treated as zero. The returned
// CancelFunc removes the task if it has not run yet.
func (s *Scheduler) ScheduleAfter(delay time.Duration, fn func()) CancelFunc {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	tk := s.insertLocked(s.st.clock+delay, fn)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.st.pending.Get(tk); !ok {
			return // already ran or already canceled
		}
		s.st = s.st.next(func(cp *state) {
			cp.pending.Delete(tk)
		})
		s.logger.Debug("task canceled", "id", uint64(tk.ID))
	}
}

// insertLocked assigns the next ID and publishes a new state containing
// the task. Caller holds mu.
func (s *Scheduler) insertLocked(runsAt time.Duration, fn func()) task.Task {
	tk := task.Task{ID: s.st.lastID + 1, RunsAt: runsAt, Action: fn}
	s.st = s.st.next(func(cp *state) {
		cp.lastID = tk.ID
		cp.pending.ReplaceOrInsert(tk)
	})
	s.logger.Debug("task scheduled", "id", uint64(tk.ID), "runs_at", tk.RunsAt)
	return tk
}

// ReportFailure records err as the engine's most recent failure. The
// record is last-write-wins: a diagnostic convenience, not a queue.
// Tests that need every failure should install a collector through
// WithOnFailure; a FailureLog works well as the target.
func (s *Scheduler) ReportFailure(err error) {
	s.mu.Lock()
	s.st = s.st.next(func(cp *state) { cp.lastFailure = err })
	hook := s.onFailure
	s.mu.Unlock()

	s.logger.Debug("failure reported", "err", err)
	if hook != nil {
		hook(err)
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clock
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.pending.Len()
}

// Snapshot returns a read-only view of the engine for test assertions.
func (s *Scheduler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		LastID:      s.st.lastID,
		Clock:       s.st.clock,
		Pending:     s.st.pending.Len(),
		LastFailure: s.st.lastFailure,
	}
}

// StepOne executes at most one task eligible at the current clock,
// without advancing time, and reports whether one executed. A panic
// inside the action is captured via ReportFailure and StepOne still
// returns true. Calling StepOne until it returns false is equivalent to
// AdvanceBy(0).
func (s *Scheduler) StepOne() bool {
	s.mu.Lock()
	pick, ok := s.st.pickEligible(s.rng, s.st.clock)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.st = s.st.next(func(cp *state) {
		cp.pending.Delete(pick)
	})
	s.mu.Unlock()

	s.run(pick)
	return true
}

// AdvanceBy moves the virtual clock forward by d, executing every task
// that falls due on the way. The clock lands on each executed task's
// instant just before its action runs, and always ends exactly at the
// starting clock plus d whether or not anything executed. Work enqueued
// by an executing task is itself run if it falls at or before the target.
// Negative d is treated as zero.
func (s *Scheduler) AdvanceBy(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	target := s.st.clock + d
	for {
		pick, ok := s.st.pickEligible(s.rng, target)
		if !ok {
			break
		}
		s.st = s.st.next(func(cp *state) {
			cp.clock = pick.RunsAt
			cp.pending.Delete(pick)
		})
		s.mu.Unlock()
		s.run(pick)
		s.mu.Lock()
	}
	s.st = s.st.next(func(cp *state) {
		// A concurrent drive may already have moved past target; the
		// clock never rewinds.
		if target > cp.clock {
			cp.clock = target
		}
	})
	s.mu.Unlock()
	s.logger.Debug("clock advanced", "clock", target)
}

// AdvanceUntilQuiescent advances by d, then keeps advancing by d again
// for as long as tasks remain pending, returning once the pending set is
// empty. This drains chains where executing one task enqueues the next.
// A task set that perpetually reschedules itself makes this call loop
// forever; that is the documented behavior, since bounding the loop here
// would silently change the meaning of tests built on it.
func (s *Scheduler) AdvanceUntilQuiescent(d time.Duration) {
	for {
		s.AdvanceBy(d)
		if s.Len() == 0 {
			return
		}
	}
}

// run executes a task's action with the engine lock released, routing any
// panic through ReportFailure. The drive call that triggered it always
// returns normally.
func (s *Scheduler) run(tk task.Task) {
	s.logger.Debug("task running", "id", uint64(tk.ID), "runs_at", tk.RunsAt)
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("task %d panicked: %v", tk.ID, r)
			}
			s.ReportFailure(err)
		}
	}()
	tk.Action()
}

// Ref is a narrowed engine handle exposing only work submission and
// failure reporting, for components that should not be able to drive the
// engine or inspect its state.
type Ref struct {
	s *Scheduler
}

// Derive returns a Ref sharing this engine's state.
func (s *Scheduler) Derive() *Ref { return &Ref{s: s} }

// Submit enqueues fn at the current virtual time.
func (r *Ref) Submit(fn func()) { r.s.Submit(fn) }

// ReportFailure records err as the engine's most recent failure.
func (r *Ref) ReportFailure(err error) { r.s.ReportFailure(err) }
