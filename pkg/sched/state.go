package sched

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/btree"

	"github.com/daviddao/simsched/pkg/task"
)

// startOfTime is the initial virtual clock reading. It sits deep in the
// negative range so that delay arithmetic has headroom on both sides of
// the epoch during long property-test runs.
const startOfTime = time.Duration(math.MinInt64 / 2)

// tiePool bounds how many same-instant tasks enter the randomized
// tie-break. Ten covers realistic levels of simultaneous readiness while
// keeping each draw cheap.
const tiePool = 10

// btreeDegree is small because test harnesses rarely keep more than a
// handful of tasks in flight.
const btreeDegree = 2

// state is one engine snapshot. The engine holds exactly one state at a
// time and replaces it wholesale under its mutex; a state is never
// mutated after construction. The pending tree is copy-on-write (btree
// Clone), so deriving the next state is cheap regardless of size.
type state struct {
	lastID      task.ID
	clock       time.Duration
	pending     *btree.BTreeG[task.Task]
	lastFailure error
}

func newState() *state {
	return &state{
		clock:   startOfTime,
		pending: btree.NewG[task.Task](btreeDegree, task.Task.Less),
	}
}

// next derives a fresh state from st: mutate runs against an independent
// copy, which is invariant-checked and returned. st itself is untouched.
func (st *state) next(mutate func(*state)) *state {
	cp := &state{
		lastID:      st.lastID,
		clock:       st.clock,
		pending:     st.pending.Clone(),
		lastFailure: st.lastFailure,
	}
	mutate(cp)
	cp.check()
	return cp
}

// check enforces the core invariant: no pending task is scheduled before
// the clock. A violation is a bug in the engine's own transition logic,
// never a user error, so it aborts loudly instead of being swallowed.
func (st *state) check() {
	if earliest, ok := st.pending.Min(); ok && earliest.RunsAt < st.clock {
		panic(fmt.Sprintf("sched: pending task %d at %v predates clock %v",
			earliest.ID, earliest.RunsAt, st.clock))
	}
}

// pickEligible selects, without removing, one task whose RunsAt is at or
// before target. Selection is uniform over the earliest-instant
// candidates, capped at tiePool; a task at a later instant is never
// considered while an earlier instant still has work, so only same-instant
// ties are ever reordered.
func (st *state) pickEligible(rng *rand.Rand, target time.Duration) (task.Task, bool) {
	earliest, ok := st.pending.Min()
	if !ok || earliest.RunsAt > target {
		return task.Task{}, false
	}

	candidates := make([]task.Task, 0, tiePool)
	st.pending.Ascend(func(t task.Task) bool {
		if t.RunsAt != earliest.RunsAt || len(candidates) == tiePool {
			return false
		}
		candidates = append(candidates, t)
		return true
	})
	return candidates[rng.Intn(len(candidates))], true
}
