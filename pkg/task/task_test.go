package task

import (
	"sort"
	"testing"
	"time"
)

func TestLess_ByRunsAt(t *testing.T) {
	a := Task{ID: 2, RunsAt: 5 * time.Second}
	b := Task{ID: 1, RunsAt: 10 * time.Second}
	if !a.Less(b) {
		t.Fatalf("earlier RunsAt should order first regardless of ID")
	}
	if b.Less(a) {
		t.Fatalf("later RunsAt must not order first")
	}
}

func TestLess_TieBrokenByID(t *testing.T) {
	a := Task{ID: 1, RunsAt: 5 * time.Second}
	b := Task{ID: 2, RunsAt: 5 * time.Second}
	if !a.Less(b) {
		t.Fatalf("same instant: lower ID should order first")
	}
	if b.Less(a) {
		t.Fatalf("same instant: higher ID must not order first")
	}
}

func TestLess_Irreflexive(t *testing.T) {
	a := Task{ID: 7, RunsAt: 3 * time.Second}
	if a.Less(a) {
		t.Fatalf("a task must not order before itself")
	}
}

func TestLess_NegativeInstants(t *testing.T) {
	a := Task{ID: 2, RunsAt: -10 * time.Second}
	b := Task{ID: 1, RunsAt: 0}
	if !a.Less(b) {
		t.Fatalf("negative instant should order before zero")
	}
}

func TestLess_IgnoresAction(t *testing.T) {
	a := Task{ID: 1, RunsAt: time.Second, Action: func() {}}
	b := Task{ID: 2, RunsAt: time.Second, Action: nil}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("ordering should depend only on (RunsAt, ID)")
	}
}

func TestLess_SortsTotalOrder(t *testing.T) {
	tasks := []Task{
		{ID: 4, RunsAt: 2 * time.Second},
		{ID: 1, RunsAt: 9 * time.Second},
		{ID: 3, RunsAt: 2 * time.Second},
		{ID: 2, RunsAt: -1 * time.Second},
		{ID: 5, RunsAt: 9 * time.Second},
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Less(tasks[j]) })

	wantIDs := []ID{2, 3, 4, 1, 5}
	for i, tk := range tasks {
		if tk.ID != wantIDs[i] {
			t.Fatalf("position %d: got ID %d, want %d", i, tk.ID, wantIDs[i])
		}
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].RunsAt < tasks[i-1].RunsAt {
			t.Fatalf("RunsAt not nondecreasing at position %d", i)
		}
	}
}
