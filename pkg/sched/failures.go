package sched

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// FailureLog collects every failure reported to it, unlike the engine's
// last-failure field which keeps only the most recent one. The zero value
// is ready to use. Install it with WithOnFailure(log.Report), or have
// task actions call Report directly.
type FailureLog struct {
	mu   sync.Mutex
	errs *multierror.Error
}

// Report appends err to the log. Nil errors are ignored.
func (l *FailureLog) Report(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = multierror.Append(l.errs, err)
}

// Err returns all collected failures as a single error, or nil if none
// were reported.
func (l *FailureLog) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errs.ErrorOrNil()
}

// Len returns the number of collected failures.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errs == nil {
		return 0
	}
	return len(l.errs.Errors)
}
