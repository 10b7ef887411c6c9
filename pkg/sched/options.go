package sched

import (
	"log/slog"
	"math/rand"
)

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithSeed seeds the tie-break random source, making the interleaving of
// same-instant tasks reproducible across runs.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand supplies the tie-break random source directly. The engine
// serializes access through its own lock, so the source needs no locking,
// but it must not be shared with another engine.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithLogger enables logging of scheduling decisions and clock movement.
// The engine logs at debug level only; the default logger discards
// everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithOnFailure installs a hook invoked for every reported failure, in
// addition to the last-failure record. The hook runs outside the engine
// lock and may call back into the engine.
func WithOnFailure(fn func(error)) Option {
	return func(s *Scheduler) { s.onFailure = fn }
}
