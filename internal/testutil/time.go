// Package testutil provides deterministic helpers for tests:
// sequential time sources, fixed id generators, and a fluent operation
// builder.
package testutil

import (
	"sync"
	"time"
)

// SeqTime is a deterministic time source: a fixed UTC base advancing a
// fixed step on every call. Plugging it into txlog.WithTimeSource makes
// recorded timestamps and durations reproducible.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type SeqTime struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// Base is the default starting instant for sequential time sources.
var Base = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewSeqTime creates a time source starting at base and advancing by
// step per call. A zero base starts at Base.
func NewSeqTime(base time.Time, step time.Duration) *SeqTime {
	if base.IsZero() {
		base = Base
	}
	return &SeqTime{next: base, step: step}
}

// Now returns the next instant and advances the source.
func (s *SeqTime) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next = s.next.Add(s.step)
	return t
}
