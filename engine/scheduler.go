package engine

import (
	"sort"
	"sync"
)

// Scheduler runs a callback after a number of ticks.
type Scheduler interface {
	After(ticks int, fn func())
}

// TickScheduler is a manually advanced Scheduler. Callbacks due on the same
// tick run in the order they were scheduled.
type TickScheduler struct {
	mu    sync.Mutex
	now   int64
	seq   int
	queue []scheduled
}

type scheduled struct {
	at  int64
	seq int
	fn  func()
}

// NewTickScheduler creates a scheduler at tick 0.
func NewTickScheduler() *TickScheduler {
	return &TickScheduler{}
}

// After implements Scheduler.
func (s *TickScheduler) After(ticks int, fn func()) {
	if ticks < 0 {
		ticks = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.queue = append(s.queue, scheduled{at: s.now + int64(ticks), seq: s.seq, fn: fn})
}

// Advance moves the clock forward n ticks and runs every callback that came
// due. It returns how many ran.
func (s *TickScheduler) Advance(n int) int {
	s.mu.Lock()
	if n > 0 {
		s.now += int64(n)
	}
	var due, rest []scheduled
	for _, t := range s.queue {
		if t.at <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.queue = rest
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Now returns the current tick.
func (s *TickScheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of callbacks not yet run.
func (s *TickScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
