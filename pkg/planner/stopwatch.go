package planner

import "time"

// Stopwatch measures phase times for progress reporting. It is an
// explicitly passed value rather than process-wide state, so the
// pipeline carries no hidden temporal coupling.
type Stopwatch struct {
	start time.Time
	last  time.Time
}

// NewStopwatch starts a stopwatch.
func NewStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap returns the time since the previous Lap (or since start) and
// begins a new lap.
func (s *Stopwatch) Lap() time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	return d
}

// Total returns the time since the stopwatch started.
func (s *Stopwatch) Total() time.Duration {
	return time.Since(s.start)
}
