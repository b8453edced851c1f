package planner

import "github.com/pkg/errors"

// Options is the resolved run configuration. It is constructed once
// from CLI input and read-only thereafter.
type Options struct {
	DomainPath  string
	ProblemPath string

	// OutputPath receives each iteration's encoding; empty writes to
	// standard output only in emit-only runs.
	OutputPath string

	// LowerBound is the first happening count tried.
	LowerBound int
	// UpperBound ends the search when exceeded; negative means
	// unbounded.
	UpperBound int
	// StepSize is the increment between iterations; must be positive
	// so the loop makes progress.
	StepSize int

	// Solve false means emit-only: encode once at the lower bound and
	// never consult the solver.
	Solve bool
	// Prune restricts encoded variables and constraints to elements
	// the relaxed planning graph proved reachable.
	Prune bool
	// RPGLowerBound overrides LowerBound with the relaxed graph's goal
	// layer.
	RPGLowerBound bool
	// ExplanatoryNames selects human-readable variable names in the
	// encoding. Cosmetic only.
	ExplanatoryNames bool

	// Workers above one enables speculative solving of that many trial
	// happening counts concurrently.
	Workers int
}

// DefaultOptions mirrors the planner's historical defaults: start at
// one happening, unbounded, step one, solving enabled.
func DefaultOptions() Options {
	return Options{
		LowerBound: 1,
		UpperBound: -1,
		StepSize:   1,
		Solve:      true,
		Workers:    1,
	}
}

// Validate checks the invariants the search loop relies on.
func (o Options) Validate() error {
	if o.StepSize <= 0 {
		return errors.Errorf("step size must be positive, got %d", o.StepSize)
	}
	if o.LowerBound < 1 {
		return errors.Errorf("lower bound must be at least 1, got %d", o.LowerBound)
	}
	if o.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	if o.Workers > 1 && o.OutputPath != "" {
		return errors.New("speculative search cannot write encodings to a single output path")
	}
	return nil
}
