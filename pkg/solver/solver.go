// Package solver defines the decision-procedure collaborator used by
// the search controller, and two implementations: an external z3
// subprocess and an in-process SAT backend for purely propositional
// encodings.
//
// The collaborator returns an explicit three-way verdict. Sat and
// Unsat are the two defined answers; anything else — a solver crash,
// unparseable output, an honest "unknown" — is Unknown, and the caller
// decides policy. The search controller treats Unknown as a non-match
// for the bound under trial and moves on, so one flaky invocation
// never aborts an iterative-deepening run.
package solver

import (
	"context"

	"github.com/gitrdm/gosmtplan/pkg/smt"
)

// Verdict is the outcome of a satisfiability check.
type Verdict int

const (
	// Unknown covers every outcome that is neither of the two defined
	// answers: invocation failure, unrecognized output, or a solver
	// that gave up.
	Unknown Verdict = iota
	// Sat means the formula has a model.
	Sat
	// Unsat means the formula has no model.
	Unsat
)

func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Interface is the decision procedure. Check blocks until the solver
// returns; the contract has no timeout, but implementations honor
// context cancellation where they can. A non-nil error always pairs
// with an Unknown verdict and describes the invocation failure, not an
// unsatisfiable formula.
//
// Implementations must be safe for concurrent use: the speculative
// search mode issues one Check per trial bound from separate
// goroutines.
type Interface interface {
	Check(ctx context.Context, doc *smt.Document) (Verdict, error)
}
