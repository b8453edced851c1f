// Package planner implements the core pipeline of the bounded temporal
// planner: grounding a parsed domain/problem into a finite model,
// relaxed-reachability pruning, encoding the model at a fixed number of
// happenings into an SMT formula, and the iterative-deepening search
// controller that drives the external decision procedure.
//
// The pipeline is synchronous and built around two immutable values:
// the Model produced by Ground and the Reachability produced by
// BuildRPG. Every later stage only reads them, which is what makes the
// optional speculative search mode safe without locking.
package planner

import (
	"strings"

	"github.com/gitrdm/gosmtplan/pkg/pddl"
)

// Atom is a ground proposition: a predicate applied to concrete
// objects. Identity is structural. Atoms are interned by the grounder
// and referenced by dense index everywhere else.
type Atom struct {
	Predicate string
	Args      []string
}

func (a Atom) String() string {
	if len(a.Args) == 0 {
		return "(" + a.Predicate + ")"
	}
	return "(" + a.Predicate + " " + strings.Join(a.Args, " ") + ")"
}

func (a Atom) key() string {
	return a.Predicate + "\x00" + strings.Join(a.Args, "\x00")
}

// Fluent is a ground numeric fluent: a function applied to concrete
// objects. Its value at each decision point is defined by the
// encoding, never stored here.
type Fluent struct {
	Function string
	Args     []string
}

func (f Fluent) String() string {
	if len(f.Args) == 0 {
		return "(" + f.Function + ")"
	}
	return "(" + f.Function + " " + strings.Join(f.Args, " ") + ")"
}

func (f Fluent) key() string {
	return f.Function + "\x00" + strings.Join(f.Args, "\x00")
}

// NumTerm is a ground numeric expression over fluent indices.
// Implementations are NumConst, NumRef, and *NumBin. Static fluents
// are folded to NumConst by the grounder, so a NumRef always names a
// fluent some action can write.
type NumTerm interface{ isNumTerm() }

// NumConst is a numeric constant.
type NumConst float64

func (NumConst) isNumTerm() {}

// NumRef references a ground fluent by model index.
type NumRef int

func (NumRef) isNumTerm() {}

// NumBin is a binary arithmetic node.
type NumBin struct {
	Op    pddl.ArithOp
	Left  NumTerm
	Right NumTerm
}

func (*NumBin) isNumTerm() {}

// NumCond is a ground numeric comparison.
type NumCond struct {
	Op    pddl.CompareOp
	Left  NumTerm
	Right NumTerm
}

// Cond is a folded ground condition: a conjunction of positive atoms,
// negative atoms, and numeric comparisons. Static and equality
// literals have already been evaluated away; a condition that folded
// to constant false is marked Impossible.
type Cond struct {
	Pos        []int
	Neg        []int
	Num        []NumCond
	Impossible bool
}

// Empty reports whether the condition is trivially true.
func (c Cond) Empty() bool {
	return !c.Impossible && len(c.Pos) == 0 && len(c.Neg) == 0 && len(c.Num) == 0
}

// NumUpdate is a ground numeric effect on one fluent.
type NumUpdate struct {
	Op     pddl.AssignOp
	Fluent int
	Expr   NumTerm
}

// EffectSet groups the ground effects applied at a single event.
type EffectSet struct {
	Add []int
	Del []int
	Num []NumUpdate
}

// Action is a ground action: a schema paired with a concrete object
// substitution, with resolved conditions and effects per temporal
// qualifier. Instantaneous actions use the Start condition and
// StartEff only. Produced once by Ground and immutable afterwards.
type Action struct {
	Schema *pddl.ActionSchema
	Args   []string

	Durative bool
	Duration NumTerm // nil unless durative

	Start Cond // at-start preconditions (all preconditions when instantaneous)
	Over  Cond // over-all conditions (durative only)
	End   Cond // at-end conditions (durative only)

	StartEff EffectSet // at-start effects (all effects when instantaneous)
	EndEff   EffectSet // at-end effects (durative only)
}

// Name returns the ground action signature, e.g. "(move x y)".
func (a *Action) Name() string {
	if len(a.Args) == 0 {
		return "(" + a.Schema.Name + ")"
	}
	return "(" + a.Schema.Name + " " + strings.Join(a.Args, " ") + ")"
}

// Impossible reports whether any condition folded to constant false,
// making the action unexecutable in every state.
func (a *Action) Impossible() bool {
	return a.Start.Impossible || a.Over.Impossible || a.End.Impossible
}

// Model is the grounded planning model: the finite atom, fluent, and
// action universes together with the initial state and ground goal.
// Immutable once built; safe for concurrent read-only use.
type Model struct {
	Domain  *pddl.Domain
	Problem *pddl.Problem

	Atoms   []Atom
	Fluents []Fluent
	Actions []*Action

	// InitAtoms and InitFluents are indexed like Atoms and Fluents.
	// Fluents with no initial assignment default to zero.
	InitAtoms   []bool
	InitFluents []float64

	Goal Cond

	atomIndex   map[string]int
	fluentIndex map[string]int
}

// AtomIndex returns the index of the ground proposition, if interned.
func (m *Model) AtomIndex(predicate string, args ...string) (int, bool) {
	i, ok := m.atomIndex[Atom{Predicate: predicate, Args: args}.key()]
	return i, ok
}

// FluentIndex returns the index of the ground fluent, if interned.
func (m *Model) FluentIndex(function string, args ...string) (int, bool) {
	i, ok := m.fluentIndex[Fluent{Function: function, Args: args}.key()]
	return i, ok
}

// HasDurative reports whether any ground action is durative.
func (m *Model) HasDurative() bool {
	for _, a := range m.Actions {
		if a.Durative {
			return true
		}
	}
	return false
}
