// Package pddl defines the parsed object model for planning domains
// and problems, together with a reader for a practical subset of PDDL
// (:strips, :typing, :equality, :negative-preconditions, :fluents,
// :durative-actions).
//
// The model is the hand-off point to the planner: once a Domain and
// Problem have been constructed (by the reader or programmatically)
// they are treated as immutable, and the grounder walks the expression
// trees below without ever touching raw text again.
//
// Conditions and effects are tagged variants evaluated by recursive
// visitors rather than method chains: a Condition is a *Literal, *And,
// or *Comparison; an Effect is a *PropEffect or *NumEffect. Temporal
// placement (at start / over all / at end) is carried alongside each
// condition or effect by a Qualifier tag rather than baked into the
// expression tree.
package pddl

import "strings"

// Term is one argument position in a literal or fluent reference:
// either a schema variable such as ?x or a constant object name.
type Term struct {
	Name     string
	Variable bool
}

// Var returns a variable term.
func Var(name string) Term { return Term{Name: name, Variable: true} }

// Const returns a constant object term.
func Const(name string) Term { return Term{Name: name} }

func (t Term) String() string {
	if t.Variable {
		return "?" + t.Name
	}
	return t.Name
}

// Qualifier places a condition or effect on the timeline of a durative
// action. Instantaneous actions use AtStart throughout.
type Qualifier int

const (
	AtStart Qualifier = iota
	OverAll
	AtEnd
)

func (q Qualifier) String() string {
	switch q {
	case AtStart:
		return "at start"
	case OverAll:
		return "over all"
	case AtEnd:
		return "at end"
	}
	return "unknown"
}

// Condition is a precondition or goal expression. Implementations are
// *Literal, *And, and *Comparison.
type Condition interface {
	isCondition()
	String() string
}

// Literal is a (possibly negated) application of a predicate to terms.
// The builtin predicate "=" denotes object equality and is resolved
// statically during grounding.
type Literal struct {
	Predicate string
	Args      []Term
	Negated   bool
}

func (*Literal) isCondition() {}

func (l *Literal) String() string {
	var b strings.Builder
	if l.Negated {
		b.WriteString("(not ")
	}
	b.WriteByte('(')
	b.WriteString(l.Predicate)
	for _, a := range l.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	if l.Negated {
		b.WriteByte(')')
	}
	return b.String()
}

// And is a conjunction of conditions. An empty And is trivially true.
type And struct {
	Conds []Condition
}

func (*And) isCondition() {}

func (a *And) String() string {
	var b strings.Builder
	b.WriteString("(and")
	for _, c := range a.Conds {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// CompareOp identifies a numeric comparison operator.
type CompareOp int

const (
	CmpLT CompareOp = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
)

func (op CompareOp) String() string {
	switch op {
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	case CmpEQ:
		return "="
	}
	return "?"
}

// Inverse returns the comparison denoting the negation of op.
func (op CompareOp) Inverse() CompareOp {
	switch op {
	case CmpLT:
		return CmpGE
	case CmpLE:
		return CmpGT
	case CmpGT:
		return CmpLE
	case CmpGE:
		return CmpLT
	}
	// Negated equality has no single-comparison inverse; callers reject
	// (not (= ..)) before reaching here.
	return op
}

// Comparison constrains two numeric expressions.
type Comparison struct {
	Op    CompareOp
	Left  NumExpr
	Right NumExpr
}

func (*Comparison) isCondition() {}

func (c *Comparison) String() string {
	return "(" + c.Op.String() + " " + c.Left.String() + " " + c.Right.String() + ")"
}

// NumExpr is a numeric expression over constants and fluents.
// Implementations are *Number, *FluentRef, and *Arith.
type NumExpr interface {
	isNumExpr()
	String() string
}

// Number is a numeric constant.
type Number struct {
	Value float64
}

func (*Number) isNumExpr() {}

func (n *Number) String() string { return trimFloat(n.Value) }

// FluentRef applies a numeric function to terms.
type FluentRef struct {
	Function string
	Args     []Term
}

func (*FluentRef) isNumExpr() {}

func (f *FluentRef) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(f.Function)
	for _, a := range f.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ArithOp identifies an arithmetic operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	return "?"
}

// Arith is a binary arithmetic expression.
type Arith struct {
	Op    ArithOp
	Left  NumExpr
	Right NumExpr
}

func (*Arith) isNumExpr() {}

func (a *Arith) String() string {
	return "(" + a.Op.String() + " " + a.Left.String() + " " + a.Right.String() + ")"
}

// Effect is a single effect expression. Implementations are
// *PropEffect and *NumEffect.
type Effect interface {
	isEffect()
	String() string
}

// PropEffect adds or deletes a ground-able proposition.
type PropEffect struct {
	Predicate string
	Args      []Term
	Delete    bool
}

func (*PropEffect) isEffect() {}

func (e *PropEffect) String() string {
	lit := Literal{Predicate: e.Predicate, Args: e.Args, Negated: e.Delete}
	return lit.String()
}

// AssignOp identifies a numeric effect operator.
type AssignOp int

const (
	Assign AssignOp = iota
	Increase
	Decrease
)

func (op AssignOp) String() string {
	switch op {
	case Assign:
		return "assign"
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	}
	return "?"
}

// NumEffect updates a numeric fluent.
type NumEffect struct {
	Op       AssignOp
	Function string
	Args     []Term
	Expr     NumExpr
}

func (*NumEffect) isEffect() {}

func (e *NumEffect) String() string {
	ref := FluentRef{Function: e.Function, Args: e.Args}
	return "(" + e.Op.String() + " " + ref.String() + " " + e.Expr.String() + ")"
}

// TimedCondition pairs a condition with its temporal qualifier.
type TimedCondition struct {
	When Qualifier
	Cond Condition
}

// TimedEffect pairs an effect with its temporal qualifier.
type TimedEffect struct {
	When Qualifier
	Eff  Effect
}
