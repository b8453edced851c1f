// Package smt builds SMT-LIB2 formula documents. A Document collects
// sorted variable declarations and assertions over a small term
// language, then renders the standard text assertion format to any
// io.Writer.
//
// Terms are tagged variants (Symbol, BoolConst, RealConst, Apply)
// traversed by type switches; there is no evaluation here. The
// constructors apply the obvious local simplifications (empty
// conjunction, single-operand and/or, double negation) so generators
// can emit naively.
package smt

import (
	"strconv"
	"strings"
)

// Term is a node of an SMT expression tree. Implementations are
// Symbol, BoolConst, RealConst, and *Apply.
type Term interface {
	isTerm()
	append(b *strings.Builder)
}

// Symbol references a declared variable by name.
type Symbol string

func (Symbol) isTerm() {}

func (s Symbol) append(b *strings.Builder) { b.WriteString(string(s)) }

// BoolConst is the literal true or false.
type BoolConst bool

func (BoolConst) isTerm() {}

func (c BoolConst) append(b *strings.Builder) {
	if c {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

// RealConst is a real-valued literal. Negative values render in the
// SMT-LIB unary-minus form (- v).
type RealConst float64

func (RealConst) isTerm() {}

func (c RealConst) append(b *strings.Builder) {
	v := float64(c)
	if v < 0 {
		b.WriteString("(- ")
		b.WriteString(formatReal(-v))
		b.WriteByte(')')
		return
	}
	b.WriteString(formatReal(v))
}

func formatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Apply applies an operator to argument terms.
type Apply struct {
	Op   string
	Args []Term
}

func (*Apply) isTerm() {}

func (a *Apply) append(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(a.Op)
	for _, arg := range a.Args {
		b.WriteByte(' ')
		arg.append(b)
	}
	b.WriteByte(')')
}

// String renders a term as SMT-LIB text.
func String(t Term) string {
	var b strings.Builder
	t.append(&b)
	return b.String()
}

// And builds a conjunction. Constant operands are folded away; an
// empty conjunction is true.
func And(ts ...Term) Term {
	kept := make([]Term, 0, len(ts))
	for _, t := range ts {
		if c, ok := t.(BoolConst); ok {
			if !bool(c) {
				return BoolConst(false)
			}
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return BoolConst(true)
	case 1:
		return kept[0]
	}
	return &Apply{Op: "and", Args: kept}
}

// Or builds a disjunction. Constant operands are folded away; an empty
// disjunction is false.
func Or(ts ...Term) Term {
	kept := make([]Term, 0, len(ts))
	for _, t := range ts {
		if c, ok := t.(BoolConst); ok {
			if bool(c) {
				return BoolConst(true)
			}
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return BoolConst(false)
	case 1:
		return kept[0]
	}
	return &Apply{Op: "or", Args: kept}
}

// Not negates a term, folding constants and double negation.
func Not(t Term) Term {
	switch v := t.(type) {
	case BoolConst:
		return BoolConst(!v)
	case *Apply:
		if v.Op == "not" {
			return v.Args[0]
		}
	}
	return &Apply{Op: "not", Args: []Term{t}}
}

// Implies builds (=> a b), folding constant antecedents.
func Implies(a, b Term) Term {
	if c, ok := a.(BoolConst); ok {
		if bool(c) {
			return b
		}
		return BoolConst(true)
	}
	if c, ok := b.(BoolConst); ok {
		if bool(c) {
			return BoolConst(true)
		}
		return Not(a)
	}
	return &Apply{Op: "=>", Args: []Term{a, b}}
}

// Iff builds boolean equivalence (= a b).
func Iff(a, b Term) Term {
	if c, ok := a.(BoolConst); ok {
		if bool(c) {
			return b
		}
		return Not(b)
	}
	if c, ok := b.(BoolConst); ok {
		if bool(c) {
			return a
		}
		return Not(a)
	}
	return &Apply{Op: "=", Args: []Term{a, b}}
}

// Eq builds (= a b) without boolean folding, for arithmetic operands.
func Eq(a, b Term) Term { return &Apply{Op: "=", Args: []Term{a, b}} }

// Lt builds (< a b).
func Lt(a, b Term) Term { return &Apply{Op: "<", Args: []Term{a, b}} }

// Le builds (<= a b).
func Le(a, b Term) Term { return &Apply{Op: "<=", Args: []Term{a, b}} }

// Gt builds (> a b).
func Gt(a, b Term) Term { return &Apply{Op: ">", Args: []Term{a, b}} }

// Ge builds (>= a b).
func Ge(a, b Term) Term { return &Apply{Op: ">=", Args: []Term{a, b}} }

// Add builds (+ a b).
func Add(a, b Term) Term { return &Apply{Op: "+", Args: []Term{a, b}} }

// Sub builds (- a b).
func Sub(a, b Term) Term { return &Apply{Op: "-", Args: []Term{a, b}} }

// Mul builds (* a b).
func Mul(a, b Term) Term { return &Apply{Op: "*", Args: []Term{a, b}} }

// Div builds (/ a b).
func Div(a, b Term) Term { return &Apply{Op: "/", Args: []Term{a, b}} }
