package smt

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Sort is the sort of a declared variable.
type Sort int

const (
	Bool Sort = iota
	Real
)

func (s Sort) String() string {
	if s == Real {
		return "Real"
	}
	return "Bool"
}

type decl struct {
	name string
	sort Sort
}

// Document is one complete formula: a set of zero-arity declarations
// followed by assertions and a (check-sat) command. Declarations and
// assertions keep insertion order so that re-encoding the same model
// yields the same text.
type Document struct {
	logic   string
	decls   []decl
	asserts []Term
}

// NewDocument returns an empty document.
func NewDocument() *Document { return &Document{} }

// SetLogic records a (set-logic ..) header. Empty means none, leaving
// the logic to the solver.
func (d *Document) SetLogic(logic string) { d.logic = logic }

// Declare records a zero-arity variable of the given sort and returns
// the symbol referencing it. Callers are responsible for name
// uniqueness.
func (d *Document) Declare(name string, sort Sort) Term {
	d.decls = append(d.decls, decl{name: name, sort: sort})
	return Symbol(name)
}

// Assert appends an assertion. Constant-true assertions are dropped.
func (d *Document) Assert(t Term) {
	if c, ok := t.(BoolConst); ok && bool(c) {
		return
	}
	d.asserts = append(d.asserts, t)
}

// NumDeclarations returns the number of declared variables.
func (d *Document) NumDeclarations() int { return len(d.decls) }

// NumAssertions returns the number of recorded assertions.
func (d *Document) NumAssertions() int { return len(d.asserts) }

// Assertions returns the recorded assertions in order. The slice is
// shared; callers must not mutate it.
func (d *Document) Assertions() []Term { return d.asserts }

// Propositional reports whether the document lies in the boolean
// fragment: no real-sorted declarations and only boolean operators in
// its assertions. Such documents can be decided by a plain SAT solver.
func (d *Document) Propositional() bool {
	for _, dc := range d.decls {
		if dc.sort != Bool {
			return false
		}
	}
	for _, a := range d.asserts {
		if !propositionalTerm(a) {
			return false
		}
	}
	return true
}

var boolOps = map[string]bool{
	"and": true,
	"or":  true,
	"not": true,
	"=>":  true,
	"=":   true,
}

func propositionalTerm(t Term) bool {
	switch v := t.(type) {
	case Symbol, BoolConst:
		return true
	case RealConst:
		return false
	case *Apply:
		if !boolOps[v.Op] {
			return false
		}
		for _, a := range v.Args {
			if !propositionalTerm(a) {
				return false
			}
		}
		return true
	}
	return false
}

// Render writes the document in SMT-LIB2 concrete syntax, ending with
// (check-sat). Any write failure is returned wrapped.
func (d *Document) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if d.logic != "" {
		if _, err := bw.WriteString("(set-logic " + d.logic + ")\n"); err != nil {
			return errors.Wrap(err, "smt: render")
		}
	}
	for _, dc := range d.decls {
		if _, err := bw.WriteString("(declare-fun " + dc.name + " () " + dc.sort.String() + ")\n"); err != nil {
			return errors.Wrap(err, "smt: render")
		}
	}
	for _, a := range d.asserts {
		if _, err := bw.WriteString("(assert " + String(a) + ")\n"); err != nil {
			return errors.Wrap(err, "smt: render")
		}
	}
	if _, err := bw.WriteString("(check-sat)\n"); err != nil {
		return errors.Wrap(err, "smt: render")
	}
	return errors.Wrap(bw.Flush(), "smt: render")
}
