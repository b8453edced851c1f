package solver

import (
	"context"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/gitrdm/gosmtplan/pkg/smt"
)

// Gini decides purely propositional documents in-process with the gini
// SAT solver. Documents with real-sorted variables or arithmetic are
// outside its fragment and yield Unknown with an explanatory error;
// callers wanting temporal or numeric domains use the Z3 backend.
//
// The assertion trees are translated to CNF by the Tseitin
// transformation, so clause count stays linear in formula size.
type Gini struct{}

// Check implements Interface.
func (Gini) Check(ctx context.Context, doc *smt.Document) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	if !doc.Propositional() {
		return Unknown, errors.New("solver: document is not propositional; the gini backend handles boolean encodings only")
	}

	g := gini.New()
	tr := &tseitin{g: g, vars: map[smt.Symbol]z.Lit{}}
	for _, a := range doc.Assertions() {
		g.Add(tr.lit(a))
		g.Add(z.LitNull)
	}

	switch g.Solve() {
	case 1:
		return Sat, nil
	case -1:
		return Unsat, nil
	}
	return Unknown, nil
}

type tseitin struct {
	g    *gini.Gini
	vars map[smt.Symbol]z.Lit
	// constant true literal, allocated on first use
	trueLit z.Lit
	hasTrue bool
}

func (t *tseitin) varLit(s smt.Symbol) z.Lit {
	if m, ok := t.vars[s]; ok {
		return m
	}
	m := t.g.Lit()
	t.vars[s] = m
	return m
}

func (t *tseitin) constLit(v bool) z.Lit {
	if !t.hasTrue {
		t.trueLit = t.g.Lit()
		t.g.Add(t.trueLit)
		t.g.Add(z.LitNull)
		t.hasTrue = true
	}
	if v {
		return t.trueLit
	}
	return t.trueLit.Not()
}

// lit returns a literal equisatisfiably representing the term,
// emitting defining clauses for compound subterms.
func (t *tseitin) lit(term smt.Term) z.Lit {
	switch v := term.(type) {
	case smt.Symbol:
		return t.varLit(v)
	case smt.BoolConst:
		return t.constLit(bool(v))
	case *smt.Apply:
		switch v.Op {
		case "not":
			return t.lit(v.Args[0]).Not()
		case "and":
			return t.gate(v.Args, true)
		case "or":
			return t.gate(v.Args, false)
		case "=>":
			a, b := t.lit(v.Args[0]), t.lit(v.Args[1])
			return t.orLits([]z.Lit{a.Not(), b})
		case "=":
			a, b := t.lit(v.Args[0]), t.lit(v.Args[1])
			return t.iff(a, b)
		}
	}
	// Propositional() vetted the document; reaching here is a bug.
	panic("solver: non-propositional term reached the gini backend")
}

// gate emits Tseitin clauses for an and-gate (conj=true) or or-gate
// over the given operands and returns the gate literal.
func (t *tseitin) gate(args []smt.Term, conj bool) z.Lit {
	ms := make([]z.Lit, len(args))
	for i, a := range args {
		ms[i] = t.lit(a)
	}
	if conj {
		for i := range ms {
			ms[i] = ms[i].Not()
		}
		return t.orLits(ms).Not()
	}
	return t.orLits(ms)
}

// orLits introduces x with x <-> (m1 | m2 | ...).
func (t *tseitin) orLits(ms []z.Lit) z.Lit {
	x := t.g.Lit()
	for _, m := range ms {
		t.g.Add(x)
		t.g.Add(m.Not())
		t.g.Add(z.LitNull)
	}
	t.g.Add(x.Not())
	for _, m := range ms {
		t.g.Add(m)
	}
	t.g.Add(z.LitNull)
	return x
}

// iff introduces x with x <-> (a <-> b).
func (t *tseitin) iff(a, b z.Lit) z.Lit {
	x := t.g.Lit()
	clauses := [][3]z.Lit{
		{x.Not(), a.Not(), b},
		{x.Not(), a, b.Not()},
		{x, a, b},
		{x, a.Not(), b.Not()},
	}
	for _, c := range clauses {
		for _, m := range c {
			t.g.Add(m)
		}
		t.g.Add(z.LitNull)
	}
	return x
}
