package smt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermRendering(t *testing.T) {
	cases := []struct {
		name string
		term Term
		want string
	}{
		{"symbol", Symbol("p@0"), "p@0"},
		{"true", BoolConst(true), "true"},
		{"integral real", RealConst(3), "3.0"},
		{"fractional real", RealConst(2.5), "2.5"},
		{"negative real", RealConst(-1.5), "(- 1.5)"},
		{"apply", And(Symbol("a"), Symbol("b")), "(and a b)"},
		{"nested", Implies(Symbol("a"), Or(Symbol("b"), Not(Symbol("c")))), "(=> a (or b (not c)))"},
		{"arithmetic", Eq(Add(Symbol("x"), RealConst(1)), Symbol("y")), "(= (+ x 1.0) y)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.term))
		})
	}
}

func TestConstructorFolding(t *testing.T) {
	a, b := Symbol("a"), Symbol("b")

	t.Run("and", func(t *testing.T) {
		assert.Equal(t, BoolConst(true), And())
		assert.Equal(t, a, And(a))
		assert.Equal(t, a, And(BoolConst(true), a))
		assert.Equal(t, BoolConst(false), And(a, BoolConst(false)))
	})

	t.Run("or", func(t *testing.T) {
		assert.Equal(t, BoolConst(false), Or())
		assert.Equal(t, b, Or(BoolConst(false), b))
		assert.Equal(t, BoolConst(true), Or(b, BoolConst(true)))
	})

	t.Run("not", func(t *testing.T) {
		assert.Equal(t, BoolConst(false), Not(BoolConst(true)))
		assert.Equal(t, a, Not(Not(a)))
	})

	t.Run("implies", func(t *testing.T) {
		assert.Equal(t, b, Implies(BoolConst(true), b))
		assert.Equal(t, BoolConst(true), Implies(BoolConst(false), b))
		assert.Equal(t, BoolConst(true), Implies(a, BoolConst(true)))
		assert.Equal(t, "(not a)", String(Implies(a, BoolConst(false))))
	})

	t.Run("iff", func(t *testing.T) {
		assert.Equal(t, b, Iff(BoolConst(true), b))
		assert.Equal(t, "(not b)", String(Iff(BoolConst(false), b)))
		assert.Equal(t, "(= a b)", String(Iff(a, b)))
	})
}

func TestDocumentRender(t *testing.T) {
	d := NewDocument()
	d.SetLogic("QF_LRA")
	p := d.Declare("p@0", Bool)
	x := d.Declare("x@0", Real)
	d.Assert(p)
	d.Assert(Ge(x, RealConst(0)))
	d.Assert(BoolConst(true)) // dropped

	var b strings.Builder
	require.NoError(t, d.Render(&b))

	want := "(set-logic QF_LRA)\n" +
		"(declare-fun p@0 () Bool)\n" +
		"(declare-fun x@0 () Real)\n" +
		"(assert p@0)\n" +
		"(assert (>= x@0 0.0))\n" +
		"(check-sat)\n"
	assert.Equal(t, want, b.String())
	assert.Equal(t, 2, d.NumDeclarations())
	assert.Equal(t, 2, d.NumAssertions())
}

func TestPropositional(t *testing.T) {
	t.Run("boolean document", func(t *testing.T) {
		d := NewDocument()
		p := d.Declare("p", Bool)
		q := d.Declare("q", Bool)
		d.Assert(Iff(p, Not(q)))
		d.Assert(Implies(p, Or(q, BoolConst(false))))
		assert.True(t, d.Propositional())
	})

	t.Run("real declaration", func(t *testing.T) {
		d := NewDocument()
		d.Declare("t", Real)
		assert.False(t, d.Propositional())
	})

	t.Run("arithmetic assertion", func(t *testing.T) {
		d := NewDocument()
		p := d.Declare("p", Bool)
		d.Assert(Implies(p, Lt(RealConst(1), RealConst(2))))
		assert.False(t, d.Propositional())
	})
}
