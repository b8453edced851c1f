package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosmtplan/pkg/smt"
)

func TestGiniCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("satisfiable", func(t *testing.T) {
		d := smt.NewDocument()
		p := d.Declare("p", smt.Bool)
		q := d.Declare("q", smt.Bool)
		d.Assert(smt.Or(p, q))
		d.Assert(smt.Not(p))

		v, err := Gini{}.Check(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, Sat, v)
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		d := smt.NewDocument()
		p := d.Declare("p", smt.Bool)
		d.Assert(p)
		d.Assert(smt.Not(p))

		v, err := Gini{}.Check(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, Unsat, v)
	})

	t.Run("implication chain", func(t *testing.T) {
		d := smt.NewDocument()
		a := d.Declare("a", smt.Bool)
		b := d.Declare("b", smt.Bool)
		c := d.Declare("c", smt.Bool)
		d.Assert(a)
		d.Assert(smt.Implies(a, b))
		d.Assert(smt.Implies(b, c))
		d.Assert(smt.Not(c))

		v, err := Gini{}.Check(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, Unsat, v)
	})

	t.Run("equivalence", func(t *testing.T) {
		d := smt.NewDocument()
		a := d.Declare("a", smt.Bool)
		b := d.Declare("b", smt.Bool)
		d.Assert(smt.Iff(a, smt.Not(b)))
		d.Assert(a)
		d.Assert(b)

		v, err := Gini{}.Check(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, Unsat, v)
	})

	t.Run("boolean constants", func(t *testing.T) {
		d := smt.NewDocument()
		p := d.Declare("p", smt.Bool)
		// Or folds the constant away before assertion, but a bare
		// constant can still reach the backend inside an un-folded =.
		d.Assert(&smt.Apply{Op: "=", Args: []smt.Term{p, smt.BoolConst(false)}})
		d.Assert(p)

		v, err := Gini{}.Check(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, Unsat, v)
	})

	t.Run("rejects arithmetic documents", func(t *testing.T) {
		d := smt.NewDocument()
		x := d.Declare("x", smt.Real)
		d.Assert(smt.Ge(x, smt.RealConst(0)))

		v, err := Gini{}.Check(ctx, d)
		assert.Equal(t, Unknown, v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not propositional")
	})

	t.Run("cancelled context", func(t *testing.T) {
		d := smt.NewDocument()
		d.Assert(d.Declare("p", smt.Bool))
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		v, err := Gini{}.Check(cctx, d)
		assert.Equal(t, Unknown, v)
		assert.Error(t, err)
	})
}
