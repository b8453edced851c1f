package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosmtplan/pkg/smt"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   Verdict
	}{
		{"plain sat", "sat\n", Sat},
		{"plain unsat", "unsat\n", Unsat},
		{"sat with surrounding noise", "(warning: ignored)\nsat\n", Sat},
		{"whitespace padded", "  unsat  \n", Unsat},
		{"unknown answer", "unknown\n", Unknown},
		{"empty output", "", Unknown},
		{"substring is not an answer", "satisfiable\n", Unknown},
		{"first answer wins", "unsat\nsat\n", Unsat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.output))
		})
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "sat", Sat.String())
	assert.Equal(t, "unsat", Unsat.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestZ3MissingBinary(t *testing.T) {
	d := smt.NewDocument()
	d.Assert(d.Declare("p", smt.Bool))

	z := Z3{Path: "z3-binary-that-does-not-exist"}
	v, err := z.Check(context.Background(), d)
	assert.Equal(t, Unknown, v)
	require.Error(t, err)
}

func TestZ3CancelledContext(t *testing.T) {
	d := smt.NewDocument()
	d.Assert(d.Declare("p", smt.Bool))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	z := Z3{Path: "z3-binary-that-does-not-exist"}
	v, err := z.Check(ctx, d)
	assert.Equal(t, Unknown, v)
	assert.Error(t, err)
}
