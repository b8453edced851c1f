package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosmtplan/pkg/planner"
)

func TestHelpPrintsUsageAndFlagsNonzeroExit(t *testing.T) {
	cmd, helpShown := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.True(t, *helpShown)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "smtplan DOMAIN PROBLEM")
}

func TestResultLine(t *testing.T) {
	cases := []struct {
		name  string
		res   planner.Result
		upper int
		want  string
	}{
		{"found", planner.Result{Found: true, Happenings: 3}, 20, "Plan found at 3 happenings"},
		{"not found reports the upper bound", planner.Result{Happenings: 7}, 20, "No plan found in 20 happenings"},
		{"skipped search still reports the bound", planner.Result{}, 5, "No plan found in 5 happenings"},
		{"unbounded", planner.Result{}, -1, "No plan found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resultLine(tc.res, tc.upper))
		})
	}
}

func TestSelectSolver(t *testing.T) {
	for _, name := range []string{"z3", "gini"} {
		s, err := selectSolver(name)
		require.NoError(t, err)
		assert.NotNil(t, s)
	}
	_, err := selectSolver("cvc5")
	assert.Error(t, err)
}
