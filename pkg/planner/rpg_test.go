package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRPGCorridor(t *testing.T) {
	m := mustGround(t, corridorDomain, corridorProblem)
	r := BuildRPG(m)

	t.Run("fact layers", func(t *testing.T) {
		atomLayer := func(pred string, args ...string) int {
			i, ok := m.AtomIndex(pred, args...)
			require.True(t, ok)
			return r.AtomLayer[i]
		}
		assert.Equal(t, 0, atomLayer("at", "a"))
		assert.Equal(t, 1, atomLayer("at", "b"))
		assert.Equal(t, 2, atomLayer("at", "c"))
		assert.Equal(t, 1, atomLayer("visited", "b"))
	})

	t.Run("action layers", func(t *testing.T) {
		for i, a := range m.Actions {
			switch {
			case a.Impossible():
				assert.Equal(t, -1, r.ActionLayer[i], "%s", a.Name())
				assert.False(t, r.ActionReachable(i))
			case a.Args[0] == "a" && a.Args[1] == "b":
				assert.Equal(t, 0, r.ActionLayer[i])
			case a.Args[0] == "b" && a.Args[1] == "c":
				assert.Equal(t, 1, r.ActionLayer[i])
			}
		}
	})

	t.Run("goal layer is the deepest goal fact", func(t *testing.T) {
		// (at c) enters at layer 2, (visited b) at layer 1.
		assert.Equal(t, 2, r.GoalLayer)
	})

	t.Run("deterministic", func(t *testing.T) {
		again := BuildRPG(m)
		if diff := cmp.Diff(r, again); diff != "" {
			t.Errorf("reachability differs between runs (-first +second):\n%s", diff)
		}
	})
}

func TestBuildRPGUnreachableGoal(t *testing.T) {
	// Room d has no adjacency, so nothing can ever reach it.
	prob := `
(define (problem island) (:domain nav)
  (:objects a b d - room)
  (:init (at a) (adjacent a b) (adjacent b a) (visited a))
  (:goal (at d)))
`
	m := mustGround(t, corridorDomain, prob)
	r := BuildRPG(m)

	i, ok := m.AtomIndex("at", "d")
	require.True(t, ok)
	assert.False(t, r.AtomReachable(i))
	assert.Equal(t, -1, r.GoalLayer)
}

func TestBuildRPGGoalInInitialState(t *testing.T) {
	prob := `
(define (problem trivial) (:domain nav)
  (:objects a b - room)
  (:init (at a) (adjacent a b) (adjacent b a) (visited a))
  (:goal (and (at a) (visited a))))
`
	m := mustGround(t, corridorDomain, prob)
	r := BuildRPG(m)
	assert.Equal(t, 0, r.GoalLayer)
}

func TestBuildRPGIgnoresDeletes(t *testing.T) {
	// Relaxed semantics: both (at a) and (at b) stay reachable even
	// though real moves delete the source.
	m := mustGround(t, corridorDomain, corridorProblem)
	r := BuildRPG(m)
	for _, pred := range []string{"at", "visited"} {
		for _, room := range []string{"a", "b", "c"} {
			i, ok := m.AtomIndex(pred, room)
			require.True(t, ok)
			assert.True(t, r.AtomReachable(i), "(%s %s)", pred, room)
		}
	}
}
