package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosmtplan/pkg/smt"
	"github.com/gitrdm/gosmtplan/pkg/solver"
)

const cellarDomain = `
(define (domain matchcellar)
  (:requirements :strips :typing :durative-actions)
  (:types match fuse)
  (:predicates
    (unused ?m - match)
    (light ?m - match)
    (handfree)
    (mended ?f - fuse))
  (:durative-action light-match
    :parameters (?m - match)
    :duration (= ?duration 8)
    :condition (and (at start (unused ?m)))
    :effect (and (at start (not (unused ?m)))
                 (at start (light ?m))
                 (at end (not (light ?m)))))
  (:durative-action mend-fuse
    :parameters (?f - fuse ?m - match)
    :duration (= ?duration 5)
    :condition (and (at start (handfree))
                    (over all (light ?m)))
    :effect (and (at start (not (handfree)))
                 (at end (mended ?f))
                 (at end (handfree)))))
`

const cellarProblem = `
(define (problem fuse1)
  (:domain matchcellar)
  (:objects m1 - match f1 - fuse)
  (:init (unused m1) (handfree))
  (:goal (mended f1)))
`

func render(t *testing.T, doc *smt.Document) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, doc.Render(&b))
	return b.String()
}

func TestEncodeCorridor(t *testing.T) {
	m := mustGround(t, corridorDomain, corridorProblem)
	enc := NewEncoder(m, nil, DefaultOptions())

	t.Run("happening count must be positive", func(t *testing.T) {
		_, err := enc.Encode(0)
		require.Error(t, err)
	})

	t.Run("propositional without durative actions", func(t *testing.T) {
		doc, err := enc.Encode(2)
		require.NoError(t, err)
		assert.True(t, doc.Propositional())
		assert.NotContains(t, render(t, doc), "Real")
	})

	t.Run("variable counts", func(t *testing.T) {
		doc, err := enc.Encode(3)
		require.NoError(t, err)
		// 6 atoms and 9 occurrence booleans per happening.
		assert.Equal(t, 3*(6+9), doc.NumDeclarations())
	})

	t.Run("deterministic re-encoding", func(t *testing.T) {
		a, err := enc.Encode(2)
		require.NoError(t, err)
		b, err := enc.Encode(2)
		require.NoError(t, err)
		assert.Equal(t, render(t, a), render(t, b))
	})
}

func TestEncodeSatisfiability(t *testing.T) {
	m := mustGround(t, corridorDomain, corridorProblem)
	enc := NewEncoder(m, nil, DefaultOptions())
	ctx := context.Background()

	check := func(t *testing.T, n int) solver.Verdict {
		doc, err := enc.Encode(n)
		require.NoError(t, err)
		v, err := solver.Gini{}.Check(ctx, doc)
		require.NoError(t, err)
		return v
	}

	// The goal needs two moves and the moves interfere, so one
	// happening is too few and two suffice.
	t.Run("one happening unsat", func(t *testing.T) {
		assert.Equal(t, solver.Unsat, check(t, 1))
	})
	t.Run("two happenings sat", func(t *testing.T) {
		assert.Equal(t, solver.Sat, check(t, 2))
	})
	t.Run("three happenings still sat", func(t *testing.T) {
		assert.Equal(t, solver.Sat, check(t, 3))
	})
}

func TestEncodeUnreachableGoalUnsat(t *testing.T) {
	prob := `
(define (problem island) (:domain nav)
  (:objects a b d - room)
  (:init (at a) (adjacent a b) (adjacent b a) (visited a))
  (:goal (at d)))
`
	m := mustGround(t, corridorDomain, prob)
	enc := NewEncoder(m, nil, DefaultOptions())
	for n := 1; n <= 3; n++ {
		doc, err := enc.Encode(n)
		require.NoError(t, err)
		v, err := solver.Gini{}.Check(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, solver.Unsat, v, "n=%d", n)
	}
}

func TestEncodePruning(t *testing.T) {
	prob := `
(define (problem island) (:domain nav)
  (:objects a b d - room)
  (:init (at a) (adjacent a b) (adjacent b a) (visited a))
  (:goal (at b)))
`
	m := mustGround(t, corridorDomain, prob)
	r := BuildRPG(m)

	full, err := NewEncoder(m, r, DefaultOptions()).Encode(2)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Prune = true
	pruned, err := NewEncoder(m, r, opts).Encode(2)
	require.NoError(t, err)

	assert.Less(t, pruned.NumDeclarations(), full.NumDeclarations())

	// Pruning must not change the verdict.
	for _, doc := range []*smt.Document{full, pruned} {
		v, err := solver.Gini{}.Check(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, solver.Sat, v)
	}
}

func TestEncodeExplanatoryNames(t *testing.T) {
	m := mustGround(t, corridorDomain, corridorProblem)

	opts := DefaultOptions()
	opts.ExplanatoryNames = true
	doc, err := NewEncoder(m, nil, opts).Encode(1)
	require.NoError(t, err)
	text := render(t, doc)
	assert.Contains(t, text, "(declare-fun at.a@0 () Bool)")
	assert.Contains(t, text, "(declare-fun occ.move.a.b@0 () Bool)")

	terse, err := NewEncoder(m, nil, DefaultOptions()).Encode(1)
	require.NoError(t, err)
	assert.Contains(t, render(t, terse), "(declare-fun p0@0 () Bool)")
}

func TestEncodeNamesStayDistinct(t *testing.T) {
	// Underscores are legal in PDDL names, so (at x y_z) and
	// (at x_y z) must not collapse into one symbol.
	dom := `
(define (domain warehouse)
  (:requirements :strips :typing)
  (:types room)
  (:predicates (at ?r - room) (linked ?a - room ?b - room))
  (:action move
    :parameters (?from - room ?to - room)
    :precondition (and (at ?from) (linked ?from ?to))
    :effect (and (not (at ?from)) (at ?to))))
`
	prob := `
(define (problem aisles) (:domain warehouse)
  (:objects x x_y y_z z - room)
  (:init (at x) (linked x y_z) (linked x_y z))
  (:goal (at y_z)))
`
	m := mustGround(t, dom, prob)

	opts := DefaultOptions()
	opts.ExplanatoryNames = true
	doc, err := NewEncoder(m, nil, opts).Encode(1)
	require.NoError(t, err)
	text := render(t, doc)
	assert.Contains(t, text, "(declare-fun at.x_y@0 () Bool)")
	assert.Contains(t, text, "(declare-fun at.y_z@0 () Bool)")
	assert.Contains(t, text, "(declare-fun occ.move.x.y_z@0 () Bool)")
	assert.Contains(t, text, "(declare-fun occ.move.x_y.z@0 () Bool)")

	// Same declaration count under both naming modes.
	terse, err := NewEncoder(m, nil, DefaultOptions()).Encode(1)
	require.NoError(t, err)
	assert.Equal(t, terse.NumDeclarations(), doc.NumDeclarations())
}

func TestEncodeDurative(t *testing.T) {
	m := mustGround(t, cellarDomain, cellarProblem)
	require.True(t, m.HasDurative())

	doc, err := NewEncoder(m, nil, DefaultOptions()).Encode(4)
	require.NoError(t, err)

	t.Run("needs arithmetic", func(t *testing.T) {
		assert.False(t, doc.Propositional())
	})

	t.Run("timestamps anchored and ordered", func(t *testing.T) {
		text := render(t, doc)
		assert.Contains(t, text, "(declare-fun t@0 () Real)")
		assert.Contains(t, text, "(assert (= t@0 0.0))")
		assert.Contains(t, text, "(assert (< t@0 t@1))")
	})

	t.Run("start and end bookkeeping present", func(t *testing.T) {
		text := render(t, doc)
		// Every started action must finish within the horizon.
		assert.Contains(t, text, "(assert (not run0@3))")
	})
}
