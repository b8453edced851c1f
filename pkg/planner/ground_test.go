package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosmtplan/pkg/pddl"
)

const corridorDomain = `
(define (domain nav)
  (:requirements :strips :typing :equality)
  (:types room)
  (:predicates
    (at ?r - room)
    (adjacent ?a - room ?b - room)
    (visited ?r - room))
  (:action move
    :parameters (?from - room ?to - room)
    :precondition (and (at ?from)
                       (adjacent ?from ?to)
                       (not (= ?from ?to)))
    :effect (and (not (at ?from)) (at ?to) (visited ?to))))
`

const corridorProblem = `
(define (problem corridor)
  (:domain nav)
  (:objects a b c - room)
  (:init (at a)
         (adjacent a b) (adjacent b a)
         (adjacent b c) (adjacent c b)
         (visited a))
  (:goal (and (at c) (visited b))))
`

const truckDomain = `
(define (domain haul)
  (:requirements :strips :typing :fluents)
  (:types room)
  (:predicates (at ?r - room) (adjacent ?a - room ?b - room))
  (:functions (fuel) (distance ?a - room ?b - room))
  (:action move
    :parameters (?from - room ?to - room)
    :precondition (and (at ?from)
                       (adjacent ?from ?to)
                       (>= (fuel) (distance ?from ?to)))
    :effect (and (not (at ?from)) (at ?to)
                 (decrease (fuel) (distance ?from ?to)))))
`

const truckProblem = `
(define (problem haul1)
  (:domain haul)
  (:objects a b - room)
  (:init (at a)
         (adjacent a b)
         (= (fuel) 10)
         (= (distance a b) 4)
         (= (distance b a) 4))
  (:goal (at b)))
`

func mustParse(t *testing.T, domSrc, probSrc string) (*pddl.Domain, *pddl.Problem) {
	t.Helper()
	dom, err := pddl.ParseDomain(domSrc)
	require.NoError(t, err)
	prob, err := pddl.ParseProblem(probSrc)
	require.NoError(t, err)
	return dom, prob
}

func mustGround(t *testing.T, domSrc, probSrc string) *Model {
	t.Helper()
	dom, prob := mustParse(t, domSrc, probSrc)
	m, err := Ground(dom, prob)
	require.NoError(t, err)
	return m
}

func TestGroundCorridor(t *testing.T) {
	m := mustGround(t, corridorDomain, corridorProblem)

	t.Run("one action per substitution", func(t *testing.T) {
		// 3 rooms in each of 2 parameters.
		assert.Len(t, m.Actions, 9)
	})

	t.Run("static predicates folded away", func(t *testing.T) {
		for _, a := range m.Atoms {
			assert.NotEqual(t, "adjacent", a.Predicate)
		}
		// at and visited per room.
		assert.Len(t, m.Atoms, 6)
	})

	t.Run("self move impossible by equality", func(t *testing.T) {
		for _, a := range m.Actions {
			if a.Args[0] == a.Args[1] {
				assert.True(t, a.Impossible(), "%s should be impossible", a.Name())
			}
		}
	})

	t.Run("non-adjacent move impossible by static fold", func(t *testing.T) {
		ac := findAction(t, m, "move", "a", "c")
		assert.True(t, ac.Impossible())
		ab := findAction(t, m, "move", "a", "b")
		assert.False(t, ab.Impossible())
	})

	t.Run("possible move conditions reference dynamic atoms only", func(t *testing.T) {
		ab := findAction(t, m, "move", "a", "b")
		require.Len(t, ab.Start.Pos, 1)
		assert.Equal(t, "at", m.Atoms[ab.Start.Pos[0]].Predicate)
		assert.Len(t, ab.StartEff.Add, 2)
		assert.Len(t, ab.StartEff.Del, 1)
	})

	t.Run("initial state", func(t *testing.T) {
		atA, ok := m.AtomIndex("at", "a")
		require.True(t, ok)
		assert.True(t, m.InitAtoms[atA])
		atB, ok := m.AtomIndex("at", "b")
		require.True(t, ok)
		assert.False(t, m.InitAtoms[atB])
	})

	t.Run("goal", func(t *testing.T) {
		assert.False(t, m.Goal.Impossible)
		assert.Len(t, m.Goal.Pos, 2)
	})

	t.Run("no durative actions", func(t *testing.T) {
		assert.False(t, m.HasDurative())
	})
}

func TestGroundNumeric(t *testing.T) {
	m := mustGround(t, truckDomain, truckProblem)

	t.Run("static function folded to constant", func(t *testing.T) {
		// distance never appears in an effect, so only fuel remains.
		require.Len(t, m.Fluents, 1)
		assert.Equal(t, "fuel", m.Fluents[0].Function)
		assert.Equal(t, 10.0, m.InitFluents[0])
	})

	t.Run("comparison references folded constant", func(t *testing.T) {
		ab := findAction(t, m, "move", "a", "b")
		require.Len(t, ab.Start.Num, 1)
		right, ok := ab.Start.Num[0].Right.(NumConst)
		require.True(t, ok)
		assert.Equal(t, 4.0, float64(right))
	})

	t.Run("numeric effect grounded", func(t *testing.T) {
		ab := findAction(t, m, "move", "a", "b")
		require.Len(t, ab.StartEff.Num, 1)
		upd := ab.StartEff.Num[0]
		assert.Equal(t, pddl.Decrease, upd.Op)
		assert.Equal(t, 0, upd.Fluent)
	})
}

func TestGroundErrors(t *testing.T) {
	t.Run("duplicate object", func(t *testing.T) {
		_, prob := mustParse(t, corridorDomain, `
(define (problem p) (:domain nav)
  (:objects a a - room)
  (:init (at a)) (:goal (at a)))`)
		dom, _ := mustParse(t, corridorDomain, corridorProblem)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "declared twice")
	})

	t.Run("undeclared predicate in init", func(t *testing.T) {
		dom, prob := mustParse(t, corridorDomain, `
(define (problem p) (:domain nav)
  (:objects a - room)
  (:init (on a)) (:goal (at a)))`)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "undeclared predicate")
	})

	t.Run("undeclared object in goal", func(t *testing.T) {
		dom, prob := mustParse(t, corridorDomain, `
(define (problem p) (:domain nav)
  (:objects a - room)
  (:init (at a)) (:goal (at z)))`)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "undeclared object")
	})

	t.Run("missing goal", func(t *testing.T) {
		dom, prob := mustParse(t, corridorDomain, `
(define (problem p) (:domain nav)
  (:objects a - room)
  (:init (at a)))`)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "no goal")
	})

	t.Run("undeclared object type", func(t *testing.T) {
		dom, prob := mustParse(t, corridorDomain, `
(define (problem p) (:domain nav)
  (:objects a - hallway)
  (:init (at a)) (:goal (at a)))`)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "undeclared type")
	})

	t.Run("missing static fluent value in effect", func(t *testing.T) {
		dom, prob := mustParse(t, `
(define (domain pump)
  (:requirements :fluents)
  (:predicates (on))
  (:functions (level) (rate))
  (:action fill :parameters ()
    :precondition (on)
    :effect (increase (level) (rate))))`, `
(define (problem p) (:domain pump)
  (:objects)
  (:init (on) (= (level) 0))
  (:goal (on)))`)
		_, err := Ground(dom, prob)
		requireGroundingError(t, err, "no initial value")
	})

	t.Run("missing static fluent value in condition folds to false", func(t *testing.T) {
		dom, prob := mustParse(t, truckDomain, `
(define (problem p) (:domain haul)
  (:objects a b - room)
  (:init (at a) (adjacent a b) (= (fuel) 10))
  (:goal (at b)))`)
		m, err := Ground(dom, prob)
		require.NoError(t, err)
		ab := findAction(t, m, "move", "a", "b")
		assert.True(t, ab.Impossible())
	})
}

func findAction(t *testing.T, m *Model, name string, args ...string) *Action {
	t.Helper()
	for _, a := range m.Actions {
		if a.Schema.Name != name || len(a.Args) != len(args) {
			continue
		}
		match := true
		for i := range args {
			if a.Args[i] != args[i] {
				match = false
				break
			}
		}
		if match {
			return a
		}
	}
	t.Fatalf("action %s%v not found", name, args)
	return nil
}

func requireGroundingError(t *testing.T, err error, want string) {
	t.Helper()
	var gerr *GroundingError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Error(), want)
}
