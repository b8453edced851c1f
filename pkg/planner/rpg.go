package planner

// Reachability classifies every ground proposition and action by
// relaxed reachability, and records the goal layer used as an
// admissible lower bound on the happening count. It is a pure function
// of the model: recomputing it on the same model yields identical
// results. Read-only after construction.
type Reachability struct {
	// AtomLayer is the first fact layer containing each atom, or -1.
	AtomLayer []int
	// ActionLayer is the first action layer admitting each action, or
	// -1.
	ActionLayer []int

	// GoalLayer is the first layer at which the full goal conjunction
	// is satisfiable, or -1 if the goal is provably unreachable. A
	// goal already satisfied by the initial state has layer 0.
	GoalLayer int

	// Layers counts the fact layers built before the fixpoint.
	Layers int
}

// AtomReachable reports whether the atom appears in any fact layer.
func (r *Reachability) AtomReachable(i int) bool { return r.AtomLayer[i] >= 0 }

// ActionReachable reports whether the action appears in any action
// layer.
func (r *Reachability) ActionReachable(i int) bool { return r.ActionLayer[i] >= 0 }

// BuildRPG constructs the delete-relaxed planning graph: alternating
// fact and action layers in which an action joins the first layer
// where all of its at-start positive preconditions are present, and
// contributes its add effects (start and end alike) to the next fact
// layer. Delete effects, negative preconditions, and numeric
// conditions are ignored — the graph is a monotone over-approximation,
// so everything it marks unreachable is truly unreachable, and the
// goal layer never over-estimates the happenings a real plan needs.
//
// The graph is built to the full fixpoint rather than stopping at the
// goal, because the pruning classification needs every element
// settled. Always terminates: the universe is finite and layers only
// grow.
func BuildRPG(m *Model) *Reachability {
	r := &Reachability{
		AtomLayer:   make([]int, len(m.Atoms)),
		ActionLayer: make([]int, len(m.Actions)),
		GoalLayer:   -1,
	}
	for i := range r.AtomLayer {
		r.AtomLayer[i] = -1
	}
	for i := range r.ActionLayer {
		r.ActionLayer[i] = -1
	}
	for i, present := range m.InitAtoms {
		if present {
			r.AtomLayer[i] = 0
		}
	}

	layer := 0
	for {
		grew := false
		next := layer + 1
		for ai, act := range m.Actions {
			if r.ActionLayer[ai] >= 0 || act.Impossible() {
				continue
			}
			if !condReached(act.Start.Pos, r.AtomLayer, layer) {
				continue
			}
			r.ActionLayer[ai] = layer
			for _, set := range []EffectSet{act.StartEff, act.EndEff} {
				for _, add := range set.Add {
					if r.AtomLayer[add] < 0 {
						r.AtomLayer[add] = next
						grew = true
					}
				}
			}
		}
		if !grew {
			break
		}
		layer = next
	}
	r.Layers = layer + 1

	if !m.Goal.Impossible {
		goalLayer := 0
		reachable := true
		for _, p := range m.Goal.Pos {
			if r.AtomLayer[p] < 0 {
				reachable = false
				break
			}
			if r.AtomLayer[p] > goalLayer {
				goalLayer = r.AtomLayer[p]
			}
		}
		if reachable {
			r.GoalLayer = goalLayer
		}
	}
	return r
}

func condReached(pos []int, atomLayer []int, layer int) bool {
	for _, p := range pos {
		if atomLayer[p] < 0 || atomLayer[p] > layer {
			return false
		}
	}
	return true
}
