package planner

import (
	"github.com/gitrdm/gosmtplan/pkg/pddl"
)

// Ground instantiates every action schema over the declared objects
// and produces the finite grounded model.
//
// Instantiation enumerates the cartesian product of the object sets
// compatible with each parameter's declared type, including subtype
// membership, and the filtering is exact: every type-valid
// substitution yields exactly one ground action and no others. Static
// predicates — those never mentioned in any effect — are evaluated
// once against the initial state and folded into conditions as
// constants, as are the values of static numeric fluents, so neither
// is re-encoded per happening. A ground action whose condition folds
// to constant false is kept but marked impossible; reachability
// analysis and encoding treat it accordingly, preserving the
// one-action-per-substitution property.
//
// Ground fails with *GroundingError when a schema, the initial state,
// or the goal references an undeclared predicate, function, type, or
// object.
func Ground(dom *pddl.Domain, prob *pddl.Problem) (*Model, error) {
	g := &grounder{
		dom:          dom,
		prob:         prob,
		staticPreds:  map[string]bool{},
		staticFns:    map[string]bool{},
		staticTruth:  map[string]bool{},
		staticValues: map[string]float64{},
		initFluents:  map[int]float64{},
		m: &Model{
			Domain:      dom,
			Problem:     prob,
			atomIndex:   map[string]int{},
			fluentIndex: map[string]int{},
		},
	}

	if err := g.validateObjects(); err != nil {
		return nil, err
	}
	g.classifyStatics()
	if err := g.loadInit(); err != nil {
		return nil, err
	}
	for _, schema := range dom.Actions {
		if err := g.groundSchema(schema); err != nil {
			return nil, err
		}
	}
	if err := g.groundGoal(); err != nil {
		return nil, err
	}

	g.m.InitAtoms = make([]bool, len(g.m.Atoms))
	for _, i := range g.initAtoms {
		g.m.InitAtoms[i] = true
	}
	g.m.InitFluents = make([]float64, len(g.m.Fluents))
	for i, v := range g.initFluents {
		g.m.InitFluents[i] = v
	}
	return g.m, nil
}

type grounder struct {
	dom  *pddl.Domain
	prob *pddl.Problem

	// staticPreds and staticFns hold symbols never mentioned in any
	// effect; their ground instances are folded, not encoded.
	staticPreds map[string]bool
	staticFns   map[string]bool

	staticTruth  map[string]bool
	staticValues map[string]float64

	initAtoms   []int
	initFluents map[int]float64

	m *Model
}

func (g *grounder) validateObjects() error {
	seen := map[string]bool{}
	for _, o := range g.prob.Objects {
		if seen[o.Name] {
			return groundingErrorf("object %q declared twice", o.Name)
		}
		seen[o.Name] = true
		if !g.dom.HasType(o.Type) {
			return groundingErrorf("object %q has undeclared type %q", o.Name, o.Type)
		}
	}
	return nil
}

func (g *grounder) classifyStatics() {
	for _, p := range g.dom.Predicates {
		g.staticPreds[p.Name] = true
	}
	for _, f := range g.dom.Functions {
		g.staticFns[f.Name] = true
	}
	for _, schema := range g.dom.Actions {
		for _, te := range schema.Effects {
			switch eff := te.Eff.(type) {
			case *pddl.PropEffect:
				delete(g.staticPreds, eff.Predicate)
			case *pddl.NumEffect:
				delete(g.staticFns, eff.Function)
			}
		}
	}
}

func (g *grounder) loadInit() error {
	for _, f := range g.prob.Init {
		decl := g.dom.Predicate(f.Predicate)
		if decl == nil {
			return groundingErrorf("init references undeclared predicate %q", f.Predicate)
		}
		if err := g.checkObjectArgs(f.Args, decl.Params, "init fact "+f.Predicate); err != nil {
			return err
		}
		atom := Atom{Predicate: f.Predicate, Args: f.Args}
		if g.staticPreds[f.Predicate] {
			g.staticTruth[atom.key()] = true
			continue
		}
		g.initAtoms = append(g.initAtoms, g.internAtom(atom))
	}
	for _, a := range g.prob.InitValues {
		decl := g.dom.Function(a.Function)
		if decl == nil {
			return groundingErrorf("init references undeclared function %q", a.Function)
		}
		if err := g.checkObjectArgs(a.Args, decl.Params, "init value "+a.Function); err != nil {
			return err
		}
		fl := Fluent{Function: a.Function, Args: a.Args}
		if g.staticFns[a.Function] {
			g.staticValues[fl.key()] = a.Value
			continue
		}
		g.initFluents[g.internFluent(fl)] = a.Value
	}
	return nil
}

// checkObjectArgs validates that ground arguments name declared
// objects of types accepted by the signature.
func (g *grounder) checkObjectArgs(args []string, params []pddl.Parameter, where string) error {
	if len(args) != len(params) {
		return groundingErrorf("%s: expected %d arguments, got %d", where, len(params), len(args))
	}
	for i, name := range args {
		obj := g.prob.Object(name)
		if obj == nil {
			return groundingErrorf("%s: undeclared object %q", where, name)
		}
		if !g.dom.IsSubtype(obj.Type, params[i].Type) {
			return groundingErrorf("%s: object %q of type %q is not a %q", where, name, obj.Type, params[i].Type)
		}
	}
	return nil
}

func (g *grounder) internAtom(a Atom) int {
	if i, ok := g.m.atomIndex[a.key()]; ok {
		return i
	}
	i := len(g.m.Atoms)
	g.m.Atoms = append(g.m.Atoms, a)
	g.m.atomIndex[a.key()] = i
	return i
}

func (g *grounder) internFluent(f Fluent) int {
	if i, ok := g.m.fluentIndex[f.key()]; ok {
		return i
	}
	i := len(g.m.Fluents)
	g.m.Fluents = append(g.m.Fluents, f)
	g.m.fluentIndex[f.key()] = i
	return i
}

func (g *grounder) objectsOfType(t string) []string {
	var out []string
	for _, o := range g.prob.Objects {
		if g.dom.IsSubtype(o.Type, t) {
			out = append(out, o.Name)
		}
	}
	return out
}

func (g *grounder) groundSchema(schema *pddl.ActionSchema) error {
	domains := make([][]string, len(schema.Params))
	for i, p := range schema.Params {
		if !g.dom.HasType(p.Type) {
			return groundingErrorf("action %q: parameter ?%s has undeclared type %q", schema.Name, p.Name, p.Type)
		}
		domains[i] = g.objectsOfType(p.Type)
		if len(domains[i]) == 0 {
			// No compatible objects; the schema grounds to nothing.
			return nil
		}
	}

	choice := make([]int, len(schema.Params))
	for {
		sub := make(map[string]string, len(schema.Params))
		args := make([]string, len(schema.Params))
		for i, p := range schema.Params {
			args[i] = domains[i][choice[i]]
			sub[p.Name] = args[i]
		}
		if err := g.groundAction(schema, sub, args); err != nil {
			return err
		}

		// Advance the odometer; rightmost position varies fastest.
		i := len(choice) - 1
		for ; i >= 0; i-- {
			choice[i]++
			if choice[i] < len(domains[i]) {
				break
			}
			choice[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}

func (g *grounder) groundAction(schema *pddl.ActionSchema, sub map[string]string, args []string) error {
	act := &Action{Schema: schema, Args: args, Durative: schema.Durative}
	where := "action " + act.Name()

	for _, tc := range schema.Conditions {
		var dst *Cond
		switch tc.When {
		case pddl.AtStart:
			dst = &act.Start
		case pddl.OverAll:
			dst = &act.Over
		default:
			dst = &act.End
		}
		if err := g.groundCond(tc.Cond, sub, dst, where); err != nil {
			return err
		}
	}
	// An impossible action can never execute, so its duration and
	// effects are left ungrounded; they may reference static fluents
	// that only exist for executable substitutions.
	if act.Impossible() {
		g.m.Actions = append(g.m.Actions, act)
		return nil
	}
	if schema.Durative {
		dur, err := g.groundNum(schema.Duration, sub, where)
		if err != nil {
			return asGrounding(err)
		}
		act.Duration = dur
	}
	for _, te := range schema.Effects {
		dst := &act.StartEff
		if te.When == pddl.AtEnd {
			dst = &act.EndEff
		}
		if err := g.groundEffect(te.Eff, sub, dst, where); err != nil {
			return err
		}
	}
	g.m.Actions = append(g.m.Actions, act)
	return nil
}

func (g *grounder) groundGoal() error {
	if g.prob.Goal == nil {
		return groundingErrorf("problem %q declares no goal", g.prob.Name)
	}
	return g.groundCond(g.prob.Goal, nil, &g.m.Goal, "goal")
}

// resolveTerms maps schema terms to object names under the
// substitution, validating that constants name declared objects.
func (g *grounder) resolveTerms(terms []pddl.Term, sub map[string]string, where string) ([]string, error) {
	out := make([]string, len(terms))
	for i, t := range terms {
		if t.Variable {
			obj, ok := sub[t.Name]
			if !ok {
				return nil, groundingErrorf("%s: unbound variable ?%s", where, t.Name)
			}
			out[i] = obj
			continue
		}
		if g.prob.Object(t.Name) == nil {
			return nil, groundingErrorf("%s: undeclared object %q", where, t.Name)
		}
		out[i] = t.Name
	}
	return out, nil
}

func (g *grounder) groundCond(c pddl.Condition, sub map[string]string, dst *Cond, where string) error {
	switch v := c.(type) {
	case *pddl.And:
		for _, sc := range v.Conds {
			if err := g.groundCond(sc, sub, dst, where); err != nil {
				return err
			}
		}
		return nil

	case *pddl.Literal:
		args, err := g.resolveTerms(v.Args, sub, where)
		if err != nil {
			return err
		}
		if v.Predicate == "=" {
			if len(args) != 2 {
				return groundingErrorf("%s: equality takes two arguments", where)
			}
			if (args[0] == args[1]) == v.Negated {
				dst.Impossible = true
			}
			return nil
		}
		decl := g.dom.Predicate(v.Predicate)
		if decl == nil {
			return groundingErrorf("%s: undeclared predicate %q", where, v.Predicate)
		}
		if len(args) != len(decl.Params) {
			return groundingErrorf("%s: predicate %q expects %d arguments, got %d", where, v.Predicate, len(decl.Params), len(args))
		}
		// A declared object of an incompatible type makes the literal
		// constant false rather than an error: the proposition exists
		// outside the typed state space.
		for i, name := range args {
			if !g.dom.IsSubtype(g.prob.Object(name).Type, decl.Params[i].Type) {
				if !v.Negated {
					dst.Impossible = true
				}
				return nil
			}
		}
		atom := Atom{Predicate: v.Predicate, Args: args}
		if g.staticPreds[v.Predicate] {
			if g.staticTruth[atom.key()] == v.Negated {
				dst.Impossible = true
			}
			return nil
		}
		idx := g.internAtom(atom)
		if v.Negated {
			dst.Neg = appendUnique(dst.Neg, idx)
		} else {
			dst.Pos = appendUnique(dst.Pos, idx)
		}
		return nil

	case *pddl.Comparison:
		// A comparison over a static fluent that was never given a
		// value cannot hold in any state; the condition folds to
		// false instead of failing the whole grounding.
		left, err := g.groundNum(v.Left, sub, where)
		if err != nil {
			if isUndefinedStatic(err) {
				dst.Impossible = true
				return nil
			}
			return err
		}
		right, err := g.groundNum(v.Right, sub, where)
		if err != nil {
			if isUndefinedStatic(err) {
				dst.Impossible = true
				return nil
			}
			return err
		}
		if lc, lok := left.(NumConst); lok {
			if rc, rok := right.(NumConst); rok {
				if !evalCompare(v.Op, float64(lc), float64(rc)) {
					dst.Impossible = true
				}
				return nil
			}
		}
		dst.Num = append(dst.Num, NumCond{Op: v.Op, Left: left, Right: right})
		return nil
	}
	return groundingErrorf("%s: unsupported condition", where)
}

func (g *grounder) groundNum(e pddl.NumExpr, sub map[string]string, where string) (NumTerm, error) {
	switch v := e.(type) {
	case *pddl.Number:
		return NumConst(v.Value), nil

	case *pddl.FluentRef:
		args, err := g.resolveTerms(v.Args, sub, where)
		if err != nil {
			return nil, err
		}
		decl := g.dom.Function(v.Function)
		if decl == nil {
			return nil, groundingErrorf("%s: undeclared function %q", where, v.Function)
		}
		if len(args) != len(decl.Params) {
			return nil, groundingErrorf("%s: function %q expects %d arguments, got %d", where, v.Function, len(decl.Params), len(args))
		}
		for i, name := range args {
			if !g.dom.IsSubtype(g.prob.Object(name).Type, decl.Params[i].Type) {
				return nil, groundingErrorf("%s: object %q is not a %q in function %q", where, name, decl.Params[i].Type, v.Function)
			}
		}
		fl := Fluent{Function: v.Function, Args: args}
		if g.staticFns[v.Function] {
			val, ok := g.staticValues[fl.key()]
			if !ok {
				return nil, &undefinedStaticError{fl: fl, where: where}
			}
			return NumConst(val), nil
		}
		return NumRef(g.internFluent(fl)), nil

	case *pddl.Arith:
		left, err := g.groundNum(v.Left, sub, where)
		if err != nil {
			return nil, err
		}
		right, err := g.groundNum(v.Right, sub, where)
		if err != nil {
			return nil, err
		}
		if lc, lok := left.(NumConst); lok {
			if rc, rok := right.(NumConst); rok {
				if v.Op == pddl.OpDiv && rc == 0 {
					return nil, groundingErrorf("%s: division by zero in ground expression", where)
				}
				return NumConst(evalArith(v.Op, float64(lc), float64(rc))), nil
			}
		}
		return &NumBin{Op: v.Op, Left: left, Right: right}, nil
	}
	return nil, groundingErrorf("%s: unsupported numeric expression", where)
}

func (g *grounder) groundEffect(e pddl.Effect, sub map[string]string, dst *EffectSet, where string) error {
	switch v := e.(type) {
	case *pddl.PropEffect:
		args, err := g.resolveTerms(v.Args, sub, where)
		if err != nil {
			return err
		}
		decl := g.dom.Predicate(v.Predicate)
		if decl == nil {
			return groundingErrorf("%s: effect on undeclared predicate %q", where, v.Predicate)
		}
		if len(args) != len(decl.Params) {
			return groundingErrorf("%s: predicate %q expects %d arguments, got %d", where, v.Predicate, len(decl.Params), len(args))
		}
		for i, name := range args {
			if !g.dom.IsSubtype(g.prob.Object(name).Type, decl.Params[i].Type) {
				return groundingErrorf("%s: object %q is not a %q in effect %q", where, name, decl.Params[i].Type, v.Predicate)
			}
		}
		idx := g.internAtom(Atom{Predicate: v.Predicate, Args: args})
		if v.Delete {
			dst.Del = appendUnique(dst.Del, idx)
		} else {
			dst.Add = appendUnique(dst.Add, idx)
		}
		return nil

	case *pddl.NumEffect:
		args, err := g.resolveTerms(v.Args, sub, where)
		if err != nil {
			return err
		}
		decl := g.dom.Function(v.Function)
		if decl == nil {
			return groundingErrorf("%s: effect on undeclared function %q", where, v.Function)
		}
		if len(args) != len(decl.Params) {
			return groundingErrorf("%s: function %q expects %d arguments, got %d", where, v.Function, len(decl.Params), len(args))
		}
		expr, err := g.groundNum(v.Expr, sub, where)
		if err != nil {
			return asGrounding(err)
		}
		idx := g.internFluent(Fluent{Function: v.Function, Args: args})
		dst.Num = append(dst.Num, NumUpdate{Op: v.Op, Fluent: idx, Expr: expr})
		return nil
	}
	return groundingErrorf("%s: unsupported effect", where)
}

func isUndefinedStatic(err error) bool {
	_, ok := err.(*undefinedStaticError)
	return ok
}

// asGrounding converts an undefined-static reference outside a
// condition into the hard error it is there.
func asGrounding(err error) error {
	if u, ok := err.(*undefinedStaticError); ok {
		return &GroundingError{Msg: u.Error()}
	}
	return err
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func evalCompare(op pddl.CompareOp, a, b float64) bool {
	switch op {
	case pddl.CmpLT:
		return a < b
	case pddl.CmpLE:
		return a <= b
	case pddl.CmpGT:
		return a > b
	case pddl.CmpGE:
		return a >= b
	default:
		return a == b
	}
}

func evalArith(op pddl.ArithOp, a, b float64) float64 {
	switch op {
	case pddl.OpAdd:
		return a + b
	case pddl.OpSub:
		return a - b
	case pddl.OpMul:
		return a * b
	default:
		return a / b
	}
}
