package pddl

import (
	"strconv"
	"strings"

	"github.com/gitrdm/gosmtplan/internal/sexp"
)

// ParseDomain reads a PDDL domain definition from src.
//
// Supported requirements: :strips, :typing, :equality,
// :negative-preconditions, :fluents, :numeric-fluents,
// :durative-actions, :duration-inequalities. Constructs outside the
// subset (conditional effects, quantifiers, timed initial literals)
// are reported as a *ParseError rather than silently dropped.
func ParseDomain(src string) (*Domain, error) {
	root, err := sexp.ParseOne(src)
	if err != nil {
		return nil, wrapSyntax(err)
	}
	if root.Head() != "define" {
		return nil, errAt(root, "expected (define (domain ..) ..)")
	}
	body := root.Tail()
	if len(body) == 0 || body[0].Head() != "domain" || len(body[0].List) != 2 || !body[0].List[1].Leaf {
		return nil, errAt(root, "expected (domain NAME) after define")
	}
	d := &Domain{
		Name:  body[0].List[1].Atom,
		Types: map[string]string{},
	}
	for _, section := range body[1:] {
		switch section.Head() {
		case ":requirements":
			for _, r := range section.Tail() {
				if !r.Leaf {
					return nil, errAt(r, "malformed requirement")
				}
				d.Requirements = append(d.Requirements, r.Atom)
			}
		case ":types":
			decls, err := parseTypedList(section.Tail(), false)
			if err != nil {
				return nil, err
			}
			for _, t := range decls {
				d.Types[t.Name] = t.Type
			}
		case ":constants":
			return nil, errAt(section, ":constants are not supported; declare objects in the problem")
		case ":predicates":
			for _, p := range section.Tail() {
				if p.Leaf || len(p.List) == 0 || !p.List[0].Leaf {
					return nil, errAt(p, "malformed predicate declaration")
				}
				params, err := parseTypedList(p.Tail(), true)
				if err != nil {
					return nil, err
				}
				d.Predicates = append(d.Predicates, PredicateDecl{Name: p.Head(), Params: params})
			}
		case ":functions":
			decls := section.Tail()
			for i := 0; i < len(decls); i++ {
				f := decls[i]
				// A trailing "- number" applies to the preceding
				// declarations and carries no information here.
				if f.Leaf && f.Atom == "-" {
					i++
					continue
				}
				if f.Leaf || len(f.List) == 0 || !f.List[0].Leaf {
					return nil, errAt(f, "malformed function declaration")
				}
				params, err := parseTypedList(f.Tail(), true)
				if err != nil {
					return nil, err
				}
				d.Functions = append(d.Functions, FunctionDecl{Name: f.Head(), Params: params})
			}
		case ":action":
			a, err := parseAction(section)
			if err != nil {
				return nil, err
			}
			d.Actions = append(d.Actions, a)
		case ":durative-action":
			a, err := parseDurativeAction(section)
			if err != nil {
				return nil, err
			}
			d.Actions = append(d.Actions, a)
		default:
			return nil, errAt(section, "unsupported domain section %q", section.Head())
		}
	}
	return d, nil
}

// ParseProblem reads a PDDL problem definition from src.
func ParseProblem(src string) (*Problem, error) {
	root, err := sexp.ParseOne(src)
	if err != nil {
		return nil, wrapSyntax(err)
	}
	if root.Head() != "define" {
		return nil, errAt(root, "expected (define (problem ..) ..)")
	}
	body := root.Tail()
	if len(body) == 0 || body[0].Head() != "problem" || len(body[0].List) != 2 || !body[0].List[1].Leaf {
		return nil, errAt(root, "expected (problem NAME) after define")
	}
	p := &Problem{Name: body[0].List[1].Atom}
	for _, section := range body[1:] {
		switch section.Head() {
		case ":domain":
			if len(section.List) != 2 || !section.List[1].Leaf {
				return nil, errAt(section, "malformed :domain reference")
			}
			p.DomainName = section.List[1].Atom
		case ":objects":
			decls, err := parseTypedList(section.Tail(), false)
			if err != nil {
				return nil, err
			}
			for _, o := range decls {
				p.Objects = append(p.Objects, Object{Name: o.Name, Type: o.Type})
			}
		case ":init":
			for _, f := range section.Tail() {
				if err := parseInitElement(p, f); err != nil {
					return nil, err
				}
			}
		case ":goal":
			if len(section.List) != 2 {
				return nil, errAt(section, "malformed :goal")
			}
			goal, err := parseCondition(section.List[1])
			if err != nil {
				return nil, err
			}
			p.Goal = goal
		case ":metric":
			// Plan metrics are outside the bounded-satisfiability
			// contract; accepted and ignored.
		default:
			return nil, errAt(section, "unsupported problem section %q", section.Head())
		}
	}
	return p, nil
}

func parseInitElement(p *Problem, f sexp.Node) error {
	if f.Leaf || len(f.List) == 0 || !f.List[0].Leaf {
		return errAt(f, "malformed init element")
	}
	switch f.Head() {
	case "=":
		if len(f.List) != 3 {
			return errAt(f, "malformed init assignment")
		}
		target := f.List[1]
		if target.Leaf || len(target.List) == 0 || !target.List[0].Leaf {
			return errAt(target, "init assignment target must be a fluent")
		}
		args, err := parseObjectNames(target.Tail())
		if err != nil {
			return err
		}
		if !f.List[2].Leaf {
			return errAt(f.List[2], "init assignment value must be a number")
		}
		v, err := strconv.ParseFloat(f.List[2].Atom, 64)
		if err != nil {
			return errAt(f.List[2], "init assignment value must be a number")
		}
		p.InitValues = append(p.InitValues, Assignment{Function: target.Head(), Args: args, Value: v})
	case "not":
		// Closed-world initial states make negative facts redundant.
		return errAt(f, "negative init facts are not supported")
	case "at":
		if len(f.List) > 1 && f.List[1].Leaf {
			if _, err := strconv.ParseFloat(f.List[1].Atom, 64); err == nil {
				return errAt(f, "timed initial literals are not supported")
			}
		}
		fallthrough
	default:
		args, err := parseObjectNames(f.Tail())
		if err != nil {
			return err
		}
		p.Init = append(p.Init, Fact{Predicate: f.Head(), Args: args})
	}
	return nil
}

func parseObjectNames(nodes []sexp.Node) ([]string, error) {
	var out []string
	for _, n := range nodes {
		if !n.Leaf || strings.HasPrefix(n.Atom, "?") {
			return nil, errAt(n, "expected object name")
		}
		out = append(out, n.Atom)
	}
	return out, nil
}

// parseTypedList reads a PDDL typed list such as "?a ?b - loc ?m -
// machine". Names without a trailing type default to RootType. When
// wantVars is set, every name must be a ?variable; otherwise plain
// names are required.
func parseTypedList(nodes []sexp.Node, wantVars bool) ([]Parameter, error) {
	var out []Parameter
	var pending []string
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if !n.Leaf {
			return nil, errAt(n, "expected name in typed list")
		}
		if n.Atom == "-" {
			i++
			if i >= len(nodes) || !nodes[i].Leaf {
				return nil, errAt(n, "expected type after '-'")
			}
			for _, name := range pending {
				out = append(out, Parameter{Name: name, Type: nodes[i].Atom})
			}
			pending = nil
			continue
		}
		name := n.Atom
		if wantVars {
			if !strings.HasPrefix(name, "?") {
				return nil, errAt(n, "expected ?variable, found %q", name)
			}
			name = name[1:]
		} else if strings.HasPrefix(name, "?") {
			return nil, errAt(n, "unexpected variable %q", name)
		}
		pending = append(pending, name)
	}
	for _, name := range pending {
		out = append(out, Parameter{Name: name, Type: RootType})
	}
	return out, nil
}

func parseTerms(nodes []sexp.Node) ([]Term, error) {
	var out []Term
	for _, n := range nodes {
		if !n.Leaf {
			return nil, errAt(n, "expected term")
		}
		if strings.HasPrefix(n.Atom, "?") {
			out = append(out, Var(n.Atom[1:]))
		} else {
			out = append(out, Const(n.Atom))
		}
	}
	return out, nil
}

var compareOps = map[string]CompareOp{
	"<":  CmpLT,
	"<=": CmpLE,
	">":  CmpGT,
	">=": CmpGE,
	"=":  CmpEQ,
}

func parseCondition(n sexp.Node) (Condition, error) {
	if n.Leaf {
		return nil, errAt(n, "expected condition")
	}
	head := n.Head()
	switch {
	case head == "and":
		and := &And{}
		for _, c := range n.Tail() {
			sub, err := parseCondition(c)
			if err != nil {
				return nil, err
			}
			and.Conds = append(and.Conds, sub)
		}
		return and, nil
	case head == "or" || head == "imply" || head == "forall" || head == "exists":
		return nil, errAt(n, "%q conditions are not supported", head)
	case head == "not":
		if len(n.List) != 2 {
			return nil, errAt(n, "malformed negation")
		}
		inner, err := parseCondition(n.List[1])
		if err != nil {
			return nil, err
		}
		switch c := inner.(type) {
		case *Literal:
			c.Negated = !c.Negated
			return c, nil
		case *Comparison:
			if c.Op == CmpEQ {
				return nil, errAt(n, "negated numeric equality is not supported")
			}
			c.Op = c.Op.Inverse()
			return c, nil
		default:
			return nil, errAt(n, "negation applies only to literals and comparisons")
		}
	case head == "=" && isEqualityLiteral(n):
		args, err := parseTerms(n.Tail())
		if err != nil {
			return nil, err
		}
		return &Literal{Predicate: "=", Args: args}, nil
	default:
		if op, ok := compareOps[head]; ok {
			if len(n.List) != 3 {
				return nil, errAt(n, "comparison takes two arguments")
			}
			left, err := parseNumExpr(n.List[1])
			if err != nil {
				return nil, err
			}
			right, err := parseNumExpr(n.List[2])
			if err != nil {
				return nil, err
			}
			return &Comparison{Op: op, Left: left, Right: right}, nil
		}
		if head == "" {
			return nil, errAt(n, "expected condition")
		}
		args, err := parseTerms(n.Tail())
		if err != nil {
			return nil, err
		}
		return &Literal{Predicate: head, Args: args}, nil
	}
}

// isEqualityLiteral distinguishes object equality (= ?a ?b) from the
// numeric comparison (= (f ..) expr): equality has two leaf arguments
// neither of which is a number.
func isEqualityLiteral(n sexp.Node) bool {
	if len(n.List) != 3 {
		return false
	}
	for _, arg := range n.List[1:] {
		if !arg.Leaf {
			return false
		}
		if _, err := strconv.ParseFloat(arg.Atom, 64); err == nil {
			return false
		}
	}
	return true
}

var arithOps = map[string]ArithOp{
	"+": OpAdd,
	"-": OpSub,
	"*": OpMul,
	"/": OpDiv,
}

func parseNumExpr(n sexp.Node) (NumExpr, error) {
	if n.Leaf {
		v, err := strconv.ParseFloat(n.Atom, 64)
		if err != nil {
			return nil, errAt(n, "expected number or fluent, found %q", n.Atom)
		}
		return &Number{Value: v}, nil
	}
	head := n.Head()
	if op, ok := arithOps[head]; ok {
		args := n.Tail()
		switch {
		case len(args) == 1 && op == OpSub:
			inner, err := parseNumExpr(args[0])
			if err != nil {
				return nil, err
			}
			return &Arith{Op: OpSub, Left: &Number{}, Right: inner}, nil
		case len(args) >= 2:
			acc, err := parseNumExpr(args[0])
			if err != nil {
				return nil, err
			}
			for _, a := range args[1:] {
				next, err := parseNumExpr(a)
				if err != nil {
					return nil, err
				}
				acc = &Arith{Op: op, Left: acc, Right: next}
			}
			return acc, nil
		default:
			return nil, errAt(n, "arithmetic %q takes at least two arguments", head)
		}
	}
	if head == "" {
		return nil, errAt(n, "expected numeric expression")
	}
	args, err := parseTerms(n.Tail())
	if err != nil {
		return nil, err
	}
	return &FluentRef{Function: head, Args: args}, nil
}

func parseAction(n sexp.Node) (*ActionSchema, error) {
	body := n.Tail()
	if len(body) == 0 || !body[0].Leaf {
		return nil, errAt(n, "malformed :action")
	}
	a := &ActionSchema{Name: body[0].Atom}
	for i := 1; i < len(body); i += 2 {
		if !body[i].Leaf || i+1 >= len(body) {
			return nil, errAt(body[i], "malformed :action clause")
		}
		value := body[i+1]
		switch body[i].Atom {
		case ":parameters":
			params, err := parseTypedList(value.List, true)
			if err != nil {
				return nil, err
			}
			a.Params = params
		case ":precondition":
			cond, err := parseCondition(value)
			if err != nil {
				return nil, err
			}
			a.Conditions = append(a.Conditions, TimedCondition{When: AtStart, Cond: cond})
		case ":effect":
			effs, err := parseEffectTree(value, AtStart)
			if err != nil {
				return nil, err
			}
			a.Effects = append(a.Effects, effs...)
		default:
			return nil, errAt(body[i], "unsupported action clause %q", body[i].Atom)
		}
	}
	return a, nil
}

func parseDurativeAction(n sexp.Node) (*ActionSchema, error) {
	body := n.Tail()
	if len(body) == 0 || !body[0].Leaf {
		return nil, errAt(n, "malformed :durative-action")
	}
	a := &ActionSchema{Name: body[0].Atom, Durative: true}
	for i := 1; i < len(body); i += 2 {
		if !body[i].Leaf || i+1 >= len(body) {
			return nil, errAt(body[i], "malformed :durative-action clause")
		}
		value := body[i+1]
		switch body[i].Atom {
		case ":parameters":
			params, err := parseTypedList(value.List, true)
			if err != nil {
				return nil, err
			}
			a.Params = params
		case ":duration":
			// (= ?duration EXPR)
			if value.Head() != "=" || len(value.List) != 3 || !value.List[1].Leaf || value.List[1].Atom != "?duration" {
				return nil, errAt(value, "expected (= ?duration EXPR)")
			}
			dur, err := parseNumExpr(value.List[2])
			if err != nil {
				return nil, err
			}
			a.Duration = dur
		case ":condition":
			conds, err := parseTimedConditions(value)
			if err != nil {
				return nil, err
			}
			a.Conditions = append(a.Conditions, conds...)
		case ":effect":
			effs, err := parseTimedEffects(value)
			if err != nil {
				return nil, err
			}
			a.Effects = append(a.Effects, effs...)
		default:
			return nil, errAt(body[i], "unsupported durative-action clause %q", body[i].Atom)
		}
	}
	if a.Duration == nil {
		return nil, errAt(n, "durative action %q has no :duration", a.Name)
	}
	return a, nil
}

// qualifierOf reads the (at start ..) / (over all ..) / (at end ..)
// wrapper and returns the wrapped node.
func qualifierOf(n sexp.Node) (Qualifier, sexp.Node, bool) {
	if n.Leaf || len(n.List) != 3 || !n.List[0].Leaf || !n.List[1].Leaf {
		return 0, sexp.Node{}, false
	}
	switch n.List[0].Atom + " " + n.List[1].Atom {
	case "at start":
		return AtStart, n.List[2], true
	case "over all":
		return OverAll, n.List[2], true
	case "at end":
		return AtEnd, n.List[2], true
	}
	return 0, sexp.Node{}, false
}

func parseTimedConditions(n sexp.Node) ([]TimedCondition, error) {
	if n.Head() == "and" {
		var out []TimedCondition
		for _, c := range n.Tail() {
			sub, err := parseTimedConditions(c)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	when, inner, ok := qualifierOf(n)
	if !ok {
		return nil, errAt(n, "durative condition must be tagged (at start ..), (over all ..), or (at end ..)")
	}
	cond, err := parseCondition(inner)
	if err != nil {
		return nil, err
	}
	return []TimedCondition{{When: when, Cond: cond}}, nil
}

func parseTimedEffects(n sexp.Node) ([]TimedEffect, error) {
	if n.Head() == "and" {
		var out []TimedEffect
		for _, c := range n.Tail() {
			sub, err := parseTimedEffects(c)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	when, inner, ok := qualifierOf(n)
	if !ok {
		return nil, errAt(n, "durative effect must be tagged (at start ..) or (at end ..)")
	}
	if when == OverAll {
		return nil, errAt(n, "effects cannot be tagged (over all ..)")
	}
	return parseEffectTree(inner, when)
}

func parseEffectTree(n sexp.Node, when Qualifier) ([]TimedEffect, error) {
	if n.Leaf {
		return nil, errAt(n, "expected effect")
	}
	switch head := n.Head(); head {
	case "and":
		var out []TimedEffect
		for _, c := range n.Tail() {
			sub, err := parseEffectTree(c, when)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case "not":
		if len(n.List) != 2 || n.List[1].Leaf || n.List[1].Head() == "" {
			return nil, errAt(n, "malformed delete effect")
		}
		target := n.List[1]
		args, err := parseTerms(target.Tail())
		if err != nil {
			return nil, err
		}
		return []TimedEffect{{When: when, Eff: &PropEffect{Predicate: target.Head(), Args: args, Delete: true}}}, nil
	case "assign", "increase", "decrease":
		if len(n.List) != 3 {
			return nil, errAt(n, "malformed numeric effect")
		}
		target := n.List[1]
		if target.Leaf || len(target.List) == 0 || !target.List[0].Leaf {
			return nil, errAt(target, "numeric effect target must be a fluent")
		}
		args, err := parseTerms(target.Tail())
		if err != nil {
			return nil, err
		}
		expr, err := parseNumExpr(n.List[2])
		if err != nil {
			return nil, err
		}
		var op AssignOp
		switch head {
		case "assign":
			op = Assign
		case "increase":
			op = Increase
		case "decrease":
			op = Decrease
		}
		return []TimedEffect{{When: when, Eff: &NumEffect{Op: op, Function: target.Head(), Args: args, Expr: expr}}}, nil
	case "when", "forall":
		return nil, errAt(n, "%q effects are not supported", head)
	case "":
		return nil, errAt(n, "expected effect")
	default:
		args, err := parseTerms(n.Tail())
		if err != nil {
			return nil, err
		}
		return []TimedEffect{{When: when, Eff: &PropEffect{Predicate: head, Args: args}}}, nil
	}
}
