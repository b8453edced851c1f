package pddl

import "strconv"

// RootType is the implicit ancestor of every object type.
const RootType = "object"

// Parameter is a typed formal parameter of a predicate, function, or
// action schema.
type Parameter struct {
	Name string
	Type string
}

// PredicateDecl declares a predicate signature.
type PredicateDecl struct {
	Name   string
	Params []Parameter
}

// FunctionDecl declares a numeric function signature.
type FunctionDecl struct {
	Name   string
	Params []Parameter
}

// ActionSchema is a parametric action. Instantaneous schemas keep all
// conditions and effects tagged AtStart and carry a nil Duration;
// durative schemas carry a duration expression and conditions/effects
// spread over the three qualifiers.
type ActionSchema struct {
	Name       string
	Params     []Parameter
	Durative   bool
	Duration   NumExpr
	Conditions []TimedCondition
	Effects    []TimedEffect
}

// Domain is the parsed planning domain. Immutable once constructed.
type Domain struct {
	Name         string
	Requirements []string

	// Types maps each declared type to its parent. RootType is implicit
	// and maps to "".
	Types map[string]string

	Predicates []PredicateDecl
	Functions  []FunctionDecl
	Actions    []*ActionSchema
}

// Predicate looks up a predicate declaration by name.
func (d *Domain) Predicate(name string) *PredicateDecl {
	for i := range d.Predicates {
		if d.Predicates[i].Name == name {
			return &d.Predicates[i]
		}
	}
	return nil
}

// Function looks up a numeric function declaration by name.
func (d *Domain) Function(name string) *FunctionDecl {
	for i := range d.Functions {
		if d.Functions[i].Name == name {
			return &d.Functions[i]
		}
	}
	return nil
}

// Action looks up an action schema by name.
func (d *Domain) Action(name string) *ActionSchema {
	for _, a := range d.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// HasType reports whether t is RootType or a declared type.
func (d *Domain) HasType(t string) bool {
	if t == RootType {
		return true
	}
	_, ok := d.Types[t]
	return ok
}

// IsSubtype reports whether t equals ancestor or descends from it
// through the declared hierarchy. Every type descends from RootType.
func (d *Domain) IsSubtype(t, ancestor string) bool {
	if ancestor == RootType {
		return true
	}
	for t != "" {
		if t == ancestor {
			return true
		}
		if t == RootType {
			return false
		}
		t = d.Types[t]
	}
	return false
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
