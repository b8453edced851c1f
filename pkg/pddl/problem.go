package pddl

// Object is a concrete object declared by the problem.
type Object struct {
	Name string
	Type string
}

// Fact is a ground proposition listed in the initial state.
type Fact struct {
	Predicate string
	Args      []string
}

// Assignment is an initial value for a ground numeric fluent.
type Assignment struct {
	Function string
	Args     []string
	Value    float64
}

// Problem is the parsed planning problem. Immutable once constructed.
type Problem struct {
	Name       string
	DomainName string
	Objects    []Object
	Init       []Fact
	InitValues []Assignment
	Goal       Condition
}

// Object looks up a declared object by name.
func (p *Problem) Object(name string) *Object {
	for i := range p.Objects {
		if p.Objects[i].Name == name {
			return &p.Objects[i]
		}
	}
	return nil
}
