package planner

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/gitrdm/gosmtplan/pkg/pddl"
	"github.com/gitrdm/gosmtplan/pkg/smt"
)

// Encoder translates the grounded model into bounded SMT formula
// documents. One Encoder serves many happening counts: Encode carries
// no state between invocations, so a single Encoder may be shared by
// concurrent speculative trials.
//
// The encoding, for n happenings indexed 0..n-1:
//
//   - One real timestamp per happening, strictly increasing with the
//     index and anchored at zero. Strict monotonicity is a deliberate
//     choice: events that could share an instant occupy adjacent
//     happenings instead, so every model is a totally ordered trace.
//     Timestamps are omitted entirely when no durative action exists,
//     which keeps purely propositional domains inside the boolean
//     fragment.
//   - One occurrence boolean per candidate event and happening: a
//     single variable for an instantaneous action, start and end
//     variables for a durative one.
//   - One boolean per proposition and happening holding the fact's
//     value immediately after that happening, and one real per fluent
//     and happening likewise. The pre-state of happening 0 is the
//     initial state, folded in as constants.
//   - For each durative action, a running boolean plus carried
//     start-time and duration reals that tie its end event to the
//     timestamp at which the duration expires, and force its over-all
//     conditions at every happening it spans.
//
// When pruning is enabled, variables and constraints are generated
// only for elements the relaxed graph proved reachable; an unreachable
// proposition is constant false, so the restriction never changes
// satisfiability, only formula size.
type Encoder struct {
	model *Model
	reach *Reachability
	opts  Options
}

// NewEncoder returns an encoder over the given immutable model and
// reachability classification.
func NewEncoder(m *Model, r *Reachability, opts Options) *Encoder {
	return &Encoder{model: m, reach: r, opts: opts}
}

// Encode produces the formula document for exactly n happenings.
// n must be positive.
func (e *Encoder) Encode(n int) (*smt.Document, error) {
	if n < 1 {
		return nil, errors.Errorf("happening count must be positive, got %d", n)
	}
	c := &encoding{Encoder: e, n: n, doc: smt.NewDocument()}
	c.declare()
	c.constrainTime()
	c.constrainActions()
	c.constrainFrame()
	c.constrainFluents()
	c.constrainMutexes()
	c.constrainGoal()
	return c.doc, nil
}

// Event kinds. A durative action contributes a start and an end event;
// an instantaneous action contributes a single event.
const (
	evInstant = iota
	evStart
	evEnd
)

type event struct {
	action int
	kind   int
}

// encoding is the context of one Encode invocation: the variable
// tables mapping model elements and happenings to solver symbols.
// Discarded once the document is built.
type encoding struct {
	*Encoder
	n   int
	doc *smt.Document

	time     []smt.Term
	atomVar  [][]smt.Term // [atom][happening], nil row when pruned
	fluent   [][]smt.Term
	occVar   [][]smt.Term // instantaneous occurrence
	staVar   [][]smt.Term
	endVar   [][]smt.Term
	runVar   [][]smt.Term
	startAt  [][]smt.Term // carried start timestamp
	duration [][]smt.Term // carried duration

	events []event
}

func (c *encoding) atomActive(i int) bool {
	return !c.opts.Prune || c.reach.AtomReachable(i)
}

func (c *encoding) actionActive(i int) bool {
	return !c.opts.Prune || c.reach.ActionReachable(i)
}

func (c *encoding) needTime() bool {
	for i, a := range c.model.Actions {
		if a.Durative && c.actionActive(i) {
			return true
		}
	}
	return false
}

func (c *encoding) declare() {
	m := c.model
	if c.needTime() {
		c.time = make([]smt.Term, c.n)
		for h := 0; h < c.n; h++ {
			c.time[h] = c.doc.Declare("t@"+strconv.Itoa(h), smt.Real)
		}
	}
	c.atomVar = make([][]smt.Term, len(m.Atoms))
	for i := range m.Atoms {
		if !c.atomActive(i) {
			continue
		}
		row := make([]smt.Term, c.n)
		for h := 0; h < c.n; h++ {
			row[h] = c.doc.Declare(c.atomName(i, h), smt.Bool)
		}
		c.atomVar[i] = row
	}
	c.fluent = make([][]smt.Term, len(m.Fluents))
	for j := range m.Fluents {
		row := make([]smt.Term, c.n)
		for h := 0; h < c.n; h++ {
			row[h] = c.doc.Declare(c.fluentName(j, h), smt.Real)
		}
		c.fluent[j] = row
	}

	c.occVar = make([][]smt.Term, len(m.Actions))
	c.staVar = make([][]smt.Term, len(m.Actions))
	c.endVar = make([][]smt.Term, len(m.Actions))
	c.runVar = make([][]smt.Term, len(m.Actions))
	c.startAt = make([][]smt.Term, len(m.Actions))
	c.duration = make([][]smt.Term, len(m.Actions))
	for i, a := range m.Actions {
		if !c.actionActive(i) {
			continue
		}
		if !a.Durative {
			c.occVar[i] = c.declareRow("occ", i)
			c.events = append(c.events, event{action: i, kind: evInstant})
			continue
		}
		c.staVar[i] = c.declareRow("sta", i)
		c.endVar[i] = c.declareRow("end", i)
		c.runVar[i] = c.declareRow("run", i)
		c.startAt[i] = c.declareRealRow("ts", i)
		c.duration[i] = c.declareRealRow("dur", i)
		c.events = append(c.events,
			event{action: i, kind: evStart},
			event{action: i, kind: evEnd})
	}
}

func (c *encoding) declareRow(prefix string, action int) []smt.Term {
	row := make([]smt.Term, c.n)
	for h := 0; h < c.n; h++ {
		row[h] = c.doc.Declare(c.actionName(prefix, action, h), smt.Bool)
	}
	return row
}

func (c *encoding) declareRealRow(prefix string, action int) []smt.Term {
	row := make([]smt.Term, c.n)
	for h := 0; h < c.n; h++ {
		row[h] = c.doc.Declare(c.actionName(prefix, action, h), smt.Real)
	}
	return row
}

// Variable naming. Explanatory names embed predicate, object, and
// happening identifiers; terse names use dense indices. The choice is
// cosmetic and never affects formula semantics: name segments are
// joined with '.', which cannot occur in a PDDL identifier, so two
// distinct atoms or actions never share a symbol.

func (c *encoding) atomName(i, h int) string {
	if c.opts.ExplanatoryNames {
		return mangle(c.model.Atoms[i].Predicate, c.model.Atoms[i].Args) + "@" + strconv.Itoa(h)
	}
	return "p" + strconv.Itoa(i) + "@" + strconv.Itoa(h)
}

func (c *encoding) fluentName(j, h int) string {
	if c.opts.ExplanatoryNames {
		return "f." + mangle(c.model.Fluents[j].Function, c.model.Fluents[j].Args) + "@" + strconv.Itoa(h)
	}
	return "f" + strconv.Itoa(j) + "@" + strconv.Itoa(h)
}

func (c *encoding) actionName(prefix string, i, h int) string {
	if c.opts.ExplanatoryNames {
		a := c.model.Actions[i]
		return prefix + "." + mangle(a.Schema.Name, a.Args) + "@" + strconv.Itoa(h)
	}
	return prefix + strconv.Itoa(i) + "@" + strconv.Itoa(h)
}

func mangle(name string, args []string) string {
	out := name
	for _, a := range args {
		out += "." + a
	}
	return out
}

// atomAt is the truth value of atom i in the state after happening h;
// h == -1 denotes the initial state. Pruned atoms are constant false:
// unreachable implies absent from the initial state and never added.
func (c *encoding) atomAt(i, h int) smt.Term {
	if c.atomVar[i] == nil {
		return smt.BoolConst(c.model.InitAtoms[i])
	}
	if h < 0 {
		return smt.BoolConst(c.model.InitAtoms[i])
	}
	return c.atomVar[i][h]
}

// fluentAt is the value of fluent j in the state after happening h;
// h == -1 denotes the initial state.
func (c *encoding) fluentAt(j, h int) smt.Term {
	if h < 0 {
		return smt.RealConst(c.model.InitFluents[j])
	}
	return c.fluent[j][h]
}

// numAt translates a ground numeric term over the state after
// happening h.
func (c *encoding) numAt(t NumTerm, h int) smt.Term {
	switch v := t.(type) {
	case NumConst:
		return smt.RealConst(v)
	case NumRef:
		return c.fluentAt(int(v), h)
	case *NumBin:
		left, right := c.numAt(v.Left, h), c.numAt(v.Right, h)
		switch v.Op {
		case pddl.OpAdd:
			return smt.Add(left, right)
		case pddl.OpSub:
			return smt.Sub(left, right)
		case pddl.OpMul:
			return smt.Mul(left, right)
		default:
			return smt.Div(left, right)
		}
	}
	panic("planner: unknown numeric term")
}

// condAt translates a ground condition over the state after happening
// h (pass the preceding index for a pre-state condition).
func (c *encoding) condAt(cond Cond, h int) smt.Term {
	if cond.Impossible {
		return smt.BoolConst(false)
	}
	terms := make([]smt.Term, 0, len(cond.Pos)+len(cond.Neg)+len(cond.Num))
	for _, p := range cond.Pos {
		terms = append(terms, c.atomAt(p, h))
	}
	for _, n := range cond.Neg {
		terms = append(terms, smt.Not(c.atomAt(n, h)))
	}
	for _, nc := range cond.Num {
		left, right := c.numAt(nc.Left, h), c.numAt(nc.Right, h)
		switch nc.Op {
		case pddl.CmpLT:
			terms = append(terms, smt.Lt(left, right))
		case pddl.CmpLE:
			terms = append(terms, smt.Le(left, right))
		case pddl.CmpGT:
			terms = append(terms, smt.Gt(left, right))
		case pddl.CmpGE:
			terms = append(terms, smt.Ge(left, right))
		default:
			terms = append(terms, smt.Eq(left, right))
		}
	}
	return smt.And(terms...)
}

func (c *encoding) eventVar(ev event, h int) smt.Term {
	switch ev.kind {
	case evInstant:
		return c.occVar[ev.action][h]
	case evStart:
		return c.staVar[ev.action][h]
	default:
		return c.endVar[ev.action][h]
	}
}

func (c *encoding) eventEffects(ev event) *EffectSet {
	a := c.model.Actions[ev.action]
	if ev.kind == evEnd {
		return &a.EndEff
	}
	return &a.StartEff
}

// constrainTime anchors happening 0 at time zero and orders the
// remaining timestamps strictly.
func (c *encoding) constrainTime() {
	if c.time == nil {
		return
	}
	c.doc.Assert(smt.Eq(c.time[0], smt.RealConst(0)))
	for h := 1; h < c.n; h++ {
		c.doc.Assert(smt.Lt(c.time[h-1], c.time[h]))
	}
}

// constrainActions emits precondition, duration, and start/end
// pairing constraints for every active action at every happening.
func (c *encoding) constrainActions() {
	for i, a := range c.model.Actions {
		if !c.actionActive(i) {
			continue
		}
		if !a.Durative {
			for h := 0; h < c.n; h++ {
				c.doc.Assert(smt.Implies(c.occVar[i][h], c.condAt(a.Start, h-1)))
			}
			continue
		}
		c.constrainDurative(i, a)
	}
}

func (c *encoding) constrainDurative(i int, a *Action) {
	sta, end, run := c.staVar[i], c.endVar[i], c.runVar[i]
	ts, dur := c.startAt[i], c.duration[i]
	if a.Impossible() {
		// Unexecutable in every state; pin the whole schedule false.
		for h := 0; h < c.n; h++ {
			c.doc.Assert(smt.Not(sta[h]))
			c.doc.Assert(smt.Not(end[h]))
			c.doc.Assert(smt.Not(run[h]))
		}
		return
	}
	for h := 0; h < c.n; h++ {
		// Preconditions per temporal qualifier: at-start against the
		// pre-state, at-end against the post-state, over-all at every
		// happening the action spans.
		c.doc.Assert(smt.Implies(sta[h], c.condAt(a.Start, h-1)))
		c.doc.Assert(smt.Implies(end[h], c.condAt(a.End, h)))
		c.doc.Assert(smt.Implies(run[h], c.condAt(a.Over, h)))

		// Start/end bookkeeping. An action cannot start and end at the
		// same happening, cannot overlap itself, and runs after a
		// happening iff it started there or was already running and
		// did not end.
		c.doc.Assert(smt.Or(smt.Not(sta[h]), smt.Not(end[h])))
		runPrev := smt.Term(smt.BoolConst(false))
		if h > 0 {
			runPrev = run[h-1]
		}
		c.doc.Assert(smt.Iff(run[h], smt.Or(sta[h], smt.And(runPrev, smt.Not(end[h])))))
		c.doc.Assert(smt.Implies(end[h], runPrev))
		c.doc.Assert(smt.Implies(sta[h], smt.Not(runPrev)))

		// Carried start time and duration: fixed at the start event,
		// propagated unchanged while running.
		durExpr := c.numAt(a.Duration, h-1)
		c.doc.Assert(smt.Implies(sta[h], smt.And(
			smt.Eq(ts[h], c.time[h]),
			smt.Eq(dur[h], durExpr),
			smt.Gt(dur[h], smt.RealConst(0)),
		)))
		if h > 0 {
			c.doc.Assert(smt.Implies(smt.And(run[h], smt.Not(sta[h])), smt.And(
				smt.Eq(ts[h], ts[h-1]),
				smt.Eq(dur[h], dur[h-1]),
			)))
			// The end event fires exactly when the duration expires.
			c.doc.Assert(smt.Implies(end[h], smt.Eq(c.time[h], smt.Add(ts[h-1], dur[h-1]))))
		}
	}
	// Every started action must finish within the horizon.
	c.doc.Assert(smt.Not(run[c.n-1]))
}

// constrainFrame emits the frame axiom for every active atom at every
// happening: true afterwards iff added there, or already true and not
// deleted. At happening 0 the pre-state is the initial constant, which
// is what anchors the encoding to the problem's initial facts.
func (c *encoding) constrainFrame() {
	adders := make([][]event, len(c.model.Atoms))
	deleters := make([][]event, len(c.model.Atoms))
	for _, ev := range c.events {
		eff := c.eventEffects(ev)
		for _, i := range eff.Add {
			adders[i] = append(adders[i], ev)
		}
		for _, i := range eff.Del {
			deleters[i] = append(deleters[i], ev)
		}
	}
	for i := range c.model.Atoms {
		if c.atomVar[i] == nil {
			continue
		}
		for h := 0; h < c.n; h++ {
			addTerms := make([]smt.Term, 0, len(adders[i]))
			for _, ev := range adders[i] {
				addTerms = append(addTerms, c.eventVar(ev, h))
			}
			delTerms := make([]smt.Term, 0, len(deleters[i]))
			for _, ev := range deleters[i] {
				delTerms = append(delTerms, c.eventVar(ev, h))
			}
			value := smt.Or(
				smt.Or(addTerms...),
				smt.And(c.atomAt(i, h-1), smt.Not(smt.Or(delTerms...))),
			)
			c.doc.Assert(smt.Iff(c.atomVar[i][h], value))
		}
	}
}

// constrainFluents emits the numeric update and frame constraints.
// Mutexes guarantee at most one writer per fluent per happening, so
// each writer's update and the no-writer frame are well-defined.
func (c *encoding) constrainFluents() {
	writers := make([][]event, len(c.model.Fluents))
	updates := make([][]NumUpdate, len(c.model.Fluents))
	for _, ev := range c.events {
		for _, u := range c.eventEffects(ev).Num {
			writers[u.Fluent] = append(writers[u.Fluent], ev)
			updates[u.Fluent] = append(updates[u.Fluent], u)
		}
	}
	for j := range c.model.Fluents {
		for h := 0; h < c.n; h++ {
			occs := make([]smt.Term, 0, len(writers[j]))
			for k, ev := range writers[j] {
				u := updates[j][k]
				v := c.eventVar(ev, h)
				occs = append(occs, v)
				var next smt.Term
				switch u.Op {
				case pddl.Assign:
					next = c.numAt(u.Expr, h-1)
				case pddl.Increase:
					next = smt.Add(c.fluentAt(j, h-1), c.numAt(u.Expr, h-1))
				default:
					next = smt.Sub(c.fluentAt(j, h-1), c.numAt(u.Expr, h-1))
				}
				c.doc.Assert(smt.Implies(v, smt.Eq(c.fluent[j][h], next)))
			}
			frame := smt.Eq(c.fluent[j][h], c.fluentAt(j, h-1))
			if len(occs) == 0 {
				c.doc.Assert(frame)
			} else {
				c.doc.Assert(smt.Implies(smt.Not(smt.Or(occs...)), frame))
			}
		}
	}
}

// constrainMutexes forbids scheduling two interfering events at the
// same happening. Interference is effect-level: one event deletes what
// the other adds or requires, or they touch a common fluent with at
// least one write.
func (c *encoding) constrainMutexes() {
	for x := 0; x < len(c.events); x++ {
		for y := x + 1; y < len(c.events); y++ {
			e1, e2 := c.events[x], c.events[y]
			if e1.action == e2.action {
				// The start/end pair of one action is already ordered
				// by the bookkeeping constraints.
				continue
			}
			if !c.interfere(e1, e2) {
				continue
			}
			for h := 0; h < c.n; h++ {
				c.doc.Assert(smt.Or(smt.Not(c.eventVar(e1, h)), smt.Not(c.eventVar(e2, h))))
			}
		}
	}
}

func (c *encoding) interfere(e1, e2 event) bool {
	eff1, eff2 := c.eventEffects(e1), c.eventEffects(e2)
	if intersects(eff1.Del, eff2.Add) || intersects(eff2.Del, eff1.Add) {
		return true
	}
	if intersects(eff1.Del, c.eventPre(e2)) || intersects(eff2.Del, c.eventPre(e1)) {
		return true
	}
	w1, r1 := c.eventFluents(e1)
	w2, r2 := c.eventFluents(e2)
	return intersects(w1, w2) || intersects(w1, r2) || intersects(w2, r1)
}

// eventPre returns the positive condition atoms checked at the event
// itself.
func (c *encoding) eventPre(ev event) []int {
	a := c.model.Actions[ev.action]
	if ev.kind == evEnd {
		return a.End.Pos
	}
	return a.Start.Pos
}

// eventFluents returns the fluents written and read by the event.
func (c *encoding) eventFluents(ev event) (writes, reads []int) {
	a := c.model.Actions[ev.action]
	eff := c.eventEffects(ev)
	for _, u := range eff.Num {
		writes = appendUnique(writes, u.Fluent)
		reads = collectFluents(u.Expr, reads)
	}
	cond := &a.Start
	if ev.kind == evEnd {
		cond = &a.End
	}
	for _, nc := range cond.Num {
		reads = collectFluents(nc.Left, reads)
		reads = collectFluents(nc.Right, reads)
	}
	if ev.kind == evStart && a.Duration != nil {
		reads = collectFluents(a.Duration, reads)
	}
	return writes, reads
}

func collectFluents(t NumTerm, acc []int) []int {
	switch v := t.(type) {
	case NumRef:
		return appendUnique(acc, int(v))
	case *NumBin:
		return collectFluents(v.Right, collectFluents(v.Left, acc))
	}
	return acc
}

func intersects(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// constrainGoal requires the goal in the state after the final
// happening.
func (c *encoding) constrainGoal() {
	c.doc.Assert(c.condAt(c.model.Goal, c.n-1))
}
