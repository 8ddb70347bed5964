// Package reasoner implements Datalog-style inference over a triple
// store: naive and semi-naive forward chaining, a parallel semi-naive
// variant, SLD-style backward chaining with cycle detection, and
// integrity-constraint checking with a most-recently-derived repair
// heuristic, and an approximate intersection-of-all-repairs (IAR)
// certain-answer query mode that withholds every fact involved in a
// violation.
package reasoner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// Atom is one triple pattern inside a rule or constraint body/head, reusing
// the same variable/constant term vocabulary as the query planner.
type Atom struct {
	Subject, Predicate, Object logical.Term
}

// Rule is a Horn clause: Head holds whenever Body holds and Filter (if
// given) evaluates true over Body's bindings. A rule is safe only if every
// variable in Head also appears in Body — unsafe instances are silently
// skipped at derivation time rather than erroring the whole rule set.
type Rule struct {
	Head   Atom
	Body   []Atom
	Filter expr.Expr
}

// Constraint is an integrity constraint: Body (filtered by Filter, if
// given) must never be satisfiable. Any satisfying binding is a violation.
type Constraint struct {
	Body   []Atom
	Filter expr.Expr
}

// Binding maps rule/constraint variable names to bound term IDs.
type Binding map[string]uint32

func (b Binding) clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Reasoner runs Datalog evaluation against one triple store, inserting
// every derived fact back into it so ordinary queries see inferred triples
// exactly like asserted ones.
type Reasoner struct {
	store *store.TripleStore

	mu           sync.Mutex
	derivedOrder map[index.Triple]int
	seq          int
}

// New creates a Reasoner over s.
func New(s *store.TripleStore) *Reasoner {
	return &Reasoner{store: s, derivedOrder: make(map[index.Triple]int)}
}

func (r *Reasoner) markDerived(t index.Triple) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.derivedOrder[t] = r.seq
}

// resolved describes how one atom position relates to a binding in
// progress: already bound to a concrete ID, a still-free variable name, or
// unsatisfiable (a constant term never seen by the dictionary).
type resolved struct {
	bound       bool
	id          uint32
	varName     string
	impossible  bool
}

func (r *Reasoner) resolveTerm(t logical.Term, binding Binding) resolved {
	if t.IsVariable() {
		if id, ok := binding[t.Variable]; ok {
			return resolved{bound: true, id: id}
		}
		return resolved{varName: t.Variable}
	}
	id, ok := r.store.Dictionary().Lookup(t.Constant)
	if !ok {
		return resolved{impossible: true}
	}
	return resolved{bound: true, id: id}
}

func applyVar(nb Binding, res resolved, val uint32) bool {
	if res.bound {
		return true
	}
	if existing, ok := nb[res.varName]; ok {
		return existing == val
	}
	nb[res.varName] = val
	return true
}

// candidatesFor resolves atom's three positions against binding and
// returns the matching triples: from the live store when source is nil, or
// filtered from source (a delta set) otherwise. impossible reports a
// constant position that was never encoded, which can never match
// anything.
func (r *Reasoner) candidatesFor(atom Atom, binding Binding, source []index.Triple) (rs, rp, ro resolved, triples []index.Triple, impossible bool) {
	rs = r.resolveTerm(atom.Subject, binding)
	rp = r.resolveTerm(atom.Predicate, binding)
	ro = r.resolveTerm(atom.Object, binding)
	if rs.impossible || rp.impossible || ro.impossible {
		return rs, rp, ro, nil, true
	}
	var b index.Bound
	if rs.bound {
		b.HasS, b.S = true, rs.id
	}
	if rp.bound {
		b.HasP, b.P = true, rp.id
	}
	if ro.bound {
		b.HasO, b.O = true, ro.id
	}
	if source != nil {
		return rs, rp, ro, filterTriples(source, b), false
	}
	return rs, rp, ro, r.store.Lookup(b), false
}

func filterTriples(ts []index.Triple, b index.Bound) []index.Triple {
	var out []index.Triple
	for _, t := range ts {
		if b.HasS && t.S != b.S {
			continue
		}
		if b.HasP && t.P != b.P {
			continue
		}
		if b.HasO && t.O != b.O {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *Reasoner) matchAtomOver(atom Atom, binding Binding, source []index.Triple) []Binding {
	rs, rp, ro, triples, impossible := r.candidatesFor(atom, binding, source)
	if impossible {
		return nil
	}
	var out []Binding
	for _, t := range triples {
		nb := binding.clone()
		if !applyVar(nb, rs, t.S) {
			continue
		}
		if !applyVar(nb, rp, t.P) {
			continue
		}
		if !applyVar(nb, ro, t.O) {
			continue
		}
		out = append(out, nb)
	}
	return out
}

func (r *Reasoner) applyFilter(bindings []Binding, filter expr.Expr) []Binding {
	if filter == nil {
		return bindings
	}
	dict := r.store.Dictionary()
	var out []Binding
	for _, b := range bindings {
		lookup := func(name string) (string, bool) {
			id, ok := b[name]
			if !ok {
				return "", false
			}
			return dict.Decode(id)
		}
		v, err := expr.Eval(filter, lookup)
		if err != nil || !v.AsBool() {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (r *Reasoner) evaluateBody(body []Atom, filter expr.Expr) []Binding {
	bindings := []Binding{{}}
	for _, atom := range body {
		var next []Binding
		for _, b := range bindings {
			next = append(next, r.matchAtomOver(atom, b, nil)...)
		}
		bindings = next
		if len(bindings) == 0 {
			return nil
		}
	}
	return r.applyFilter(bindings, filter)
}

// evaluateBodyWithDelta evaluates body exactly like evaluateBody except the
// atom at deltaIdx is matched only against delta, not the whole store — the
// semi-naive discipline that keeps each round's work proportional to what
// changed rather than the full fact set.
func (r *Reasoner) evaluateBodyWithDelta(body []Atom, deltaIdx int, delta []index.Triple, filter expr.Expr) []Binding {
	bindings := []Binding{{}}
	for i, atom := range body {
		var source []index.Triple
		if i == deltaIdx {
			source = delta
		}
		var next []Binding
		for _, b := range bindings {
			next = append(next, r.matchAtomOver(atom, b, source)...)
		}
		bindings = next
		if len(bindings) == 0 {
			return nil
		}
	}
	return r.applyFilter(bindings, filter)
}

// resolveHeadTerm resolves one head atom position to a concrete term ID
// given a completed body binding. A constant is encoded (never looked up
// only) since deriving a fact is itself a valid reason to intern a new
// term. An unbound head variable means the rule instance is unsafe and
// must be skipped.
func (r *Reasoner) resolveHeadTerm(t logical.Term, binding Binding) (uint32, bool) {
	if t.IsVariable() {
		id, ok := binding[t.Variable]
		return id, ok
	}
	return r.store.Dictionary().Encode(t.Constant), true
}

func (r *Reasoner) deriveAndInsert(head Atom, b Binding) (index.Triple, bool) {
	sID, ok1 := r.resolveHeadTerm(head.Subject, b)
	pID, ok2 := r.resolveHeadTerm(head.Predicate, b)
	oID, ok3 := r.resolveHeadTerm(head.Object, b)
	if !ok1 || !ok2 || !ok3 {
		return index.Triple{}, false
	}
	t := index.Triple{S: sID, P: pID, O: oID}
	if r.store.Insert(sID, pID, oID) {
		r.markDerived(t)
		return t, true
	}
	return index.Triple{}, false
}

func (r *Reasoner) evaluateRoundFull(rules []Rule) []index.Triple {
	var derived []index.Triple
	for _, rule := range rules {
		for _, b := range r.evaluateBody(rule.Body, rule.Filter) {
			if t, ok := r.deriveAndInsert(rule.Head, b); ok {
				derived = append(derived, t)
			}
		}
	}
	return derived
}

// NaiveEvaluate runs full forward-chaining rounds against rules until a
// round derives nothing new, and returns the total number of facts
// derived.
func (r *Reasoner) NaiveEvaluate(rules []Rule) int {
	total := 0
	for {
		derived := r.evaluateRoundFull(rules)
		total += len(derived)
		if len(derived) == 0 {
			return total
		}
	}
}

func deltaSlice(m map[index.Triple]bool) []index.Triple {
	out := make([]index.Triple, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}

// SemiNaiveEvaluate seeds with one full evaluation round, then repeatedly
// re-evaluates each rule with each body position in turn restricted to the
// previous round's delta, until a round's delta is empty.
func (r *Reasoner) SemiNaiveEvaluate(rules []Rule) int {
	total := 0
	delta := r.evaluateRoundFull(rules)
	total += len(delta)

	for len(delta) > 0 {
		next := make(map[index.Triple]bool)
		for _, rule := range rules {
			for i := range rule.Body {
				for _, b := range r.evaluateBodyWithDelta(rule.Body, i, delta, rule.Filter) {
					if t, ok := r.deriveAndInsert(rule.Head, b); ok {
						next[t] = true
					}
				}
			}
		}
		delta = deltaSlice(next)
		total += len(delta)
	}
	return total
}

// ParallelSemiNaiveEvaluate is SemiNaiveEvaluate with every (rule, body
// position) combination of a round evaluated in its own goroutine. Each
// goroutine derives into the shared store independently (TripleStore
// serializes its own mutations) and records its new facts in its own
// buffer; once all goroutines finish, the buffers are merged into the
// round's delta set single-threaded.
func (r *Reasoner) ParallelSemiNaiveEvaluate(rules []Rule) int {
	total := 0
	delta := r.evaluateRoundFull(rules)
	total += len(delta)

	for len(delta) > 0 {
		var buffers []*[]index.Triple
		next := make(map[index.Triple]bool)

		g, _ := errgroup.WithContext(context.Background())
		for _, rule := range rules {
			rule := rule
			for i := range rule.Body {
				i := i
				out := new([]index.Triple)
				buffers = append(buffers, out)
				g.Go(func() error {
					bindings := r.evaluateBodyWithDelta(rule.Body, i, delta, rule.Filter)
					for _, b := range bindings {
						if t, ok := r.deriveAndInsert(rule.Head, b); ok {
							*out = append(*out, t)
						}
					}
					return nil
				})
			}
		}
		_ = g.Wait()
		for _, out := range buffers {
			for _, t := range *out {
				next[t] = true
			}
		}

		delta = deltaSlice(next)
		total += len(delta)
	}
	return total
}

// atomKey renders goal as instantiated by binding into a canonical string,
// used as the backward-chaining goal stack's cycle-detection key.
func atomKey(goal Atom, binding Binding) string {
	render := func(t logical.Term) string {
		if t.IsVariable() {
			if id, ok := binding[t.Variable]; ok {
				return fmt.Sprintf("=%d", id)
			}
			return "?" + t.Variable
		}
		return "#" + t.Constant
	}
	return render(goal.Subject) + "," + render(goal.Predicate) + "," + render(goal.Object)
}

type posVal struct {
	has bool
	id  uint32
}

func (r *Reasoner) goalPositionValues(goal Atom, binding Binding) ([3]posVal, bool) {
	var out [3]posVal
	terms := [3]logical.Term{goal.Subject, goal.Predicate, goal.Object}
	for i, t := range terms {
		if t.IsVariable() {
			if id, ok := binding[t.Variable]; ok {
				out[i] = posVal{true, id}
			}
			continue
		}
		id, ok := r.store.Dictionary().Lookup(t.Constant)
		if !ok {
			return out, false
		}
		out[i] = posVal{true, id}
	}
	return out, true
}

func (r *Reasoner) unifyHeadWithGoalValues(head Atom, goalValues [3]posVal) (Binding, bool) {
	ruleBinding := Binding{}
	terms := [3]logical.Term{head.Subject, head.Predicate, head.Object}
	for i, t := range terms {
		gv := goalValues[i]
		if !gv.has {
			continue
		}
		if t.IsVariable() {
			if existing, ok := ruleBinding[t.Variable]; ok {
				if existing != gv.id {
					return nil, false
				}
			} else {
				ruleBinding[t.Variable] = gv.id
			}
			continue
		}
		id, ok := r.store.Dictionary().Lookup(t.Constant)
		if !ok || id != gv.id {
			return nil, false
		}
	}
	return ruleBinding, true
}

func (r *Reasoner) projectRuleBindingToGoal(head, goal Atom, ruleBinding, callerBinding Binding) (Binding, bool) {
	out := callerBinding.clone()
	headTerms := [3]logical.Term{head.Subject, head.Predicate, head.Object}
	goalTerms := [3]logical.Term{goal.Subject, goal.Predicate, goal.Object}
	for i, gt := range goalTerms {
		if !gt.IsVariable() {
			continue
		}
		if _, already := out[gt.Variable]; already {
			continue
		}
		ht := headTerms[i]
		var val uint32
		if ht.IsVariable() {
			id, ok := ruleBinding[ht.Variable]
			if !ok {
				return nil, false
			}
			val = id
		} else {
			id, ok := r.store.Dictionary().Lookup(ht.Constant)
			if !ok {
				return nil, false
			}
			val = id
		}
		out[gt.Variable] = val
	}
	return out, true
}

func (r *Reasoner) solveBody(body []Atom, binding Binding, rules []Rule, stack map[string]bool) []Binding {
	bindings := []Binding{binding}
	for _, atom := range body {
		var next []Binding
		for _, b := range bindings {
			next = append(next, r.solve(atom, b, rules, stack)...)
		}
		bindings = next
		if len(bindings) == 0 {
			return nil
		}
	}
	return bindings
}

func (r *Reasoner) solve(goal Atom, binding Binding, rules []Rule, stack map[string]bool) []Binding {
	key := atomKey(goal, binding)
	if stack[key] {
		return nil // classical SLD loop check: this exact goal is already on the stack
	}
	stack[key] = true
	defer delete(stack, key)

	results := r.matchAtomOver(goal, binding, nil)

	goalValues, ok := r.goalPositionValues(goal, binding)
	if !ok {
		return results
	}

	for _, rule := range rules {
		ruleBinding, ok := r.unifyHeadWithGoalValues(rule.Head, goalValues)
		if !ok {
			continue
		}
		subBindings := r.solveBody(rule.Body, ruleBinding, rules, stack)
		subBindings = r.applyFilter(subBindings, rule.Filter)
		for _, sb := range subBindings {
			if out, ok := r.projectRuleBindingToGoal(rule.Head, goal, sb, binding); ok {
				results = append(results, out)
			}
		}
	}
	return results
}

// BackwardChain resolves goal against rules and the current store via SLD
// resolution, returning every satisfying binding. A goal that recurs
// identically along its own resolution path is cut rather than looped
// forever.
func (r *Reasoner) BackwardChain(goal Atom, rules []Rule) []Binding {
	return r.solve(goal, Binding{}, rules, make(map[string]bool))
}

type provenanceBinding struct {
	binding Binding
	triples []index.Triple
}

func (r *Reasoner) evaluateBodyProvenance(body []Atom) []provenanceBinding {
	states := []provenanceBinding{{binding: Binding{}}}
	for _, atom := range body {
		var next []provenanceBinding
		for _, st := range states {
			rs, rp, ro, triples, impossible := r.candidatesFor(atom, st.binding, nil)
			if impossible {
				continue
			}
			for _, t := range triples {
				nb := st.binding.clone()
				if !applyVar(nb, rs, t.S) {
					continue
				}
				if !applyVar(nb, rp, t.P) {
					continue
				}
				if !applyVar(nb, ro, t.O) {
					continue
				}
				nt := append(append([]index.Triple{}, st.triples...), t)
				next = append(next, provenanceBinding{binding: nb, triples: nt})
			}
		}
		states = next
		if len(states) == 0 {
			return nil
		}
	}
	return states
}

// CheckViolations evaluates every constraint against the current store and
// returns, for each satisfying binding, the triples that jointly produced
// it — the constraint's participating facts.
func (r *Reasoner) CheckViolations(constraints []Constraint) [][]index.Triple {
	var violations [][]index.Triple
	for _, c := range constraints {
		for _, st := range r.evaluateBodyProvenance(c.Body) {
			if c.Filter != nil && len(r.applyFilter([]Binding{st.binding}, c.Filter)) == 0 {
				continue
			}
			violations = append(violations, st.triples)
		}
	}
	return violations
}

func (r *Reasoner) mostRecentlyDerived(triples []index.Triple) (index.Triple, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best index.Triple
	bestOrder := -1
	found := false
	for _, t := range triples {
		if order, ok := r.derivedOrder[t]; ok && order > bestOrder {
			bestOrder = order
			best = t
			found = true
		}
	}
	return best, found
}

// Repair removes violations by repeatedly deleting, from each still-open
// violation, the most recently derived participating fact — never an
// originally-asserted one — until no constraint is violated or no further
// progress can be made. It returns every triple removed.
func (r *Reasoner) Repair(constraints []Constraint) []index.Triple {
	var removed []index.Triple
	for {
		violations := r.CheckViolations(constraints)
		if len(violations) == 0 {
			return removed
		}
		progressed := false
		for _, v := range violations {
			victim, ok := r.mostRecentlyDerived(v)
			if !ok {
				continue
			}
			if r.store.Delete(victim.S, victim.P, victim.O) {
				removed = append(removed, victim)
				r.mu.Lock()
				delete(r.derivedOrder, victim)
				r.mu.Unlock()
				progressed = true
			}
		}
		if !progressed {
			return removed
		}
	}
}

// QueryWithRepairs answers goal under intersection-of-all-repairs (IAR)
// semantics: a fact that never participates in any constraint violation is
// certain to survive every minimal repair, so only non-conflicting matches
// are returned. Facts tangled in some violation are withheld rather than
// guessed at by actually computing and intersecting every minimal repair,
// which is exponential in general.
func (r *Reasoner) QueryWithRepairs(goal Atom, constraints []Constraint) []Binding {
	violations := r.CheckViolations(constraints)
	conflict := make(map[index.Triple]bool)
	for _, v := range violations {
		for _, t := range v {
			conflict[t] = true
		}
	}

	rs, rp, ro, triples, impossible := r.candidatesFor(goal, Binding{}, nil)
	if impossible {
		return nil
	}
	var out []Binding
	for _, t := range triples {
		if conflict[t] {
			continue
		}
		nb := Binding{}
		if !applyVar(nb, rs, t.S) {
			continue
		}
		if !applyVar(nb, rp, t.P) {
			continue
		}
		if !applyVar(nb, ro, t.O) {
			continue
		}
		out = append(out, nb)
	}
	return out
}
