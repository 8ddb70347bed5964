// Package logical defines the logical query-plan algebra the optimizer
// consumes: pattern scans, selections (filters), joins, and projections,
// built by the SPARQL-syntax layer and translated by internal/optimizer
// into a physical plan.
package logical

import (
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
)

// Plan is a logical query-plan node. It carries no execution strategy —
// only what the query asks for, not how to compute it.
type Plan interface {
	isPlan()
	// Vars returns the set of binding variables this plan's output rows
	// carry, in no particular order.
	Vars() []string
}

// Term is one position of a triple pattern: either a bound constant term
// string (to be encoded through the dictionary by the optimizer) or a
// variable name.
type Term struct {
	Variable string // empty if this position is a bound constant
	Constant string
}

// IsVariable reports whether this position is unbound.
func (t Term) IsVariable() bool { return t.Variable != "" }

// Var constructs a variable position.
func Var(name string) Term { return Term{Variable: name} }

// Const constructs a bound-constant position.
func Const(value string) Term { return Term{Constant: value} }

// Scan is a leaf node: every triple matching a (subject, predicate, object)
// pattern, each position either a variable or a bound constant.
type Scan struct {
	Subject, Predicate, Object Term
}

func (Scan) isPlan() {}

// Vars returns the variable positions of the scan's pattern.
func (s Scan) Vars() []string {
	var out []string
	for _, t := range []Term{s.Subject, s.Predicate, s.Object} {
		if t.IsVariable() {
			out = append(out, t.Variable)
		}
	}
	return out
}

// Selection filters Child's rows by Condition, dropping any row for which
// evaluation errors (per the shared expr package's type-error policy).
type Selection struct {
	Child     Plan
	Condition expr.Expr
}

func (Selection) isPlan() {}

// Vars returns the child's variables unchanged — a Selection never adds or
// removes bindings.
func (s Selection) Vars() []string { return s.Child.Vars() }

// Projection restricts Child's rows to the named variables.
type Projection struct {
	Child Plan
	Vars_ []string
}

func (Projection) isPlan() {}

// Vars returns the projected variable list.
func (p Projection) Vars() []string { return p.Vars_ }

// Join combines Left and Right's rows wherever their shared variables agree.
type Join struct {
	Left, Right Plan
}

func (Join) isPlan() {}

// Vars returns the union of Left's and Right's variables.
func (j Join) Vars() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range j.Left.Vars() {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range j.Right.Vars() {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// SharedVars returns the variables Left and Right have in common — the
// columns a join must equate.
func (j Join) SharedVars() []string {
	left := make(map[string]bool)
	for _, v := range j.Left.Vars() {
		left[v] = true
	}
	var shared []string
	for _, v := range j.Right.Vars() {
		if left[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

// Aggregation groups Child's rows by GroupBy and computes Aggregates over
// each group.
type Aggregation struct {
	Child      Plan
	GroupBy    []string
	Aggregates []AggregateExpr
}

func (Aggregation) isPlan() {}

// Vars returns the group-by variables plus each aggregate's output alias.
func (a Aggregation) Vars() []string {
	out := append([]string{}, a.GroupBy...)
	for _, agg := range a.Aggregates {
		out = append(out, agg.Alias)
	}
	return out
}

// AggregateFunc identifies a supported aggregate function.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// AggregateExpr is one computed aggregate column: Func(Variable) AS Alias.
// For COUNT(*), Variable is empty and Distinct is ignored.
type AggregateExpr struct {
	Func     AggregateFunc
	Variable string
	Alias    string
	Distinct bool
}

// Bound translates a Scan's three positions into an internal/index.Bound
// given an encode function mapping constant term strings to dictionary IDs.
// A constant that has never been encoded (encode returns ok=false) makes
// the whole pattern unsatisfiable; callers should treat that as "no rows"
// rather than erroring, since a term absent from the dictionary can never
// match anything already stored.
func (s Scan) Bound(encode func(string) (id uint32, ok bool)) (index.Bound, bool) {
	var b index.Bound
	if !s.Subject.IsVariable() {
		id, ok := encode(s.Subject.Constant)
		if !ok {
			return index.Bound{}, false
		}
		b.HasS, b.S = true, id
	}
	if !s.Predicate.IsVariable() {
		id, ok := encode(s.Predicate.Constant)
		if !ok {
			return index.Bound{}, false
		}
		b.HasP, b.P = true, id
	}
	if !s.Object.IsVariable() {
		id, ok := encode(s.Object.Constant)
		if !ok {
			return index.Bound{}, false
		}
		b.HasO, b.O = true, id
	}
	return b, true
}
