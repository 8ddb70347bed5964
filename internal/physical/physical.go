// Package physical defines the physical query-plan algebra produced by
// internal/optimizer: concrete execution strategies (which index to scan,
// which join algorithm to run) that internal/exec turns into an iterator
// chain.
package physical

import (
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
)

// Plan is a physical query-plan node.
type Plan interface {
	isPhysical()
	Vars() []string
	// Cost is the optimizer's estimated cost for this subplan, carried
	// alongside the chosen plan for diagnostics and tie-breaking.
	Cost() float64
}

// TableScan reads every triple in the store unfiltered, then applies
// Pattern as a post-filter. Chosen when no index lookup is cheaper than a
// full scan (i.e. the pattern is entirely unbound).
type TableScan struct {
	Pattern logical.Scan
	Bound   index.Bound
	EstCost float64
}

func (TableScan) isPhysical()      {}
func (t TableScan) Vars() []string { return t.Pattern.Vars() }
func (t TableScan) Cost() float64  { return t.EstCost }

// IndexScan reads triples via one of the six permuted indexes, chosen by
// internal/index.Choose for Bound.
type IndexScan struct {
	Pattern     logical.Scan
	Bound       index.Bound
	Permutation index.Permutation
	EstCost     float64
}

func (IndexScan) isPhysical()      {}
func (s IndexScan) Vars() []string { return s.Pattern.Vars() }
func (s IndexScan) Cost() float64  { return s.EstCost }

// Filter evaluates Condition over Child's rows, dropping rows that
// evaluate false or error.
type Filter struct {
	Child     Plan
	Condition expr.Expr
	EstCost   float64
}

func (Filter) isPhysical()      {}
func (f Filter) Vars() []string { return f.Child.Vars() }
func (f Filter) Cost() float64  { return f.EstCost }

// Projection restricts Child's rows to Columns.
type Projection struct {
	Child   Plan
	Columns []string
	EstCost float64
}

func (Projection) isPhysical()      {}
func (p Projection) Vars() []string { return p.Columns }
func (p Projection) Cost() float64  { return p.EstCost }

// JoinVars are the shared variable names two join inputs must agree on.
type JoinVars []string

// NestedLoopJoin re-probes Right for every row of Left. Chosen when the
// smaller input side is below the small-join threshold, where the
// per-probe overhead of building a hash table outweighs its benefit.
type NestedLoopJoin struct {
	Left, Right Plan
	On          JoinVars
	// OuterIsLeft selects which side is scanned once (the outer loop) and
	// which is re-scanned per outer row (the inner loop) — the smaller
	// side is always the outer loop, minimizing the number of rescans.
	OuterIsLeft bool
	EstCost     float64
}

func (NestedLoopJoin) isPhysical() {}
func (j NestedLoopJoin) Vars() []string {
	return unionVars(j.Left.Vars(), j.Right.Vars())
}
func (j NestedLoopJoin) Cost() float64 { return j.EstCost }

// HashJoin builds an in-memory hash table on the smaller side (by
// estimated cardinality) keyed by the shared join variables, then probes
// it with the larger side.
type HashJoin struct {
	Left, Right Plan
	On          JoinVars
	// BuildLeft selects which side the hash table is built over — always
	// the side with the smaller estimated cardinality.
	BuildLeft bool
	EstCost   float64
}

func (HashJoin) isPhysical() {}
func (j HashJoin) Vars() []string {
	return unionVars(j.Left.Vars(), j.Right.Vars())
}
func (j HashJoin) Cost() float64 { return j.EstCost }

// OptimizedHashJoin is a HashJoin specialization for the common single
// shared-ID-variable case: it hashes directly on the raw uint32 term ID
// rather than a composite row key, avoiding the general key-building
// overhead HashJoin pays for multi-variable joins.
type OptimizedHashJoin struct {
	Left, Right Plan
	OnVar       string
	BuildLeft   bool
	EstCost     float64
}

func (OptimizedHashJoin) isPhysical() {}
func (j OptimizedHashJoin) Vars() []string {
	return unionVars(j.Left.Vars(), j.Right.Vars())
}
func (j OptimizedHashJoin) Cost() float64 { return j.EstCost }

// ParallelJoin is a HashJoin whose probe phase is sharded across workers.
// Chosen when both input sides exceed the parallel-join threshold and the
// host exposes at least two hardware threads.
type ParallelJoin struct {
	Left, Right Plan
	On          JoinVars
	BuildLeft   bool
	Workers     int
	EstCost     float64
}

func (ParallelJoin) isPhysical() {}
func (j ParallelJoin) Vars() []string {
	return unionVars(j.Left.Vars(), j.Right.Vars())
}
func (j ParallelJoin) Cost() float64 { return j.EstCost }

// Aggregation groups Child's rows by GroupBy and evaluates Aggregates per
// group, carried over unchanged from the logical plan (aggregation has no
// alternate physical strategies in this engine).
type Aggregation struct {
	Child      Plan
	GroupBy    []string
	Aggregates []logical.AggregateExpr
	EstCost    float64
}

func (Aggregation) isPhysical() {}
func (a Aggregation) Vars() []string {
	out := append([]string{}, a.GroupBy...)
	for _, agg := range a.Aggregates {
		out = append(out, agg.Alias)
	}
	return out
}
func (a Aggregation) Cost() float64 { return a.EstCost }

func unionVars(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
