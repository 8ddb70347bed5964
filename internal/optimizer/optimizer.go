// Package optimizer turns a logical query plan into a physical one via a
// memoized, bottom-up cost-based search: each subplan is costed once per
// distinct shape (keyed by a canonical signature) and the cheapest join
// algorithm is chosen given the sizes involved.
package optimizer

import (
	"encoding/binary"
	"runtime"

	"github.com/zeebo/xxh3"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/dictionary"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/physical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/stats"
)

// Cost model constants. These are deliberately simple linear weights, not
// calibrated to any particular hardware — the point of the model is to
// pick the right algorithm shape (scan strategy, join strategy), not to
// predict wall-clock time precisely.
const (
	rowCost            = 1.0
	indexOverhead      = 2.0
	joinBuildSurcharge = 5.0
	parallelOverhead   = 10.0
	filterSelectivity  = 0.33

	// ThresholdSmallJoin: below this, a nested-loop join's simplicity beats
	// a hash join's build overhead.
	ThresholdSmallJoin = 64
	// ThresholdParallelJoin: above this on both sides, sharding the probe
	// phase across workers pays for its coordination overhead.
	ThresholdParallelJoin = 10_000
)

// Source supplies what the optimizer needs from the triple store: term
// lookup (never insertion — planning must not mutate the dictionary) and
// cardinality statistics.
type Source interface {
	Dictionary() *dictionary.Dictionary
	Stats() *stats.Handle
	Count() int
}

// Optimizer translates logical.Plan trees into physical.Plan trees against
// one triple store's current statistics.
type Optimizer struct {
	src  Source
	memo map[uint64]planResult
}

type planResult struct {
	plan physical.Plan
	card float64
}

// New creates an Optimizer bound to src. Each Optimizer is single-query
// scoped: build a fresh one per query so the memo reflects one consistent
// statistics snapshot.
func New(src Source) *Optimizer {
	return &Optimizer{src: src, memo: make(map[uint64]planResult)}
}

// Optimize returns the cheapest physical plan for plan.
func (o *Optimizer) Optimize(plan logical.Plan) physical.Plan {
	return o.optimize(plan).plan
}

func (o *Optimizer) optimize(plan logical.Plan) planResult {
	sig := signature(plan)
	if r, ok := o.memo[sig]; ok {
		return r
	}
	r := o.build(plan)
	o.memo[sig] = r
	return r
}

func (o *Optimizer) snapshot() *stats.Statistics {
	snap, _ := o.src.Stats().Get()
	if snap == nil {
		return stats.Empty()
	}
	return snap
}

func (o *Optimizer) lookupID(term string) uint32 {
	if id, ok := o.src.Dictionary().Lookup(term); ok {
		return id
	}
	// A constant never seen by the dictionary can never match a stored
	// triple: AbsentID is never assigned to a real term, so binding to it
	// yields a pattern that is always empty without special-casing.
	return dictionary.AbsentID
}

func (o *Optimizer) build(plan logical.Plan) planResult {
	switch p := plan.(type) {
	case logical.Scan:
		return o.buildScan(p)
	case logical.Selection:
		return o.buildSelection(p)
	case logical.Projection:
		return o.buildProjection(p)
	case logical.Join:
		return o.buildJoin(p)
	case logical.Aggregation:
		return o.buildAggregation(p)
	default:
		panic("optimizer: unknown logical plan node")
	}
}

func (o *Optimizer) buildScan(p logical.Scan) planResult {
	bound, _ := p.Bound(func(s string) (uint32, bool) { return o.lookupID(s), true })
	snap := o.snapshot()
	card := snap.Cardinality(bound)

	if !bound.HasS && !bound.HasP && !bound.HasO {
		cost := float64(o.src.Count()) * rowCost
		return planResult{
			plan: physical.TableScan{Pattern: p, Bound: bound, EstCost: cost},
			card: card,
		}
	}

	perm := index.Choose(bound)
	cost := card*rowCost + indexOverhead
	return planResult{
		plan: physical.IndexScan{Pattern: p, Bound: bound, Permutation: perm, EstCost: cost},
		card: card,
	}
}

func (o *Optimizer) buildSelection(p logical.Selection) planResult {
	child := o.optimize(p.Child)
	cost := child.plan.Cost() + child.card*rowCost
	return planResult{
		plan: physical.Filter{Child: child.plan, Condition: p.Condition, EstCost: cost},
		card: child.card * filterSelectivity,
	}
}

func (o *Optimizer) buildProjection(p logical.Projection) planResult {
	child := o.optimize(p.Child)
	cost := child.plan.Cost() + child.card*rowCost*0.1
	return planResult{
		plan: physical.Projection{Child: child.plan, Columns: p.Vars_, EstCost: cost},
		card: child.card,
	}
}

func (o *Optimizer) buildAggregation(p logical.Aggregation) planResult {
	child := o.optimize(p.Child)
	cost := child.plan.Cost() + child.card*rowCost
	// Absent a value-distribution histogram, approximate the number of
	// distinct groups as the square root of the input cardinality — between
	// "no grouping" (card) and "fully collapsed" (1).
	groupCard := child.card
	if len(p.GroupBy) > 0 && child.card > 1 {
		groupCard = sqrtApprox(child.card)
	} else if len(p.GroupBy) == 0 {
		groupCard = 1
	}
	return planResult{
		plan: physical.Aggregation{Child: child.plan, GroupBy: p.GroupBy, Aggregates: p.Aggregates, EstCost: cost},
		card: groupCard,
	}
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	guess := x
	for i := 0; i < 20; i++ {
		guess = 0.5 * (guess + x/guess)
	}
	return guess
}

func (o *Optimizer) buildJoin(p logical.Join) planResult {
	left := o.optimize(p.Left)
	right := o.optimize(p.Right)
	shared := p.SharedVars()

	joinCard := o.estimateJoinCardinality(p, left, right, shared)
	plan := o.chooseJoinAlgorithm(left, right, shared, joinCard)
	return planResult{plan: plan, card: joinCard}
}

// estimateJoinCardinality special-cases the common scan-joins-scan shape
// (the bulk of basic graph pattern joins) to use the cached, PatternKey
// indexed join-selectivity estimate; any other join shape falls back to an
// independence-assumption heuristic.
func (o *Optimizer) estimateJoinCardinality(p logical.Join, left, right planResult, shared []string) float64 {
	if len(shared) == 0 {
		return left.card * right.card
	}

	leftScan, leftOK := p.Left.(logical.Scan)
	rightScan, rightOK := p.Right.(logical.Scan)
	if leftOK && rightOK {
		snap := o.snapshot()
		lb, _ := leftScan.Bound(func(s string) (uint32, bool) { return o.lookupID(s), true })
		rb, _ := rightScan.Bound(func(s string) (uint32, bool) { return o.lookupID(s), true })
		lk := patternKeyOf(lb)
		rk := patternKeyOf(rb)
		sel := snap.JoinSelectivity(lk, rk, func() float64 {
			return independenceSelectivity(left.card, right.card)
		})
		return clamp(left.card*right.card*sel, 0, maxOf(left.card, right.card))
	}

	return clamp(left.card*right.card*independenceSelectivity(left.card, right.card), 0, maxOf(left.card, right.card))
}

func independenceSelectivity(leftCard, rightCard float64) float64 {
	m := maxOf(leftCard, rightCard)
	if m <= 0 {
		return 0
	}
	return 1.0 / m
}

func patternKeyOf(b index.Bound) stats.PatternKey {
	return stats.PatternKey{
		Subject: b.S, Predicate: b.P, Object: b.O,
		HasS: b.HasS, HasP: b.HasP, HasO: b.HasO,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (o *Optimizer) chooseJoinAlgorithm(left, right planResult, shared []string, joinCard float64) physical.Plan {
	smaller := minOf(left.card, right.card)
	larger := maxOf(left.card, right.card)
	buildLeft := left.card <= right.card

	var outerCost, innerCost float64
	if buildLeft {
		outerCost, innerCost = left.plan.Cost(), right.plan.Cost()
	} else {
		outerCost, innerCost = right.plan.Cost(), left.plan.Cost()
	}
	nestedCost := outerCost + smaller*innerCost
	hashCost := left.plan.Cost() + right.plan.Cost() + smaller*rowCost + larger*rowCost + joinBuildSurcharge

	switch {
	case smaller < ThresholdSmallJoin:
		return physical.NestedLoopJoin{
			Left: left.plan, Right: right.plan, On: physical.JoinVars(shared),
			OuterIsLeft: buildLeft, EstCost: nestedCost,
		}

	case left.card > ThresholdParallelJoin && right.card > ThresholdParallelJoin && runtime.NumCPU() >= 2:
		workers := runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
		cost := hashCost/float64(workers) + parallelOverhead
		return physical.ParallelJoin{
			Left: left.plan, Right: right.plan, On: physical.JoinVars(shared),
			BuildLeft: buildLeft, Workers: workers, EstCost: cost,
		}

	case len(shared) == 1:
		cost := hashCost * 0.85
		return physical.OptimizedHashJoin{
			Left: left.plan, Right: right.plan, OnVar: shared[0],
			BuildLeft: buildLeft, EstCost: cost,
		}

	default:
		// Equal-cost tie between a nested-loop and a hash join favors the
		// hash join: its memory cost is bounded by the smaller side, while
		// a nested loop repeats work proportional to the larger side.
		if nestedCost < hashCost {
			return physical.NestedLoopJoin{
				Left: left.plan, Right: right.plan, On: physical.JoinVars(shared),
				OuterIsLeft: buildLeft, EstCost: nestedCost,
			}
		}
		return physical.HashJoin{
			Left: left.plan, Right: right.plan, On: physical.JoinVars(shared),
			BuildLeft: buildLeft, EstCost: hashCost,
		}
	}
}

// signature computes a canonical, structure-sensitive hash of a logical
// plan so that two syntactically identical subplans (e.g. a pattern
// re-used across branches of a larger query) are optimized only once.
func signature(p logical.Plan) uint64 {
	buf := appendPlan(nil, p)
	h := xxh3.Hash128(buf)
	return h.Hi ^ h.Lo
}

const (
	tagScan byte = iota + 1
	tagSelection
	tagProjection
	tagJoin
	tagAggregation
)

func appendPlan(buf []byte, p logical.Plan) []byte {
	switch n := p.(type) {
	case logical.Scan:
		buf = append(buf, tagScan)
		buf = appendTerm(buf, n.Subject)
		buf = appendTerm(buf, n.Predicate)
		buf = appendTerm(buf, n.Object)
	case logical.Selection:
		buf = append(buf, tagSelection)
		buf = appendPlan(buf, n.Child)
		buf = appendExpr(buf, n.Condition)
	case logical.Projection:
		buf = append(buf, tagProjection)
		buf = appendPlan(buf, n.Child)
		for _, v := range n.Vars_ {
			buf = appendString(buf, v)
		}
	case logical.Join:
		buf = append(buf, tagJoin)
		buf = appendPlan(buf, n.Left)
		buf = appendPlan(buf, n.Right)
	case logical.Aggregation:
		buf = append(buf, tagAggregation)
		buf = appendPlan(buf, n.Child)
		for _, v := range n.GroupBy {
			buf = appendString(buf, v)
		}
		for _, a := range n.Aggregates {
			buf = append(buf, byte(a.Func))
			buf = appendString(buf, a.Variable)
			buf = appendString(buf, a.Alias)
			buf = append(buf, boolByte(a.Distinct))
		}
	default:
		panic("optimizer: unknown logical plan node in signature")
	}
	return buf
}

func appendTerm(buf []byte, t logical.Term) []byte {
	if t.IsVariable() {
		buf = append(buf, 'V')
		return appendString(buf, t.Variable)
	}
	buf = append(buf, 'C')
	return appendString(buf, t.Constant)
}

const (
	exprVar byte = iota + 1
	exprLit
	exprUnary
	exprBinary
	exprCall
)

func appendExpr(buf []byte, e expr.Expr) []byte {
	if e == nil {
		return append(buf, 0)
	}
	switch ex := e.(type) {
	case expr.Var:
		buf = append(buf, exprVar)
		return appendString(buf, ex.Name)
	case expr.Lit:
		buf = append(buf, exprLit)
		return appendString(buf, ex.Value)
	case expr.Unary:
		buf = append(buf, exprUnary, byte(ex.Op))
		return appendExpr(buf, ex.Operand)
	case expr.Binary:
		buf = append(buf, exprBinary, byte(ex.Op))
		buf = appendExpr(buf, ex.Left)
		return appendExpr(buf, ex.Right)
	case expr.Call:
		buf = append(buf, exprCall)
		buf = appendString(buf, ex.Name)
		for _, a := range ex.Args {
			buf = appendExpr(buf, a)
		}
		return buf
	default:
		panic("optimizer: unknown expr node in signature")
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
