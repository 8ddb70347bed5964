// Package exec implements the Volcano-style execution engine: physical
// plan nodes are turned into a chain of pull-based row iterators, each
// producing variable bindings (term IDs) on demand. Lexical decoding to
// strings happens only at the final output boundary.
package exec

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/dictionary"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/physical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// Row is one result row: a binding from variable name to encoded term ID.
type Row map[string]uint32

// Clone returns a shallow copy of r, safe for a caller to retain past the
// lifetime of the iterator that produced it.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Iterator is the pull-based row interface every physical operator
// implements: call Next until it returns false, reading Row after each
// true.
type Iterator interface {
	Next() bool
	Row() Row
	Close() error
}

// Engine executes physical plans against one triple store.
type Engine struct {
	store *store.TripleStore
}

// New creates an Engine bound to s.
func New(s *store.TripleStore) *Engine {
	return &Engine{store: s}
}

// Execute builds an Iterator for plan.
func (e *Engine) Execute(plan physical.Plan) (Iterator, error) {
	switch p := plan.(type) {
	case physical.TableScan:
		return e.createScan(p.Pattern, p.Bound), nil
	case physical.IndexScan:
		return e.createScan(p.Pattern, p.Bound), nil
	case physical.Filter:
		return e.createFilter(p)
	case physical.Projection:
		return e.createProjection(p)
	case physical.NestedLoopJoin:
		return e.createNestedLoopJoin(p)
	case physical.HashJoin:
		return e.createHashJoin(p.Left, p.Right, p.On, p.BuildLeft)
	case physical.OptimizedHashJoin:
		return e.createOptimizedHashJoin(p)
	case physical.ParallelJoin:
		return e.createParallelJoin(p)
	case physical.Aggregation:
		return e.createAggregation(p)
	default:
		return nil, fmt.Errorf("exec: unsupported physical plan node %T", plan)
	}
}

// sliceIterator iterates a pre-materialized slice of rows — the terminal
// shape for any operator (hash join, aggregation, parallel join) that must
// see its whole input before producing output.
type sliceIterator struct {
	rows []Row
	pos  int
}

func newSliceIterator(rows []Row) *sliceIterator { return &sliceIterator{rows: rows, pos: -1} }

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}
func (it *sliceIterator) Row() Row     { return it.rows[it.pos] }
func (it *sliceIterator) Close() error { return nil }

// scanIterator reads a pre-fetched slice of matching triples and binds the
// pattern's variable positions for each.
type scanIterator struct {
	triples []index.Triple
	pos     int
	pattern logical.Scan
}

func (e *Engine) createScan(pattern logical.Scan, bound index.Bound) *scanIterator {
	return &scanIterator{triples: e.store.Lookup(bound), pos: -1, pattern: pattern}
}

func (it *scanIterator) Next() bool {
	it.pos++
	return it.pos < len(it.triples)
}

func (it *scanIterator) Row() Row {
	t := it.triples[it.pos]
	row := make(Row, 3)
	if it.pattern.Subject.IsVariable() {
		row[it.pattern.Subject.Variable] = t.S
	}
	if it.pattern.Predicate.IsVariable() {
		row[it.pattern.Predicate.Variable] = t.P
	}
	if it.pattern.Object.IsVariable() {
		row[it.pattern.Object.Variable] = t.O
	}
	return row
}

func (it *scanIterator) Close() error { return nil }

// filterIterator evaluates Condition against the store's dictionary,
// dropping any row for which evaluation errors — a type error in a filter
// drops the row rather than aborting the query.
type filterIterator struct {
	child Iterator
	cond  expr.Expr
	dict  *dictionary.Dictionary
	cur   Row
}

func (e *Engine) createFilter(p physical.Filter) (Iterator, error) {
	child, err := e.Execute(p.Child)
	if err != nil {
		return nil, err
	}
	return &filterIterator{child: child, cond: p.Condition, dict: e.store.Dictionary()}, nil
}

func (it *filterIterator) Next() bool {
	for it.child.Next() {
		row := it.child.Row()
		lookup := rowLookup(row, it.dict)
		v, err := expr.Eval(it.cond, lookup)
		if err != nil || !v.AsBool() {
			continue
		}
		it.cur = row
		return true
	}
	return false
}

func (it *filterIterator) Row() Row     { return it.cur }
func (it *filterIterator) Close() error { return it.child.Close() }

func rowLookup(row Row, dict *dictionary.Dictionary) expr.Lookup {
	return func(name string) (string, bool) {
		id, ok := row[name]
		if !ok {
			return "", false
		}
		return dict.Decode(id)
	}
}

// projectionIterator restricts each row to a fixed set of columns.
type projectionIterator struct {
	child Iterator
	cols  []string
	cur   Row
}

func (e *Engine) createProjection(p physical.Projection) (Iterator, error) {
	child, err := e.Execute(p.Child)
	if err != nil {
		return nil, err
	}
	return &projectionIterator{child: child, cols: p.Columns}, nil
}

func (it *projectionIterator) Next() bool {
	if !it.child.Next() {
		return false
	}
	row := it.child.Row()
	out := make(Row, len(it.cols))
	for _, c := range it.cols {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	it.cur = out
	return true
}

func (it *projectionIterator) Row() Row     { return it.cur }
func (it *projectionIterator) Close() error { return it.child.Close() }

// mergeRows combines a and b if every variable they share agrees on its
// bound value; it returns ok=false on any conflict.
func mergeRows(a, b Row) (Row, bool) {
	out := make(Row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			if existing != v {
				return nil, false
			}
			continue
		}
		out[k] = v
	}
	return out, true
}

// nestedLoopJoinIterator re-creates the inner plan's iterator for every row
// of the outer side. The outer side is always the smaller-cardinality
// input (OuterIsLeft), minimizing the number of times the inner side is
// rescanned.
type nestedLoopJoinIterator struct {
	engine       *Engine
	outer        Iterator
	innerPlan    physical.Plan
	currentOuter Row
	currentInner Iterator
	result       Row
}

func (e *Engine) createNestedLoopJoin(p physical.NestedLoopJoin) (Iterator, error) {
	outerPlan, innerPlan := p.Left, p.Right
	if !p.OuterIsLeft {
		outerPlan, innerPlan = p.Right, p.Left
	}
	outer, err := e.Execute(outerPlan)
	if err != nil {
		return nil, err
	}
	return &nestedLoopJoinIterator{engine: e, outer: outer, innerPlan: innerPlan}, nil
}

func (it *nestedLoopJoinIterator) Next() bool {
	for {
		if it.currentInner != nil {
			if it.currentInner.Next() {
				merged, ok := mergeRows(it.currentOuter, it.currentInner.Row())
				if !ok {
					continue
				}
				it.result = merged
				return true
			}
			_ = it.currentInner.Close()
			it.currentInner = nil
		}

		if !it.outer.Next() {
			return false
		}
		it.currentOuter = it.outer.Row()

		innerIter, err := it.engine.Execute(it.innerPlan)
		if err != nil {
			return false
		}
		it.currentInner = innerIter
	}
}

func (it *nestedLoopJoinIterator) Row() Row { return it.result }

func (it *nestedLoopJoinIterator) Close() error {
	if it.currentInner != nil {
		_ = it.currentInner.Close()
	}
	return it.outer.Close()
}

// buildHashTable materializes plan's output, keyed by the values bound to
// on (in order); a variable missing from a row is written as a "?"
// placeholder in its key position, so the row can still match another row
// missing the same variables, which is correct
// since both sides of a join over shared variables bind the same set.
func (e *Engine) buildHashTable(plan physical.Plan, on []string) (map[string][]Row, error) {
	it, err := e.Execute(plan)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	table := make(map[string][]Row)
	for it.Next() {
		row := it.Row()
		key := hashKey(row, on)
		table[key] = append(table[key], row)
	}
	return table, nil
}

func hashKey(row Row, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		id, ok := row[v]
		if !ok {
			sb.WriteString("?;")
			continue
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteByte(';')
	}
	return sb.String()
}

// hashJoinIterator probes a pre-built hash table of the smaller side with
// rows from the larger side, merging compatible rows.
type hashJoinIterator struct {
	probe Iterator
	table map[string][]Row
	on    []string

	candidates []Row
	probeRow   Row
	pos        int
	result     Row
}

func (e *Engine) createHashJoin(left, right physical.Plan, on physical.JoinVars, buildLeft bool) (Iterator, error) {
	buildPlan, probePlan := left, right
	if !buildLeft {
		buildPlan, probePlan = right, left
	}
	table, err := e.buildHashTable(buildPlan, []string(on))
	if err != nil {
		return nil, err
	}
	probe, err := e.Execute(probePlan)
	if err != nil {
		return nil, err
	}
	return &hashJoinIterator{probe: probe, table: table, on: []string(on), pos: -1}, nil
}

func (it *hashJoinIterator) Next() bool {
	for {
		it.pos++
		if it.pos < len(it.candidates) {
			merged, ok := mergeRows(it.probeRow, it.candidates[it.pos])
			if !ok {
				continue
			}
			it.result = merged
			return true
		}

		if !it.probe.Next() {
			return false
		}
		it.probeRow = it.probe.Row()
		it.candidates = it.table[hashKey(it.probeRow, it.on)]
		it.pos = -1
	}
}

func (it *hashJoinIterator) Row() Row     { return it.result }
func (it *hashJoinIterator) Close() error { return it.probe.Close() }

// optimizedHashJoinIterator specializes hashJoinIterator for a single
// shared ID variable: the hash table is keyed directly on the raw term ID,
// skipping hashKey's string building.
type optimizedHashJoinIterator struct {
	probe  Iterator
	table  map[uint32][]Row
	onVar  string
	cands  []Row
	row    Row
	pos    int
	result Row
}

func (e *Engine) createOptimizedHashJoin(p physical.OptimizedHashJoin) (Iterator, error) {
	buildPlan, probePlan := p.Left, p.Right
	if !p.BuildLeft {
		buildPlan, probePlan = p.Right, p.Left
	}
	buildIter, err := e.Execute(buildPlan)
	if err != nil {
		return nil, err
	}
	defer buildIter.Close()

	table := make(map[uint32][]Row)
	for buildIter.Next() {
		row := buildIter.Row()
		if id, ok := row[p.OnVar]; ok {
			table[id] = append(table[id], row)
		}
	}

	probe, err := e.Execute(probePlan)
	if err != nil {
		return nil, err
	}
	return &optimizedHashJoinIterator{probe: probe, table: table, onVar: p.OnVar, pos: -1}, nil
}

func (it *optimizedHashJoinIterator) Next() bool {
	for {
		it.pos++
		if it.pos < len(it.cands) {
			merged, ok := mergeRows(it.row, it.cands[it.pos])
			if !ok {
				continue
			}
			it.result = merged
			return true
		}

		if !it.probe.Next() {
			return false
		}
		it.row = it.probe.Row()
		id, ok := it.row[it.onVar]
		if !ok {
			it.cands = nil
		} else {
			it.cands = it.table[id]
		}
		it.pos = -1
	}
}

func (it *optimizedHashJoinIterator) Row() Row     { return it.result }
func (it *optimizedHashJoinIterator) Close() error { return it.probe.Close() }

// createParallelJoin builds the smaller side's hash table single-threaded,
// then shards the larger side's materialized rows across Workers
// goroutines for the probe phase. Each worker writes to its own output
// slice; merging the shards back into one result happens single-threaded
// after every worker completes, so no result row is ever touched by more
// than one goroutine.
func (e *Engine) createParallelJoin(p physical.ParallelJoin) (Iterator, error) {
	buildPlan, probePlan := p.Left, p.Right
	if !p.BuildLeft {
		buildPlan, probePlan = p.Right, p.Left
	}
	table, err := e.buildHashTable(buildPlan, []string(p.On))
	if err != nil {
		return nil, err
	}

	probeIter, err := e.Execute(probePlan)
	if err != nil {
		return nil, err
	}
	var probeRows []Row
	for probeIter.Next() {
		probeRows = append(probeRows, probeIter.Row())
	}
	_ = probeIter.Close()

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	chunks := splitRows(probeRows, workers)
	shardResults := make([][]Row, len(chunks))

	g, _ := errgroup.WithContext(context.Background())
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			var out []Row
			for _, row := range chunk {
				for _, cand := range table[hashKey(row, []string(p.On))] {
					if merged, ok := mergeRows(row, cand); ok {
						out = append(out, merged)
					}
				}
			}
			shardResults[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var all []Row
	for _, shard := range shardResults {
		all = append(all, shard...)
	}
	return newSliceIterator(all), nil
}

func splitRows(rows []Row, workers int) [][]Row {
	if workers < 1 {
		workers = 1
	}
	if len(rows) == 0 {
		return nil
	}
	chunkSize := (len(rows) + workers - 1) / workers
	var chunks [][]Row
	for i := 0; i < len(rows); i += chunkSize {
		end := i + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[i:end])
	}
	return chunks
}

// createAggregation groups the child's rows by GroupBy and computes each
// Aggregates entry per group, encoding every computed scalar result back
// through the dictionary so aggregate output rows remain ordinary
// term-ID rows like any other operator's output.
func (e *Engine) createAggregation(p physical.Aggregation) (Iterator, error) {
	child, err := e.Execute(p.Child)
	if err != nil {
		return nil, err
	}
	defer child.Close()

	dict := e.store.Dictionary()

	type group struct {
		key  Row
		rows []Row
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	for child.Next() {
		row := child.Row()
		key := hashKey(row, p.GroupBy)
		g, ok := groups[key]
		if !ok {
			keyRow := make(Row, len(p.GroupBy))
			for _, v := range p.GroupBy {
				if id, ok := row[v]; ok {
					keyRow[v] = id
				}
			}
			g = &group{key: keyRow}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		result := g.key.Clone()
		for _, agg := range p.Aggregates {
			value := computeAggregate(agg, g.rows, dict)
			result[agg.Alias] = dict.Encode(value)
		}
		out = append(out, result)
	}
	return newSliceIterator(out), nil
}

func computeAggregate(agg logical.AggregateExpr, rows []Row, dict *dictionary.Dictionary) string {
	switch agg.Func {
	case logical.AggCount:
		if agg.Variable == "" {
			return strconv.Itoa(len(rows))
		}
		if agg.Distinct {
			seen := make(map[uint32]bool)
			for _, r := range rows {
				if id, ok := r[agg.Variable]; ok {
					seen[id] = true
				}
			}
			return strconv.Itoa(len(seen))
		}
		count := 0
		for _, r := range rows {
			if _, ok := r[agg.Variable]; ok {
				count++
			}
		}
		return strconv.Itoa(count)

	case logical.AggSum:
		sum := 0.0
		for _, v := range numericValues(rows, agg.Variable, dict) {
			sum += v
		}
		return strconv.FormatFloat(sum, 'g', -1, 64)

	case logical.AggAvg:
		values := numericValues(rows, agg.Variable, dict)
		if len(values) == 0 {
			return "0"
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return strconv.FormatFloat(sum/float64(len(values)), 'g', -1, 64)

	case logical.AggMin:
		values := numericValues(rows, agg.Variable, dict)
		if len(values) == 0 {
			return "0"
		}
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return strconv.FormatFloat(min, 'g', -1, 64)

	case logical.AggMax:
		values := numericValues(rows, agg.Variable, dict)
		if len(values) == 0 {
			return "0"
		}
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return strconv.FormatFloat(max, 'g', -1, 64)

	default:
		return ""
	}
}

// numericValues decodes and best-effort parses agg.Variable across rows;
// a row whose bound term is not numeric lexical text is dropped from the
// aggregate rather than aborting it.
func numericValues(rows []Row, variable string, dict *dictionary.Dictionary) []float64 {
	var out []float64
	for _, r := range rows {
		id, ok := r[variable]
		if !ok {
			continue
		}
		lex, ok := dict.Decode(id)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(lex), 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// OrderKey is one ORDER BY clause: sort by Variable, descending if Desc.
type OrderKey struct {
	Variable string
	Desc     bool
}

// OrderBy materializes it's entire input and sorts it by keys, comparing
// decoded lexical values numerically when both sides parse as numbers and
// falling back to string comparison otherwise.
func OrderBy(it Iterator, keys []OrderKey, dict *dictionary.Dictionary) (Iterator, error) {
	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	if err := it.Close(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			less, equal := compareByKey(rows[i], rows[j], k.Variable, dict)
			if equal {
				continue
			}
			if k.Desc {
				return !less
			}
			return less
		}
		return false
	})
	return newSliceIterator(rows), nil
}

func compareByKey(a, b Row, variable string, dict *dictionary.Dictionary) (less, equal bool) {
	av, aok := decodeOr(a, variable, dict)
	bv, bok := decodeOr(b, variable, dict)
	if !aok && !bok {
		return false, true
	}
	if !aok {
		return true, false
	}
	if !bok {
		return false, false
	}
	an, aIsNum := tryParseFloat(av)
	bn, bIsNum := tryParseFloat(bv)
	if aIsNum && bIsNum {
		return an < bn, an == bn
	}
	return av < bv, av == bv
}

func decodeOr(r Row, variable string, dict *dictionary.Dictionary) (string, bool) {
	id, ok := r[variable]
	if !ok {
		return "", false
	}
	return dict.Decode(id)
}

func tryParseFloat(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return n, err == nil
}

// Limit stops after n rows.
func Limit(it Iterator, n int) Iterator { return &limitIterator{input: it, limit: n} }

type limitIterator struct {
	input Iterator
	limit int
	count int
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}
	if it.input.Next() {
		it.count++
		return true
	}
	return false
}
func (it *limitIterator) Row() Row     { return it.input.Row() }
func (it *limitIterator) Close() error { return it.input.Close() }

// Offset skips the first n rows.
func Offset(it Iterator, n int) Iterator { return &offsetIterator{input: it, offset: n} }

type offsetIterator struct {
	input   Iterator
	offset  int
	skipped int
}

func (it *offsetIterator) Next() bool {
	for it.skipped < it.offset {
		if !it.input.Next() {
			return false
		}
		it.skipped++
	}
	return it.input.Next()
}
func (it *offsetIterator) Row() Row     { return it.input.Row() }
func (it *offsetIterator) Close() error { return it.input.Close() }

// Distinct drops rows that are an exact duplicate (by bound term IDs, over
// every currently-bound variable) of one already seen.
func Distinct(it Iterator) Iterator {
	return &distinctIterator{input: it, seen: make(map[string]bool)}
}

type distinctIterator struct {
	input Iterator
	seen  map[string]bool
}

func (it *distinctIterator) Next() bool {
	for it.input.Next() {
		row := it.input.Row()
		key := distinctKey(row)
		if !it.seen[key] {
			it.seen[key] = true
			return true
		}
	}
	return false
}
func (it *distinctIterator) Row() Row     { return it.input.Row() }
func (it *distinctIterator) Close() error { return it.input.Close() }

func distinctKey(row Row) string {
	vars := make([]string, 0, len(row))
	for v := range row {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(v)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(uint64(row[v]), 10))
		sb.WriteByte(';')
	}
	return sb.String()
}

// Decode converts every row of it into a map of variable name to decoded
// lexical term string — the output boundary where callers finally pay the
// cost of string decoding, once per returned row rather than per
// intermediate operator.
func Decode(it Iterator, dict *dictionary.Dictionary) ([]map[string]string, error) {
	var out []map[string]string
	for it.Next() {
		row := it.Row()
		decoded := make(map[string]string, len(row))
		for k, id := range row {
			if lex, ok := dict.Decode(id); ok {
				decoded[k] = lex
			}
		}
		out = append(out, decoded)
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
