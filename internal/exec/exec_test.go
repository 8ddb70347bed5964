package exec

import (
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/physical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// scanByPredicate builds a TableScan/IndexScan-equivalent physical.IndexScan
// for the pattern (?s, pred, ?o), bound through s's own dictionary —
// mirroring what internal/optimizer would produce, without depending on it.
func scanByPredicate(s *store.TripleStore, subjVar, pred, objVar string) physical.IndexScan {
	id, _ := s.Dictionary().Lookup(pred)
	pattern := logical.Scan{Subject: logical.Var(subjVar), Predicate: logical.Const(pred), Object: logical.Var(objVar)}
	b := index.Bound{HasP: true, P: id}
	return physical.IndexScan{Pattern: pattern, Bound: b, Permutation: index.Choose(b)}
}

func mustCollect(t *testing.T, it Iterator) []Row {
	t.Helper()
	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	if err := it.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	return rows
}

func TestScanBindsVariables(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("alice", "knows", "carol")

	e := New(s)
	scan := scanByPredicate(s, "x", "knows", "y")
	it, err := e.Execute(scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if _, ok := r["x"]; !ok {
			t.Fatalf("expected row to bind ?x: %+v", r)
		}
		if _, ok := r["y"]; !ok {
			t.Fatalf("expected row to bind ?y: %+v", r)
		}
	}
}

func TestFilterDropsNonMatchingRows(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "age", "30")
	s.InsertTripleParts("bob", "age", "20")

	e := New(s)
	scan := scanByPredicate(s, "p", "age", "a")
	plan := physical.Filter{Child: scan, Condition: expr.Binary{Op: expr.OpGt, Left: expr.Var{Name: "a"}, Right: expr.Lit{Value: "25"}}}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after filter, got %d", len(rows))
	}
	got, _ := s.Dictionary().Decode(rows[0]["p"])
	if got != "alice" {
		t.Fatalf("expected alice to survive the filter, got %q", got)
	}
}

func TestProjectionRestrictsColumns(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")

	e := New(s)
	scan := scanByPredicate(s, "x", "knows", "y")
	plan := physical.Projection{Child: scan, Columns: []string{"x"}}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0]["y"]; ok {
		t.Fatalf("expected ?y to be projected away, row was %+v", rows[0])
	}
	if _, ok := rows[0]["x"]; !ok {
		t.Fatalf("expected ?x to remain, row was %+v", rows[0])
	}
}

func TestNestedLoopJoinMergesSharedVariable(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("alice", "likes", "pizza")

	e := New(s)
	left := scanByPredicate(s, "x", "knows", "y")
	right := scanByPredicate(s, "x", "likes", "z")
	plan := physical.NestedLoopJoin{Left: left, Right: right, On: physical.JoinVars{"x"}, OuterIsLeft: true}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 joined row, got %d", len(rows))
	}
	if _, ok := rows[0]["y"]; !ok {
		t.Fatalf("expected merged row to carry ?y: %+v", rows[0])
	}
	if _, ok := rows[0]["z"]; !ok {
		t.Fatalf("expected merged row to carry ?z: %+v", rows[0])
	}
}

func TestHashJoinMergesSharedVariable(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("alice", "likes", "pizza")
	s.InsertTripleParts("carol", "likes", "sushi")

	e := New(s)
	left := scanByPredicate(s, "x", "knows", "y")
	right := scanByPredicate(s, "x", "likes", "z")
	plan := physical.HashJoin{Left: left, Right: right, On: physical.JoinVars{"x"}, BuildLeft: true}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 joined row, got %d", len(rows))
	}
}

func TestOptimizedHashJoinMergesSharedVariable(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("alice", "likes", "pizza")

	e := New(s)
	left := scanByPredicate(s, "x", "knows", "y")
	right := scanByPredicate(s, "x", "likes", "z")
	plan := physical.OptimizedHashJoin{Left: left, Right: right, OnVar: "x", BuildLeft: true}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 joined row, got %d", len(rows))
	}
}

func TestParallelJoinMergesSharedVariable(t *testing.T) {
	s := store.New()
	for i := 0; i < 20; i++ {
		subj := "s" + string(rune('a'+i%20))
		s.InsertTripleParts(subj, "knows", "bob")
		s.InsertTripleParts(subj, "likes", "pizza")
	}

	e := New(s)
	left := scanByPredicate(s, "x", "knows", "y")
	right := scanByPredicate(s, "x", "likes", "z")
	plan := physical.ParallelJoin{Left: left, Right: right, On: physical.JoinVars{"x"}, BuildLeft: true, Workers: 4}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 20 {
		t.Fatalf("expected 20 joined rows, got %d", len(rows))
	}
}

func TestAggregationCount(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("alice", "knows", "carol")
	s.InsertTripleParts("dave", "knows", "eve")

	e := New(s)
	scan := scanByPredicate(s, "x", "knows", "y")
	plan := physical.Aggregation{
		Child:   scan,
		GroupBy: []string{"x"},
		Aggregates: []logical.AggregateExpr{
			{Func: logical.AggCount, Variable: "y", Alias: "c"},
		},
	}

	it, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, it)
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	found := false
	for _, r := range rows {
		x, _ := s.Dictionary().Decode(r["x"])
		c, _ := s.Dictionary().Decode(r["c"])
		if x == "alice" {
			found = true
			if c != "2" {
				t.Fatalf("expected alice's group count to be 2, got %q", c)
			}
		}
	}
	if !found {
		t.Fatalf("expected an alice group in results: %+v", rows)
	}
}

func TestOrderByNumeric(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "age", "30")
	s.InsertTripleParts("bob", "age", "20")
	s.InsertTripleParts("carol", "age", "40")

	e := New(s)
	scan := scanByPredicate(s, "p", "age", "a")
	it, err := e.Execute(scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ordered, err := OrderBy(it, []OrderKey{{Variable: "a"}}, s.Dictionary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := mustCollect(t, ordered)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	prev := ""
	for _, r := range rows {
		a, _ := s.Dictionary().Decode(r["a"])
		if prev != "" && a < prev {
			t.Fatalf("expected ascending numeric order, got %q after %q", a, prev)
		}
		prev = a
	}
}

func TestLimitAndOffset(t *testing.T) {
	s := store.New()
	for i := 0; i < 5; i++ {
		s.InsertTripleParts("s", "p", string(rune('a'+i)))
	}
	e := New(s)
	scan := scanByPredicate(s, "x", "p", "y")
	it, err := e.Execute(scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limited := Limit(Offset(it, 1), 2)
	rows := mustCollect(t, limited)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after offset+limit, got %d", len(rows))
	}
}

func TestDistinctDropsDuplicateRows(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "knows", "bob")
	s.InsertTripleParts("carol", "knows", "bob")

	e := New(s)
	scan := scanByPredicate(s, "x", "knows", "y")
	proj := physical.Projection{Child: scan, Columns: []string{"y"}}

	it, err := e.Execute(proj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deduped := Distinct(it)
	rows := mustCollect(t, deduped)
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 distinct row, got %d", len(rows))
	}
}
