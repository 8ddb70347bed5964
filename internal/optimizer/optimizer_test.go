package optimizer

import (
	"fmt"
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/physical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func TestOptimizeFullyUnboundScanUsesTableScan(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "p", "b")
	s.RefreshStats()

	o := New(s)
	plan := o.Optimize(logical.Scan{
		Subject:   logical.Var("s"),
		Predicate: logical.Var("p"),
		Object:    logical.Var("o"),
	})

	if _, ok := plan.(physical.TableScan); !ok {
		t.Fatalf("expected TableScan for fully unbound pattern, got %T", plan)
	}
}

func TestOptimizeFullyBoundScanUsesIndexScan(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "p", "b")
	s.RefreshStats()

	o := New(s)
	plan := o.Optimize(logical.Scan{
		Subject:   logical.Const("a"),
		Predicate: logical.Const("p"),
		Object:    logical.Const("b"),
	})

	scan, ok := plan.(physical.IndexScan)
	if !ok {
		t.Fatalf("expected IndexScan for fully bound pattern, got %T", plan)
	}
	if scan.Permutation.String() != "SPO" {
		t.Fatalf("expected SPO permutation for a fully bound pattern, got %v", scan.Permutation)
	}
}

func TestOptimizeSmallJoinUsesNestedLoop(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("s1", "p1", "o1")
	s.InsertTripleParts("s2", "p1", "o2")
	s.RefreshStats()

	o := New(s)
	join := logical.Join{
		Left:  logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p1"), Object: logical.Var("o1")},
		Right: logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p1"), Object: logical.Var("o2")},
	}
	plan := o.Optimize(join)

	if _, ok := plan.(physical.NestedLoopJoin); !ok {
		t.Fatalf("expected NestedLoopJoin for a small join, got %T", plan)
	}
}

func TestOptimizeMediumJoinWithSingleSharedVarUsesOptimizedHashJoin(t *testing.T) {
	s := store.New()
	for i := 0; i < 100; i++ {
		s.InsertTripleParts(fmt.Sprintf("s%d", i), "p1", fmt.Sprintf("o%d", i))
	}
	s.RefreshStats()

	o := New(s)
	join := logical.Join{
		Left:  logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p1"), Object: logical.Var("o1")},
		Right: logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p1"), Object: logical.Var("o2")},
	}
	plan := o.Optimize(join)

	if _, ok := plan.(physical.OptimizedHashJoin); !ok {
		t.Fatalf("expected OptimizedHashJoin for a single-shared-variable medium join, got %T", plan)
	}
}

func TestOptimizeMemoizesRepeatedSubplan(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "p", "b")
	s.RefreshStats()

	o := New(s)
	scan := logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p"), Object: logical.Var("o")}

	join := logical.Join{
		Left:  logical.Selection{Child: scan, Condition: nil},
		Right: logical.Selection{Child: scan, Condition: nil},
	}
	_ = o.Optimize(join)
	if len(o.memo) == 0 {
		t.Fatalf("expected memo to be populated")
	}
	// The two identical Selection{scan} subplans must share one memo entry.
	sigLeft := signature(join.Left)
	sigRight := signature(join.Right)
	if sigLeft != sigRight {
		t.Fatalf("expected identical subplans to hash to the same signature")
	}
}

func TestOptimizeCrossJoinCardinalityIsProductWhenNoSharedVars(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "p", "b")
	s.InsertTripleParts("c", "q", "d")
	s.RefreshStats()

	o := New(s)
	join := logical.Join{
		Left:  logical.Scan{Subject: logical.Var("x"), Predicate: logical.Const("p"), Object: logical.Var("y")},
		Right: logical.Scan{Subject: logical.Var("z"), Predicate: logical.Const("q"), Object: logical.Var("w")},
	}
	r := o.optimize(join)
	if r.card <= 0 {
		t.Fatalf("expected positive cross-join cardinality estimate, got %v", r.card)
	}
	left := o.optimize(join.Left)
	right := o.optimize(join.Right)
	if r.card != left.card*right.card {
		t.Fatalf("expected cross-join cardinality %v*%v, got %v", left.card, right.card, r.card)
	}
}

func TestOptimizeProjectionPreservesChildCardinality(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "p", "b")
	s.RefreshStats()

	o := New(s)
	scan := logical.Scan{Subject: logical.Var("s"), Predicate: logical.Const("p"), Object: logical.Var("o")}
	proj := logical.Projection{Child: scan, Vars_: []string{"s"}}

	scanResult := o.optimize(scan)
	projResult := o.optimize(proj)
	if projResult.card != scanResult.card {
		t.Fatalf("expected projection to preserve cardinality: scan=%v proj=%v", scanResult.card, projResult.card)
	}
}
