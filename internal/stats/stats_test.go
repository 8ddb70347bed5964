package stats

import (
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
)

func TestComputeCounts(t *testing.T) {
	triples := []index.Triple{
		{S: 1, P: 10, O: 100},
		{S: 1, P: 10, O: 200},
		{S: 2, P: 20, O: 100},
	}
	s := Compute(triples)

	if s.TripleCount != 3 {
		t.Fatalf("expected 3 triples, got %d", s.TripleCount)
	}
	if s.DistinctSubjects != 2 {
		t.Fatalf("expected 2 distinct subjects, got %d", s.DistinctSubjects)
	}
	if s.DistinctPredicates != 2 {
		t.Fatalf("expected 2 distinct predicates, got %d", s.DistinctPredicates)
	}
	if s.DistinctObjects != 2 {
		t.Fatalf("expected 2 distinct objects, got %d", s.DistinctObjects)
	}
	if s.PredicateCardinality[10] != 2 {
		t.Fatalf("expected predicate 10 to occur twice, got %d", s.PredicateCardinality[10])
	}
}

func TestEmptyStoreStatisticsAreAllZero(t *testing.T) {
	s := Empty()
	if s.TripleCount != 0 || s.DistinctSubjects != 0 {
		t.Fatalf("expected all-zero statistics for empty store, got %+v", s)
	}
	if s.Cardinality(index.Bound{}) != 0 {
		t.Fatalf("expected zero cardinality estimate for empty store")
	}
}

func TestHandleStartsStale(t *testing.T) {
	h := NewHandle()
	_, fresh := h.Get()
	if fresh {
		t.Fatalf("expected a brand new handle to be stale")
	}
}

func TestHandleSetThenInvalidate(t *testing.T) {
	h := NewHandle()
	snap := Compute(nil)
	h.Set(snap)

	got, fresh := h.Get()
	if !fresh || got != snap {
		t.Fatalf("expected fresh snapshot after Set")
	}

	h.Invalidate()
	got2, fresh2 := h.Get()
	if fresh2 {
		t.Fatalf("expected stale after Invalidate")
	}
	if got2 != snap {
		t.Fatalf("Invalidate must not discard the last snapshot")
	}
}

func TestJoinSelectivityCachesComputation(t *testing.T) {
	s := Compute([]index.Triple{{S: 1, P: 2, O: 3}})
	a := PatternKey{HasS: true, Subject: 1}
	b := PatternKey{HasP: true, Predicate: 2}

	calls := 0
	estimate := func() float64 {
		calls++
		return 0.5
	}

	v1 := s.JoinSelectivity(a, b, estimate)
	v2 := s.JoinSelectivity(a, b, estimate)

	if v1 != 0.5 || v2 != 0.5 {
		t.Fatalf("expected cached value 0.5, got %v and %v", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("expected estimate to be called once, called %d times", calls)
	}
}

func TestJoinSelectivityOrderMatters(t *testing.T) {
	s := Compute([]index.Triple{{S: 1, P: 2, O: 3}})
	a := PatternKey{HasS: true, Subject: 1}
	b := PatternKey{HasP: true, Predicate: 2}

	s.JoinSelectivity(a, b, func() float64 { return 0.1 })
	calls := 0
	v := s.JoinSelectivity(b, a, func() float64 {
		calls++
		return 0.9
	})
	if calls != 1 || v != 0.9 {
		t.Fatalf("expected (b,a) to be a distinct cache entry from (a,b)")
	}
}
