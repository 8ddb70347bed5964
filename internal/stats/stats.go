// Package stats computes and caches cardinality statistics over the triple
// store: total counts, per-predicate/subject/object histograms, and a
// join-selectivity cache consulted by the optimizer's cost model.
package stats

import (
	"encoding/binary"
	"sync/atomic"

	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/zeebo/xxh3"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
)

// Statistics is an immutable snapshot of cardinality information taken at
// one point in the triple store's history. Snapshots are never mutated in
// place; a new snapshot replaces the old one wholesale via Handle.Set.
type Statistics struct {
	TripleCount        int
	DistinctSubjects   int
	DistinctPredicates int
	DistinctObjects    int

	PredicateCardinality map[uint32]int
	SubjectCardinality   map[uint32]int
	ObjectCardinality    map[uint32]int

	joinSelectivity *ristretto.Cache[uint64, float64]
}

// Compute builds a fresh Statistics snapshot from a full scan of triples.
func Compute(triples []index.Triple) *Statistics {
	s := &Statistics{
		TripleCount:          len(triples),
		PredicateCardinality: make(map[uint32]int),
		SubjectCardinality:   make(map[uint32]int),
		ObjectCardinality:    make(map[uint32]int),
	}

	subjects := make(map[uint32]struct{})
	predicates := make(map[uint32]struct{})
	objects := make(map[uint32]struct{})

	for _, t := range triples {
		subjects[t.S] = struct{}{}
		predicates[t.P] = struct{}{}
		objects[t.O] = struct{}{}
		s.PredicateCardinality[t.P]++
		s.SubjectCardinality[t.S]++
		s.ObjectCardinality[t.O]++
	}

	s.DistinctSubjects = len(subjects)
	s.DistinctPredicates = len(predicates)
	s.DistinctObjects = len(objects)

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, float64]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err == nil {
		s.joinSelectivity = cache
	}
	return s
}

// Empty returns a zero-valued snapshot for an empty triple store.
func Empty() *Statistics {
	return Compute(nil)
}

// SelectivityOfBound estimates the fraction of the relation a bound triple
// pattern selects, per the cost model's selectivity table.
func (s *Statistics) SelectivityOfBound(b index.Bound) float64 {
	if s == nil || s.TripleCount == 0 {
		return 0
	}
	switch {
	case b.HasS && b.HasP && b.HasO:
		return 1.0 / float64(s.TripleCount)
	case b.HasP:
		if c, ok := s.PredicateCardinality[b.P]; ok {
			sel := float64(c) / float64(s.TripleCount)
			if b.HasS || b.HasO {
				// A second bound position further restricts the result;
				// approximate independence between subject/object and
				// predicate selectivity (standard selectivity-estimation
				// assumption absent a join histogram).
				sel *= 0.5
			}
			return sel
		}
		return 0
	case b.HasS:
		if c, ok := s.SubjectCardinality[b.S]; ok {
			return float64(c) / float64(s.TripleCount)
		}
		return 0
	case b.HasO:
		if c, ok := s.ObjectCardinality[b.O]; ok {
			return float64(c) / float64(s.TripleCount)
		}
		return 0
	default:
		return 1.0
	}
}

// Cardinality estimates the absolute result size of a bound pattern.
func (s *Statistics) Cardinality(b index.Bound) float64 {
	if s == nil {
		return 0
	}
	return s.SelectivityOfBound(b) * float64(s.TripleCount)
}

// PatternKey is a canonical, order-independent key for a triple pattern
// used to index the join-selectivity cache.
type PatternKey struct {
	Subject, Predicate, Object uint32
	HasS, HasP, HasO           bool
}

func (k PatternKey) hashInto(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, k.Subject)
	buf = binary.BigEndian.AppendUint32(buf, k.Predicate)
	buf = binary.BigEndian.AppendUint32(buf, k.Object)
	buf = append(buf, boolByte(k.HasS), boolByte(k.HasP), boolByte(k.HasO))
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// joinSelectivityKey hashes two pattern keys into one 64-bit cache key via
// a 128-bit xxh3 digest folded to 64 bits. Order matters: (a, b) and (b, a)
// are treated as distinct entries since join cost estimation is itself
// computed left-to-right.
func joinSelectivityKey(a, b PatternKey) uint64 {
	buf := make([]byte, 0, 2*(4*3+3))
	buf = a.hashInto(buf)
	buf = b.hashInto(buf)
	h := xxh3.Hash128(buf)
	return h.Hi ^ h.Lo
}

// JoinSelectivity returns the cached selectivity for the join of patterns a
// and b, computing and caching it via estimate if absent. A nil receiver or
// unavailable cache falls back to calling estimate directly, uncached.
func (s *Statistics) JoinSelectivity(a, b PatternKey, estimate func() float64) float64 {
	if s == nil || s.joinSelectivity == nil {
		return estimate()
	}
	key := joinSelectivityKey(a, b)
	if v, ok := s.joinSelectivity.Get(key); ok {
		return v
	}
	v := estimate()
	s.joinSelectivity.Set(key, v, 1)
	s.joinSelectivity.Wait()
	return v
}

// Handle is a shared, atomically-swappable reference to the latest
// Statistics snapshot. Readers (optimizers) may hold the snapshot returned
// by Get across an entire query; a concurrent writer invalidating the live
// copy does not affect an in-flight reader's already-obtained snapshot.
type Handle struct {
	current atomic.Pointer[Statistics]
	stale   atomic.Bool
}

// NewHandle creates a Handle with no snapshot yet computed (stale).
func NewHandle() *Handle {
	h := &Handle{}
	h.stale.Store(true)
	return h
}

// Set installs snap as the live snapshot and marks the handle fresh.
func (h *Handle) Set(snap *Statistics) {
	h.current.Store(snap)
	h.stale.Store(false)
}

// Invalidate marks the handle stale without discarding the last snapshot —
// Get still returns it, with fresh=false, until a new one is Set.
func (h *Handle) Invalidate() {
	h.stale.Store(true)
}

// Get returns the current snapshot (possibly nil, if none was ever
// computed) and whether it is fresh with respect to the live triple set.
func (h *Handle) Get() (snap *Statistics, fresh bool) {
	return h.current.Load(), !h.stale.Load()
}
