// Package store implements the canonical in-memory RDF triple set: a
// Dictionary-encoded collection of (s, p, o) ID-triples backed by the six
// permuted indexes in internal/index, with shared-read/exclusive-write
// concurrency and statistics invalidation on every mutation.
package store

import (
	"sync"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/dictionary"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/index"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/stats"
)

// Triple is a decoded-ID triple, re-exported here so callers of this
// package don't need to import internal/index directly.
type Triple = index.Triple

// Pattern is a triple pattern over term IDs: each position is either bound
// (Has* true) to a concrete ID or left as a variable.
type Pattern = index.Bound

// TripleStore is the core, in-memory RDF triple store. It owns a Dictionary
// for term<->ID encoding, a MultiIndex for the six permuted orderings, and
// a statistics handle that is invalidated on every mutation.
type TripleStore struct {
	mu    sync.RWMutex
	dict  *dictionary.Dictionary
	index *index.MultiIndex
	stats *stats.Handle
}

// New creates an empty TripleStore.
func New() *TripleStore {
	return &TripleStore{
		dict:  dictionary.New(),
		index: index.New(),
		stats: stats.NewHandle(),
	}
}

// Dictionary returns the store's term dictionary.
func (s *TripleStore) Dictionary() *dictionary.Dictionary {
	return s.dict
}

// Stats returns the store's shared statistics handle. Callers may hold the
// snapshot returned by Stats().Get() across a whole query; it remains
// internally consistent even if a concurrent writer invalidates the live
// copy afterward.
func (s *TripleStore) Stats() *stats.Handle {
	return s.stats
}

// InsertTripleParts encodes and inserts a triple given as three term
// strings — the contract boundary parsers use to feed data into the core.
// It returns whether the triple was new.
func (s *TripleStore) InsertTripleParts(subj, pred, obj string) bool {
	sid := s.dict.Encode(subj)
	pid := s.dict.Encode(pred)
	oid := s.dict.Encode(obj)
	return s.Insert(sid, pid, oid)
}

// InsertTriplePartsBulk inserts a slice of (s, p, o) string triples,
// preserving dictionary first-occurrence order across the whole batch.
// Partial failure is not possible here (encoding is total); a future
// malformed-input check at a higher layer may still leave a bulk load
// partially applied, per the "no multi-triple transaction" discipline.
func (s *TripleStore) InsertTriplePartsBulk(triples [][3]string) (inserted int) {
	for _, t := range triples {
		if s.InsertTripleParts(t[0], t[1], t[2]) {
			inserted++
		}
	}
	return inserted
}

// Insert adds the ID-triple (s, p, o), updates all six indexes, and
// invalidates cached statistics. It returns whether the triple was new.
func (s *TripleStore) Insert(sID, pID, oID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasNew := s.index.Insert(sID, pID, oID)
	if wasNew {
		s.stats.Invalidate()
	}
	return wasNew
}

// Delete removes the ID-triple (s, p, o) from all six indexes and
// invalidates cached statistics. It returns whether the triple was present.
func (s *TripleStore) Delete(sID, pID, oID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasRemoved := s.index.Delete(sID, pID, oID)
	if wasRemoved {
		s.stats.Invalidate()
	}
	return wasRemoved
}

// Lookup returns every triple matching pattern, chosen via the
// index-selection policy in internal/index, in that index's sort order.
// Callers may mutate the slice they receive; it is freshly allocated.
func (s *TripleStore) Lookup(pattern Pattern) []Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Scan(pattern)
}

// Contains reports whether (s, p, o) is present in the canonical set.
func (s *TripleStore) Contains(sID, pID, oID uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Contains(sID, pID, oID)
}

// Count returns the number of triples currently in the store.
func (s *TripleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// All returns every triple in the store, in canonical (SPO) sorted order.
func (s *TripleStore) All() []Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.AllOrdered()
}

// Rebuild discards and reconstructs all six indexes from the canonical set.
func (s *TripleStore) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Rebuild()
}

// RefreshStats recomputes a fresh statistics snapshot from the current
// triple set and installs it as the live snapshot.
func (s *TripleStore) RefreshStats() *stats.Statistics {
	s.mu.RLock()
	triples := s.index.AllOrdered()
	s.mu.RUnlock()
	snap := stats.Compute(triples)
	s.stats.Set(snap)
	return snap
}
