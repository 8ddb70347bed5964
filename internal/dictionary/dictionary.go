// Package dictionary implements the bidirectional map between RDF term
// strings and the dense 32-bit term IDs the rest of the engine operates on.
package dictionary

import (
	"sync"
)

// AbsentID is the reserved "not present" term ID. No real term is ever
// assigned this value.
const AbsentID uint32 = 0

// Dictionary is a concurrent, append-only string<->ID encoder. IDs are
// assigned monotonically starting at 1 and are stable for the lifetime of
// the Dictionary: they are never reused, and a term's encoding never
// changes once assigned.
type Dictionary struct {
	mu      sync.RWMutex
	encode  map[string]uint32
	decode  []string // decode[id-1] == term for id >= 1
}

// New creates an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{
		encode: make(map[string]uint32),
	}
}

// Encode returns the ID for term, assigning a new one if term has not been
// seen before. Encode is total: it never fails.
func (d *Dictionary) Encode(term string) uint32 {
	d.mu.RLock()
	if id, ok := d.encode[term]; ok {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check under the write lock: another writer may have raced us.
	if id, ok := d.encode[term]; ok {
		return id
	}

	d.decode = append(d.decode, term)
	id := uint32(len(d.decode)) // #nosec G115 - dictionary size bounded by available memory, never approaches 2^32
	d.encode[term] = id
	return id
}

// Decode returns the term for id and true, or "" and false if id is unknown
// or is AbsentID.
func (d *Dictionary) Decode(id uint32) (string, bool) {
	if id == AbsentID {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := int(id) - 1
	if idx < 0 || idx >= len(d.decode) {
		return "", false
	}
	return d.decode[idx], true
}

// Lookup returns the ID for term without assigning a new one. It returns
// (AbsentID, false) if term has never been encoded.
func (d *Dictionary) Lookup(term string) (uint32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.encode[term]
	return id, ok
}

// EncodeAll encodes a sequence of terms in order, preserving first-occurrence
// order in the Dictionary regardless of duplicates within terms.
func (d *Dictionary) EncodeAll(terms []string) []uint32 {
	ids := make([]uint32, len(terms))
	for i, t := range terms {
		ids[i] = d.Encode(t)
	}
	return ids
}

// Len returns the number of distinct terms encoded so far.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.decode)
}
