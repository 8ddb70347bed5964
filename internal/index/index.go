// Package index implements the six permuted triple indexes (SPO, PSO, OSP,
// POS, SOP, OPS) that back the triple store's pattern lookups. Each index is
// a google/btree ordered set keyed on its own permutation of the triple's
// three term IDs, giving deterministic, sorted traversal order on
// single-threaded paths.
package index

import (
	"github.com/google/btree"
)

// Triple is an ordered (subject, predicate, object) tuple of dense term IDs.
type Triple struct {
	S, P, O uint32
}

// Permutation names one of the six orderings a triple can be indexed under.
type Permutation int

const (
	SPO Permutation = iota
	PSO
	OSP
	POS
	SOP
	OPS
)

var allPermutations = [6]Permutation{SPO, PSO, OSP, POS, SOP, OPS}

func (p Permutation) String() string {
	switch p {
	case SPO:
		return "SPO"
	case PSO:
		return "PSO"
	case OSP:
		return "OSP"
	case POS:
		return "POS"
	case SOP:
		return "SOP"
	case OPS:
		return "OPS"
	default:
		return "?"
	}
}

// permute reorders (s, p, o) into the three-position key that permutation p
// sorts on.
func permute(p Permutation, s, pr, o uint32) key {
	switch p {
	case SPO:
		return key{s, pr, o}
	case PSO:
		return key{pr, s, o}
	case OSP:
		return key{o, s, pr}
	case POS:
		return key{pr, o, s}
	case SOP:
		return key{s, o, pr}
	case OPS:
		return key{o, pr, s}
	default:
		panic("index: unknown permutation")
	}
}

// unpermute reconstructs (s, p, o) from a permutation's key.
func unpermute(p Permutation, k key) Triple {
	switch p {
	case SPO:
		return Triple{k[0], k[1], k[2]}
	case PSO:
		return Triple{k[1], k[0], k[2]}
	case OSP:
		return Triple{k[1], k[2], k[0]}
	case POS:
		return Triple{k[2], k[0], k[1]}
	case SOP:
		return Triple{k[0], k[2], k[1]}
	case OPS:
		return Triple{k[2], k[1], k[0]}
	default:
		panic("index: unknown permutation")
	}
}

// key is a permuted, lexicographically ordered 3-tuple of term IDs.
type key [3]uint32

func lessKey(a, b key) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

// MultiIndex holds all six permuted btree indexes over the same logical set
// of triples, kept mutually consistent on every insert/delete.
type MultiIndex struct {
	trees [6]*btree.BTreeG[key]
	size  int
}

// New creates an empty MultiIndex.
func New() *MultiIndex {
	m := &MultiIndex{}
	for _, p := range allPermutations {
		m.trees[p] = btree.NewG(32, lessKey)
	}
	return m
}

// Insert adds (s, p, o) to all six indexes. It reports whether the triple
// was new (true) or already present (false).
func (m *MultiIndex) Insert(s, p, o uint32) (wasNew bool) {
	spoKey := permute(SPO, s, p, o)
	if _, found := m.trees[SPO].Get(spoKey); found {
		return false
	}
	for _, perm := range allPermutations {
		m.trees[perm].ReplaceOrInsert(permute(perm, s, p, o))
	}
	m.size++
	return true
}

// Delete removes (s, p, o) from all six indexes. It reports whether the
// triple was present (true) or already absent (false).
func (m *MultiIndex) Delete(s, p, o uint32) (wasRemoved bool) {
	spoKey := permute(SPO, s, p, o)
	if _, found := m.trees[SPO].Get(spoKey); !found {
		return false
	}
	for _, perm := range allPermutations {
		m.trees[perm].Delete(permute(perm, s, p, o))
	}
	m.size--
	return true
}

// Contains reports whether (s, p, o) is present.
func (m *MultiIndex) Contains(s, p, o uint32) bool {
	_, found := m.trees[SPO].Get(permute(SPO, s, p, o))
	return found
}

// Len returns the number of triples currently indexed.
func (m *MultiIndex) Len() int {
	return m.size
}

// Bound describes which positions of a triple pattern carry a concrete ID
// (as opposed to a variable, which is left zero/absent in the pattern).
type Bound struct {
	S, P, O       uint32
	HasS, HasP, HasO bool
}

// Choose implements the index-selection policy from the spec: given the
// bound-position set, pick the permutation whose ordering places the bound
// positions as a contiguous prefix. Ties are broken toward predicate-first
// indexes, matching the documented preference table.
func Choose(b Bound) Permutation {
	switch {
	case b.HasS && b.HasP && b.HasO:
		return SPO // any index serves an exact point lookup; SPO is as good as any
	case b.HasS && b.HasP:
		return SPO
	case b.HasP && b.HasO:
		return POS
	case b.HasS && b.HasO:
		return SOP
	case b.HasP:
		return PSO
	case b.HasS:
		return SPO
	case b.HasO:
		return OSP
	default:
		return SPO // full scan
	}
}

// Scan returns every triple in the index matching the given bound pattern,
// using the permutation chosen by Choose, in that permutation's sort order.
func (m *MultiIndex) Scan(b Bound) []Triple {
	perm := Choose(b)
	tree := m.trees[perm]

	lo, hi, exact := boundsFor(perm, b)

	var out []Triple
	visit := func(k key) bool {
		t := unpermute(perm, k)
		if matches(t, b) {
			out = append(out, t)
		}
		return true
	}

	switch {
	case exact:
		if v, found := tree.Get(lo); found {
			out = append(out, unpermute(perm, v))
		}
	case hi == nil:
		tree.AscendGreaterOrEqual(lo, visit)
	default:
		tree.AscendRange(lo, *hi, visit)
	}
	return out
}

// matches reports whether t satisfies every bound position in b. Needed
// because a scan can over-select: when the bound prefix's last value is the
// maximum uint32, boundsFor has no upper bound and the scan runs to the end
// of the tree.
func matches(t Triple, b Bound) bool {
	if b.HasS && t.S != b.S {
		return false
	}
	if b.HasP && t.P != b.P {
		return false
	}
	if b.HasO && t.O != b.O {
		return false
	}
	return true
}

// boundsFor computes the btree range [lo, hi) for perm given the bound
// pattern, or reports exact=true when all three positions are bound (single
// point lookup). The range covers only the contiguous bound prefix that
// Choose guarantees perm places at the front of its key, so the scan touches
// no more of the tree than the selectivity of that prefix warrants; hi==nil
// means "to the end" (when nothing is bound, i.e. a full scan, or when the
// prefix's last bound value is the maximum uint32).
func boundsFor(perm Permutation, b Bound) (lo key, hi *key, exact bool) {
	if b.HasS && b.HasP && b.HasO {
		return permute(perm, b.S, b.P, b.O), nil, true
	}

	full := key{valOr0(slotHas(perm, 0, b), slotVal(perm, 0, b)),
		valOr0(slotHas(perm, 1, b), slotVal(perm, 1, b)),
		valOr0(slotHas(perm, 2, b), slotVal(perm, 2, b))}

	depth := 0
	for i := 0; i < 3; i++ {
		if !slotHas(perm, i, b) {
			break
		}
		depth++
	}
	if depth == 0 {
		return full, nil, false
	}

	upper := full
	if upper[depth-1] == ^uint32(0) {
		// Incrementing would overflow; there is no valid upper bound, so
		// scan to the end of the tree (matches() still filters exactly).
		return full, nil, false
	}
	upper[depth-1]++
	for i := depth; i < 3; i++ {
		upper[i] = 0
	}
	return full, &upper, false
}

// slotHas/slotVal report whether the triple position perm places at key
// slot i is bound in b, and its bound value.
func slotHas(perm Permutation, slot int, b Bound) bool {
	switch positionAt(perm, slot) {
	case 's':
		return b.HasS
	case 'p':
		return b.HasP
	case 'o':
		return b.HasO
	}
	return false
}

func slotVal(perm Permutation, slot int, b Bound) uint32 {
	switch positionAt(perm, slot) {
	case 's':
		return b.S
	case 'p':
		return b.P
	case 'o':
		return b.O
	}
	return 0
}

// positionAt returns which triple position ('s', 'p', or 'o') permutation
// perm places at key slot i (0, 1, or 2).
func positionAt(perm Permutation, slot int) byte {
	var order [3]byte
	switch perm {
	case SPO:
		order = [3]byte{'s', 'p', 'o'}
	case PSO:
		order = [3]byte{'p', 's', 'o'}
	case OSP:
		order = [3]byte{'o', 's', 'p'}
	case POS:
		order = [3]byte{'p', 'o', 's'}
	case SOP:
		order = [3]byte{'s', 'o', 'p'}
	case OPS:
		order = [3]byte{'o', 'p', 's'}
	}
	return order[slot]
}

func valOr0(has bool, v uint32) uint32 {
	if has {
		return v
	}
	return 0
}

// AllOrdered returns every triple in the canonical (SPO) index, in sorted
// order. Used for full scans and naive-forward-chaining passes.
func (m *MultiIndex) AllOrdered() []Triple {
	out := make([]Triple, 0, m.size)
	m.trees[SPO].Ascend(func(k key) bool {
		out = append(out, unpermute(SPO, k))
		return true
	})
	return out
}

// Rebuild discards and reconstructs all six indexes from the canonical SPO
// index. This is an explicit operation per the spec (incremental maintenance
// is the default on Insert/Delete); every permutation's tree, SPO included,
// is replaced by a freshly built one.
func (m *MultiIndex) Rebuild() {
	all := m.AllOrdered()
	for _, perm := range allPermutations {
		m.trees[perm] = btree.NewG(32, lessKey)
	}
	m.size = 0
	for _, t := range all {
		for _, perm := range allPermutations {
			m.trees[perm].ReplaceOrInsert(permute(perm, t.S, t.P, t.O))
		}
		m.size++
	}
}
