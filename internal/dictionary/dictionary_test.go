package dictionary

import (
	"sync"
	"testing"
)

func TestEncodeIdempotent(t *testing.T) {
	d := New()
	id1 := d.Encode("http://example.org/alice")
	id2 := d.Encode("http://example.org/alice")
	if id1 != id2 {
		t.Fatalf("expected idempotent encoding, got %d and %d", id1, id2)
	}
}

func TestEncodeAssignsDistinctIDs(t *testing.T) {
	d := New()
	a := d.Encode("a")
	b := d.Encode("b")
	if a == b {
		t.Fatalf("expected distinct IDs for distinct terms")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	d := New()
	terms := []string{"alice", "bob", "charlie"}
	for _, term := range terms {
		id := d.Encode(term)
		got, ok := d.Decode(id)
		if !ok || got != term {
			t.Fatalf("decode(encode(%q)) = (%q, %v), want (%q, true)", term, got, ok, term)
		}
	}
}

func TestEncodeDecodeIdentityOnEveryTerm(t *testing.T) {
	d := New()
	terms := []string{"x", "y", "z", "x", "y"}
	for _, term := range terms {
		id := d.Encode(term)
		got, ok := d.Decode(id)
		if !ok || got != term {
			t.Fatalf("round-trip failed for %q", term)
		}
	}
}

func TestDecodeUnknownIDReturnsAbsent(t *testing.T) {
	d := New()
	d.Encode("a")
	if _, ok := d.Decode(999); ok {
		t.Fatalf("expected absent for unknown id")
	}
	if _, ok := d.Decode(AbsentID); ok {
		t.Fatalf("expected absent for reserved id 0")
	}
}

func TestEncodeAllPreservesFirstOccurrenceOrder(t *testing.T) {
	d := New()
	ids := d.EncodeAll([]string{"a", "b", "a", "c", "b"})
	if ids[0] != ids[2] {
		t.Fatalf("expected repeated term 'a' to share an id")
	}
	if ids[1] != ids[4] {
		t.Fatalf("expected repeated term 'b' to share an id")
	}
	if ids[0] == ids[1] || ids[1] == ids[3] {
		t.Fatalf("expected distinct terms to have distinct ids")
	}
	// First occurrence order: a, b, c -> ids 1, 2, 3
	if ids[0] != 1 || ids[1] != 2 || ids[3] != 3 {
		t.Fatalf("expected monotonic first-occurrence assignment, got %v", ids)
	}
}

func TestEncodeIDsNeverReused(t *testing.T) {
	d := New()
	first := d.Encode("a")
	d.Encode("b")
	d.Encode("c")
	again := d.Encode("a")
	if first != again {
		t.Fatalf("id for 'a' changed: %d -> %d", first, again)
	}
}

func TestConcurrentEncodeIsSafe(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	terms := []string{"a", "b", "c", "d", "e"}
	ids := make([][]uint32, len(terms))
	for i := range ids {
		ids[i] = make([]uint32, 50)
	}

	for round := 0; round < 50; round++ {
		for i, term := range terms {
			wg.Add(1)
			go func(i int, term string, round int) {
				defer wg.Done()
				ids[i][round] = d.Encode(term)
			}(i, term, round)
		}
	}
	wg.Wait()

	for i := range terms {
		for round := 1; round < 50; round++ {
			if ids[i][round] != ids[i][0] {
				t.Fatalf("term %q got inconsistent ids across goroutines: %v", terms[i], ids[i])
			}
		}
	}
}

func TestLookupDoesNotAssign(t *testing.T) {
	d := New()
	if _, ok := d.Lookup("never-seen"); ok {
		t.Fatalf("expected lookup of unseen term to fail")
	}
	if d.Len() != 0 {
		t.Fatalf("lookup must not assign a new id")
	}
}
