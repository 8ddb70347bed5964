package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func TestSaveThenLoadRoundTripsTriples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap")

	src := store.New()
	src.InsertTripleParts("alice", "http://example.org/knows", "bob")
	src.InsertTripleParts("bob", "http://example.org/knows", "carol")

	if err := Save(path, src); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := store.New()
	n, err := Load(path, dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 triples loaded, got %d", n)
	}
	if dst.Count() != 2 {
		t.Fatalf("expected 2 triples in destination store, got %d", dst.Count())
	}
}

func TestLoadIsIdempotentAgainstExistingTriples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap")

	src := store.New()
	src.InsertTripleParts("alice", "http://example.org/knows", "bob")
	if err := Save(path, src); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := store.New()
	dst.InsertTripleParts("alice", "http://example.org/knows", "bob")
	n, err := Load(path, dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 newly inserted triples, got %d", n)
	}
	if dst.Count() != 1 {
		t.Fatalf("expected store to stay at 1 triple, got %d", dst.Count())
	}
}
