// Package snapshot exports and imports a triple store's contents to and
// from an on-disk BadgerDB, for operators who want to hand a store's
// contents to another process or reload it across restarts. This is an
// external-collaborator persistence artifact, not the store's storage
// model — internal/store stays purely in-memory; snapshot is the bridge
// to disk for the operators who need one.
package snapshot

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

var triplePrefix = []byte("triple:")

// Save opens (creating if absent) a BadgerDB at path and writes every
// triple currently in s, one key per triple, keyed by the triple's position
// in the store's canonical (SPO) order. Any existing snapshot at path is
// replaced.
func Save(path string, s *store.TripleStore) error {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("snapshot: opening badger db: %w", err)
	}
	defer db.Close()

	if err := db.DropPrefix(triplePrefix); err != nil {
		return fmt.Errorf("snapshot: clearing previous snapshot: %w", err)
	}

	dict := s.Dictionary()
	triples := s.All()

	return db.Update(func(txn *badger.Txn) error {
		for i, t := range triples {
			subj, ok1 := dict.Decode(t.S)
			pred, ok2 := dict.Decode(t.P)
			obj, ok3 := dict.Decode(t.O)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			value, err := json.Marshal([3]string{subj, pred, obj})
			if err != nil {
				return fmt.Errorf("snapshot: encoding triple %d: %w", i, err)
			}
			key := tripleKey(i)
			if err := txn.Set(key, value); err != nil {
				return fmt.Errorf("snapshot: writing triple %d: %w", i, err)
			}
		}
		return nil
	})
}

// Load opens the BadgerDB at path and inserts every stored triple into s,
// returning the count of triples newly inserted (duplicates of triples
// already in s are skipped by the store's own dedup).
func Load(path string, s *store.TripleStore) (int, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return 0, fmt.Errorf("snapshot: opening badger db: %w", err)
	}
	defer db.Close()

	var triples [][3]string
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = triplePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(triplePrefix); it.ValidForPrefix(triplePrefix); it.Next() {
			var t [3]string
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return fmt.Errorf("snapshot: decoding triple: %w", err)
			}
			triples = append(triples, t)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return s.InsertTriplePartsBulk(triples), nil
}

func tripleKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%010d", triplePrefix, i))
}
