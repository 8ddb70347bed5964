package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/ntriples"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/snapshot"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func newQueryCmd() *cobra.Command {
	var dataPath, snapPath string

	cmd := &cobra.Command{
		Use:   "query <sparql>",
		Short: "Load data into a fresh store and execute a SPARQL-subset query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New()
			if snapPath != "" {
				if _, err := snapshot.Load(snapPath, s); err != nil {
					return fmt.Errorf("loading snapshot: %w", err)
				}
			}
			if dataPath != "" {
				if err := loadNTriplesFile(s, dataPath); err != nil {
					return err
				}
			}
			return executeAndPrint(s, args[0])
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "N-Triples file to load before querying")
	cmd.Flags().StringVar(&snapPath, "snapshot", "", "BadgerDB snapshot directory to load before querying")
	return cmd
}

func loadNTriplesFile(s *store.TripleStore, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	triples, err := ntriples.NewParser(string(data)).Parse()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, t := range triples {
		s.InsertTripleParts(t.Subject, t.Predicate, t.Object)
	}
	return nil
}
