package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/snapshot"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func newSnapshotCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or load a BadgerDB snapshot of a store's triples",
	}
	root.AddCommand(newSnapshotSaveCmd())
	root.AddCommand(newSnapshotLoadCmd())
	return root
}

func newSnapshotSaveCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "save <snapshot-dir>",
		Short: "Load an N-Triples file and save its triples to a BadgerDB snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New()
			if dataPath != "" {
				if err := loadNTriplesFile(s, dataPath); err != nil {
					return err
				}
			}
			if err := snapshot.Save(args[0], s); err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
			fmt.Printf("saved %d triples to %s\n", s.Count(), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "N-Triples file to load before saving")
	return cmd
}

func newSnapshotLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <snapshot-dir>",
		Short: "Load a BadgerDB snapshot and print its triple count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New()
			n, err := snapshot.Load(args[0], s)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}
			fmt.Printf("loaded %d triples from %s (%d total)\n", n, args[0], s.Count())
			return nil
		},
	}
}
