package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/httpapi"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/snapshot"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func newServeCmd() *cobra.Command {
	var addr, dataPath, snapPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New()
			if snapPath != "" {
				n, err := snapshot.Load(snapPath, s)
				if err != nil {
					return fmt.Errorf("loading snapshot: %w", err)
				}
				fmt.Printf("loaded %d triples from snapshot %s\n", n, snapPath)
			}
			if dataPath != "" {
				if err := loadNTriplesFile(s, dataPath); err != nil {
					return err
				}
			}
			fmt.Printf("store holds %d triples\n", s.Count())

			srv := httpapi.NewServer(s, addr)
			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to serve on")
	cmd.Flags().StringVar(&dataPath, "data", "", "N-Triples file to load before serving")
	cmd.Flags().StringVar(&snapPath, "snapshot", "", "BadgerDB snapshot directory to load before serving")
	return cmd
}
