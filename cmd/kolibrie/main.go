// Command kolibrie is the CLI front end for the in-memory triple store,
// SPARQL-subset query engine, and Datalog reasoner: demo data, ad-hoc
// queries, rule-based inference, an HTTP query server, and BadgerDB
// snapshots, all against one store per process invocation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kolibrie",
		Short: "An in-memory RDF triple store with a SPARQL-subset engine and a Datalog reasoner",
	}

	root.AddCommand(newDemoCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newInferCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSnapshotCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
