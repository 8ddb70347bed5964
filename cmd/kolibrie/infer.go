package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/reasoner"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func newInferCmd() *cobra.Command {
	var dataPath, predicate string
	var parallel bool

	cmd := &cobra.Command{
		Use:   "infer --predicate <iri>",
		Short: "Compute the transitive closure of a predicate and print how many facts were derived",
		Long: `Rules are not parsed from N3 text here — infer accepts a predicate IRI
and builds its transitive-closure rule directly as a structured reasoner.Rule,
the way a caller embedding this engine would construct rules programmatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New()
			if dataPath != "" {
				if err := loadNTriplesFile(s, dataPath); err != nil {
					return err
				}
			}

			rule := transitiveClosureRule(predicate)
			r := reasoner.New(s)

			var derived int
			if parallel {
				derived = r.ParallelSemiNaiveEvaluate([]reasoner.Rule{rule})
			} else {
				derived = r.SemiNaiveEvaluate([]reasoner.Rule{rule})
			}
			fmt.Printf("Derived %d new fact(s) over <%s>\n", derived, predicate)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "N-Triples file to load before inferring")
	cmd.Flags().StringVar(&predicate, "predicate", "", "predicate IRI to compute the transitive closure of")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "use the parallel semi-naive evaluator")
	cmd.MarkFlagRequired("predicate")
	return cmd
}

// transitiveClosureRule builds "p(x,z) :- p(x,y), p(y,z)" for the given
// predicate IRI.
func transitiveClosureRule(predicate string) reasoner.Rule {
	p := logical.Const(predicate)
	return reasoner.Rule{
		Head: reasoner.Atom{Subject: logical.Var("x"), Predicate: p, Object: logical.Var("z")},
		Body: []reasoner.Atom{
			{Subject: logical.Var("x"), Predicate: p, Object: logical.Var("y")},
			{Subject: logical.Var("y"), Predicate: p, Object: logical.Var("z")},
		},
	}
}
