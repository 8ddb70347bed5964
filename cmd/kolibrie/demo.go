package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/exec"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/optimizer"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/sparqlsyntax"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Load sample data and run a sample query against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

func runDemo() error {
	s := store.New()

	triples := [][3]string{
		{"http://example.org/alice", "http://xmlns.com/foaf/0.1/name", "Alice"},
		{"http://example.org/alice", "http://xmlns.com/foaf/0.1/age", "30"},
		{"http://example.org/alice", "http://xmlns.com/foaf/0.1/knows", "http://example.org/bob"},
		{"http://example.org/bob", "http://xmlns.com/foaf/0.1/name", "Bob"},
		{"http://example.org/bob", "http://xmlns.com/foaf/0.1/age", "25"},
		{"http://example.org/bob", "http://xmlns.com/foaf/0.1/knows", "http://example.org/carol"},
		{"http://example.org/carol", "http://xmlns.com/foaf/0.1/name", "Carol"},
		{"http://example.org/carol", "http://xmlns.com/foaf/0.1/age", "28"},
	}
	fmt.Println("Inserting sample data...")
	inserted := s.InsertTriplePartsBulk(triples)
	fmt.Printf("  inserted %d triples (%d total in store)\n\n", inserted, s.Count())

	query := `SELECT ?person ?name ?age WHERE {
		?person <http://xmlns.com/foaf/0.1/name> ?name .
		?person <http://xmlns.com/foaf/0.1/age> ?age .
	}`
	fmt.Printf("Query:\n%s\n\n", query)

	return executeAndPrint(s, query)
}

func executeAndPrint(s *store.TripleStore, query string) error {
	q, err := sparqlsyntax.NewParser(query).Parse()
	if err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}
	if q.Insert {
		return runInsertWhere(s, q)
	}

	plan, err := sparqlsyntax.BuildPlan(q)
	if err != nil {
		return fmt.Errorf("building plan: %w", err)
	}
	physicalPlan := optimizer.New(s).Optimize(plan)

	it, err := exec.New(s).Execute(physicalPlan)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	it = applyModifiers(it, q, s)

	if q.Ask {
		hasRow := it.Next()
		_ = it.Close()
		fmt.Printf("Result: %t\n", hasRow)
		return nil
	}

	rows, err := exec.Decode(it, s.Dictionary())
	if err != nil {
		return fmt.Errorf("decoding results: %w", err)
	}
	for _, row := range rows {
		fmt.Println(formatRow(row))
	}
	fmt.Printf("\n%d result(s)\n", len(rows))
	return nil
}

func runInsertWhere(s *store.TripleStore, q *sparqlsyntax.Query) error {
	plan, err := sparqlsyntax.BuildPlan(q)
	if err != nil {
		return fmt.Errorf("building WHERE plan: %w", err)
	}
	physicalPlan := optimizer.New(s).Optimize(plan)
	it, err := exec.New(s).Execute(physicalPlan)
	if err != nil {
		return fmt.Errorf("executing WHERE plan: %w", err)
	}
	rows, err := exec.Decode(it, s.Dictionary())
	if err != nil {
		return fmt.Errorf("decoding WHERE results: %w", err)
	}

	inserted := 0
	for _, row := range rows {
		triples, err := sparqlsyntax.Instantiate(q.InsertTemplate, row)
		if err != nil {
			return fmt.Errorf("instantiating INSERT template: %w", err)
		}
		for _, t := range triples {
			if s.InsertTripleParts(t[0], t[1], t[2]) {
				inserted++
			}
		}
	}
	fmt.Printf("Inserted %d triple(s)\n", inserted)
	return nil
}

func applyModifiers(it exec.Iterator, q *sparqlsyntax.Query, s *store.TripleStore) exec.Iterator {
	if len(q.OrderBy) > 0 {
		keys := make([]exec.OrderKey, len(q.OrderBy))
		for i, o := range q.OrderBy {
			keys[i] = exec.OrderKey{Variable: o.Variable, Desc: o.Descending}
		}
		if ordered, err := exec.OrderBy(it, keys, s.Dictionary()); err == nil {
			it = ordered
		}
	}
	if q.Distinct {
		it = exec.Distinct(it)
	}
	if q.Offset != nil {
		it = exec.Offset(it, *q.Offset)
	}
	if q.Limit != nil {
		it = exec.Limit(it, *q.Limit)
	}
	return it
}

func formatRow(row map[string]string) string {
	out := "{"
	first := true
	for k, v := range row {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s=%s", k, v)
	}
	return out + "}"
}
