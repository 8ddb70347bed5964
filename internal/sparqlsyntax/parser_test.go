package sparqlsyntax

import (
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := NewParser(`SELECT ?x ?y WHERE { ?x <http://example.org/knows> ?y . }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Ask || q.Insert || q.SelectAll {
		t.Fatalf("expected a plain SELECT query, got %+v", q)
	}
	if len(q.Variables) != 2 || q.Variables[0] != "x" || q.Variables[1] != "y" {
		t.Fatalf("expected variables [x y], got %v", q.Variables)
	}
	if len(q.Where.Patterns) != 1 {
		t.Fatalf("expected 1 triple pattern, got %d", len(q.Where.Patterns))
	}
	pat := q.Where.Patterns[0]
	if pat.Subject != logical.Var("x") || pat.Object != logical.Var("y") {
		t.Fatalf("unexpected pattern: %+v", pat)
	}
	if pat.Predicate != logical.Const("http://example.org/knows") {
		t.Fatalf("unexpected predicate: %+v", pat.Predicate)
	}
}

func TestParseSelectStar(t *testing.T) {
	q, err := NewParser(`SELECT * WHERE { ?x <http://example.org/p> ?y }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.SelectAll {
		t.Fatalf("expected SelectAll, got %+v", q)
	}
}

func TestParseFilter(t *testing.T) {
	q, err := NewParser(`SELECT ?x WHERE { ?x <http://example.org/age> ?a . FILTER(?a > 25) }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Where.Filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(q.Where.Filters))
	}
}

func TestParseAggregateWithGroupBy(t *testing.T) {
	q, err := NewParser(`SELECT ?x (COUNT(?y) AS ?c) WHERE { ?x <http://example.org/knows> ?y } GROUP BY ?x`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Aggregates) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(q.Aggregates))
	}
	agg := q.Aggregates[0]
	if agg.Func != logical.AggCount || agg.Variable != "y" || agg.Alias != "c" {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	if len(q.GroupBy) != 1 || q.GroupBy[0] != "x" {
		t.Fatalf("expected GROUP BY [x], got %v", q.GroupBy)
	}
}

func TestParseOrderLimitOffset(t *testing.T) {
	q, err := NewParser(`SELECT ?x WHERE { ?x <http://example.org/age> ?a } ORDER BY DESC(?a) LIMIT 5 OFFSET 2`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.OrderBy) != 1 || q.OrderBy[0].Variable != "a" || !q.OrderBy[0].Descending {
		t.Fatalf("unexpected order by: %+v", q.OrderBy)
	}
	if q.Limit == nil || *q.Limit != 5 {
		t.Fatalf("expected LIMIT 5, got %v", q.Limit)
	}
	if q.Offset == nil || *q.Offset != 2 {
		t.Fatalf("expected OFFSET 2, got %v", q.Offset)
	}
}

func TestParseAsk(t *testing.T) {
	q, err := NewParser(`ASK WHERE { ?x <http://example.org/knows> <http://example.org/bob> }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Ask {
		t.Fatalf("expected an ASK query, got %+v", q)
	}
}

func TestParseInsertWhere(t *testing.T) {
	q, err := NewParser(`INSERT { ?x <http://example.org/adult> "true" } WHERE { ?x <http://example.org/age> ?a . FILTER(?a >= 18) }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Insert {
		t.Fatalf("expected an INSERT query, got %+v", q)
	}
	if len(q.InsertTemplate) != 1 {
		t.Fatalf("expected 1 template triple, got %d", len(q.InsertTemplate))
	}
	if len(q.Where.Filters) != 1 {
		t.Fatalf("expected 1 WHERE filter, got %d", len(q.Where.Filters))
	}
}

func TestParsePrefixedNames(t *testing.T) {
	q, err := NewParser(`PREFIX ex: <http://example.org/>
SELECT ?x WHERE { ?x ex:knows ex:bob }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pat := q.Where.Patterns[0]
	if pat.Predicate != logical.Const("http://example.org/knows") {
		t.Fatalf("expected expanded prefix, got %+v", pat.Predicate)
	}
	if pat.Object != logical.Const("http://example.org/bob") {
		t.Fatalf("expected expanded prefix, got %+v", pat.Object)
	}
}

func TestBuildPlanJoinsMultiplePatterns(t *testing.T) {
	q, err := NewParser(`SELECT ?x WHERE { ?x <http://example.org/knows> ?y . ?y <http://example.org/likes> ?z . }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan, err := BuildPlan(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proj, ok := plan.(logical.Projection)
	if !ok {
		t.Fatalf("expected a Projection at the root, got %T", plan)
	}
	if _, ok := proj.Child.(logical.Join); !ok {
		t.Fatalf("expected a Join under the projection, got %T", proj.Child)
	}
}

func TestInstantiateResolvesTemplateVariables(t *testing.T) {
	template := []logical.Scan{
		{Subject: logical.Var("x"), Predicate: logical.Const("http://example.org/adult"), Object: logical.Const("true")},
	}
	row := map[string]string{"x": "alice"}
	triples, err := Instantiate(template, row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triples) != 1 || triples[0][0] != "alice" || triples[0][2] != "true" {
		t.Fatalf("unexpected instantiation: %+v", triples)
	}
}

func TestInstantiateErrorsOnUnboundVariable(t *testing.T) {
	template := []logical.Scan{
		{Subject: logical.Var("missing"), Predicate: logical.Const("p"), Object: logical.Const("o")},
	}
	if _, err := Instantiate(template, map[string]string{}); err == nil {
		t.Fatalf("expected an error for an unbound template variable")
	}
}
