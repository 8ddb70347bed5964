// Package sparqlsyntax parses a practical subset of SPARQL — SELECT/ASK,
// WHERE with triple patterns and FILTER, GROUP BY with the five standard
// aggregates, ORDER BY, LIMIT/OFFSET, DISTINCT, and a simple
// INSERT { template } WHERE { pattern } form — into the logical-plan
// surface internal/optimizer and internal/exec already know how to run.
// Full SPARQL 1.1 conformance is an explicit non-goal; this package covers
// the "SPARQL string" collaborator contract, not the whole grammar.
package sparqlsyntax

import (
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
)

// GraphPattern is a basic graph pattern: a conjunction of triple patterns,
// each optionally narrowed by FILTER conditions over the whole pattern.
type GraphPattern struct {
	Patterns []logical.Scan
	Filters  []expr.Expr
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Variable   string
	Descending bool
}

// Query is a parsed query, one of SELECT, ASK, or INSERT...WHERE.
type Query struct {
	Ask  bool
	Insert bool

	SelectAll bool
	Variables []string
	Distinct  bool

	Where *GraphPattern

	GroupBy    []string
	Aggregates []logical.AggregateExpr

	OrderBy []OrderTerm
	Limit   *int
	Offset  *int

	// InsertTemplate holds the triple patterns of INSERT { ... }; its
	// variables are resolved from a WHERE-plan result row by Instantiate.
	InsertTemplate []logical.Scan
}

// BuildPlan translates q's WHERE clause (and, for SELECT, its projection
// and aggregation) into a logical.Plan ready for internal/optimizer.
// ORDER BY/LIMIT/OFFSET/DISTINCT are not part of the logical algebra —
// callers apply internal/exec's standalone iterator wrappers for those
// after executing the returned plan.
func BuildPlan(q *Query) (logical.Plan, error) {
	plan, err := buildWherePlan(q.Where)
	if err != nil {
		return nil, err
	}

	if len(q.GroupBy) > 0 || len(q.Aggregates) > 0 {
		plan = logical.Aggregation{Child: plan, GroupBy: q.GroupBy, Aggregates: q.Aggregates}
	}

	if q.Ask || q.Insert || q.SelectAll {
		return plan, nil
	}
	vars := append([]string{}, q.Variables...)
	for _, agg := range q.Aggregates {
		vars = append(vars, agg.Alias)
	}
	return logical.Projection{Child: plan, Vars_: vars}, nil
}

func buildWherePlan(where *GraphPattern) (logical.Plan, error) {
	if where == nil || len(where.Patterns) == 0 {
		return nil, errNoPatterns
	}
	var plan logical.Plan = where.Patterns[0]
	for _, pat := range where.Patterns[1:] {
		plan = logical.Join{Left: plan, Right: pat}
	}
	for _, f := range where.Filters {
		plan = logical.Selection{Child: plan, Condition: f}
	}
	return plan, nil
}

// Instantiate resolves template's variable positions against row (a
// decoded string row, as internal/exec.Decode produces) and returns the
// concrete (subject, predicate, object) string triples ready for
// store.TripleStore.InsertTripleParts. A template position that
// references a variable absent from row is an error — the INSERT
// template referenced something the WHERE pattern never bound.
func Instantiate(template []logical.Scan, row map[string]string) ([][3]string, error) {
	out := make([][3]string, 0, len(template))
	for _, pat := range template {
		s, err := resolveTemplateTerm(pat.Subject, row)
		if err != nil {
			return nil, err
		}
		p, err := resolveTemplateTerm(pat.Predicate, row)
		if err != nil {
			return nil, err
		}
		o, err := resolveTemplateTerm(pat.Object, row)
		if err != nil {
			return nil, err
		}
		out = append(out, [3]string{s, p, o})
	}
	return out, nil
}

func resolveTemplateTerm(t logical.Term, row map[string]string) (string, error) {
	if !t.IsVariable() {
		return t.Constant, nil
	}
	v, ok := row[t.Variable]
	if !ok {
		return "", unboundTemplateVarError(t.Variable)
	}
	return v, nil
}
