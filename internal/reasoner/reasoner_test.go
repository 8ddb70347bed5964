package reasoner

import (
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// transitiveRule: ?x ancestor ?z :- ?x ancestor ?y, ?y ancestor ?z.
func transitiveRule() Rule {
	return Rule{
		Head: Atom{Subject: logical.Var("x"), Predicate: logical.Const("ancestor"), Object: logical.Var("z")},
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("ancestor"), Object: logical.Var("y")},
			{Subject: logical.Var("y"), Predicate: logical.Const("ancestor"), Object: logical.Var("z")},
		},
	}
}

func seedAncestors(s *store.TripleStore) {
	s.InsertTripleParts("a", "ancestor", "b")
	s.InsertTripleParts("b", "ancestor", "c")
	s.InsertTripleParts("c", "ancestor", "d")
}

func countAncestorPairs(s *store.TripleStore) int {
	id, _ := s.Dictionary().Lookup("ancestor")
	return len(s.Lookup(store.Pattern{HasP: true, P: id}))
}

func TestNaiveEvaluateDerivesTransitiveClosure(t *testing.T) {
	s := store.New()
	seedAncestors(s)
	r := New(s)

	derived := r.NaiveEvaluate([]Rule{transitiveRule()})
	if derived == 0 {
		t.Fatalf("expected at least one derived fact")
	}

	// a->b->c->d gives closure pairs: a-c, a-d, b-d (plus the 3 base facts).
	if got := countAncestorPairs(s); got != 6 {
		t.Fatalf("expected 6 total ancestor facts after closure, got %d", got)
	}
}

func TestSemiNaiveEvaluateMatchesNaiveResult(t *testing.T) {
	s := store.New()
	seedAncestors(s)
	r := New(s)

	r.SemiNaiveEvaluate([]Rule{transitiveRule()})
	if got := countAncestorPairs(s); got != 6 {
		t.Fatalf("expected 6 total ancestor facts after closure, got %d", got)
	}
}

func TestParallelSemiNaiveEvaluateMatchesNaiveResult(t *testing.T) {
	s := store.New()
	seedAncestors(s)
	r := New(s)

	r.ParallelSemiNaiveEvaluate([]Rule{transitiveRule()})
	if got := countAncestorPairs(s); got != 6 {
		t.Fatalf("expected 6 total ancestor facts after closure, got %d", got)
	}
}

func TestBackwardChainResolvesThroughRules(t *testing.T) {
	s := store.New()
	seedAncestors(s)
	r := New(s)

	goal := Atom{Subject: logical.Const("a"), Predicate: logical.Const("ancestor"), Object: logical.Var("z")}
	bindings := r.BackwardChain(goal, []Rule{transitiveRule()})

	found := map[string]bool{}
	for _, b := range bindings {
		v, _ := s.Dictionary().Decode(b["z"])
		found[v] = true
	}
	for _, want := range []string{"b", "c", "d"} {
		if !found[want] {
			t.Fatalf("expected backward chaining to reach %q, got %+v", want, found)
		}
	}
}

func TestBackwardChainDetectsCycles(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("a", "link", "a")
	r := New(s)

	cyclic := Rule{
		Head: Atom{Subject: logical.Var("x"), Predicate: logical.Const("reaches"), Object: logical.Var("y")},
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("link"), Object: logical.Var("y")},
			{Subject: logical.Var("y"), Predicate: logical.Const("reaches"), Object: logical.Var("y")},
		},
	}

	goal := Atom{Subject: logical.Const("a"), Predicate: logical.Const("reaches"), Object: logical.Var("z")}
	// If the goal-stack cycle guard failed to catch this self-referential
	// rule, this call would never return.
	r.BackwardChain(goal, []Rule{cyclic})
}

func TestRepairLeavesAssertedViolatorsInPlace(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "type", "student")
	s.InsertTripleParts("alice", "type", "employee")
	r := New(s)

	// Nothing derived here participates in derivedOrder, so the constraint
	// over two base facts should be unrepairable and left in place.
	constraint := Constraint{
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")},
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("employee")},
		},
	}

	violationsBefore := r.CheckViolations([]Constraint{constraint})
	if len(violationsBefore) == 0 {
		t.Fatalf("expected the student/employee conflict to be detected")
	}

	removed := r.Repair([]Constraint{constraint})
	if len(removed) != 0 {
		t.Fatalf("expected no removals since both facts are asserted, not derived, got %+v", removed)
	}
}

func TestRepairRemovesDerivedConflict(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "type", "student")
	r := New(s)

	// A rule that (questionably) derives employee status for every student,
	// creating a conflict with the student/employee exclusivity constraint.
	deriveEmployee := Rule{
		Head: Atom{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("employee")},
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")},
		},
	}
	r.NaiveEvaluate([]Rule{deriveEmployee})

	constraint := Constraint{
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")},
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("employee")},
		},
	}

	removed := r.Repair([]Constraint{constraint})
	if len(removed) != 1 {
		t.Fatalf("expected exactly 1 removal, got %d (%+v)", len(removed), removed)
	}

	violationsAfter := r.CheckViolations([]Constraint{constraint})
	if len(violationsAfter) != 0 {
		t.Fatalf("expected no violations remaining after repair, got %+v", violationsAfter)
	}
}

func TestQueryWithRepairsWithholdsConflictingFacts(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("alice", "type", "student")
	s.InsertTripleParts("bob", "type", "student")
	r := New(s)

	deriveEmployee := Rule{
		Head: Atom{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("employee")},
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")},
		},
	}
	r.NaiveEvaluate([]Rule{deriveEmployee})

	constraint := Constraint{
		Body: []Atom{
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")},
			{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("employee")},
		},
	}

	goal := Atom{Subject: logical.Var("x"), Predicate: logical.Const("type"), Object: logical.Const("student")}
	certain := r.QueryWithRepairs(goal, []Constraint{constraint})
	if len(certain) != 0 {
		t.Fatalf("expected both student facts to be withheld as conflicted, got %+v", certain)
	}
}
