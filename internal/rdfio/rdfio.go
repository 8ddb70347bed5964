// Package rdfio wires internal/rdfterm's Turtle and RDF/XML parsers, and
// its canonical serializer, into the triple store as parser collaborators:
// they produce (subject, predicate, object) lexical strings and feed them
// through store.TripleStore.InsertTripleParts, exactly the boundary the
// core engine exposes to external format collaborators. Blank nodes and
// named graphs are accepted on parse but the store itself only ever sees
// a single graph, matching the core's in-memory, single-graph data model.
package rdfio

import (
	"fmt"
	"io"

	rdfterm "github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/rdfterm"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// LoadTurtle parses a Turtle document and inserts every resulting triple
// into s, returning the count of triples newly inserted.
func LoadTurtle(s *store.TripleStore, document string) (int, error) {
	triples, err := rdfterm.NewTurtleParser(document).Parse()
	if err != nil {
		return 0, fmt.Errorf("rdfio: parsing turtle: %w", err)
	}
	return insertTriples(s, triples), nil
}

// LoadRDFXML parses an RDF/XML document and inserts every resulting
// statement into s, dropping any named-graph component (RDF/XML never
// produces one outside rare reification constructs, and the store is
// single-graph regardless).
func LoadRDFXML(s *store.TripleStore, r io.Reader) (int, error) {
	quads, err := rdfterm.NewRDFXMLParser().Parse(r)
	if err != nil {
		return 0, fmt.Errorf("rdfio: parsing RDF/XML: %w", err)
	}
	return insertQuads(s, quads), nil
}

// LoadByContentType dispatches to the matching internal/rdfterm parser by
// MIME type (N-Triples, Turtle, or RDF/XML — the formats spec.md actually
// names as parser collaborators) and inserts every resulting triple into
// s. This mirrors the HTTP server collaborator's content-negotiated bulk
// upload, without committing the core to any particular wire format.
func LoadByContentType(s *store.TripleStore, contentType string, r io.Reader) (int, error) {
	parser, err := rdfterm.NewParser(contentType)
	if err != nil {
		return 0, fmt.Errorf("rdfio: %w", err)
	}
	triples, err := parser.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("rdfio: parsing %s: %w", contentType, err)
	}
	return insertTriples(s, triples), nil
}

func insertTriples(s *store.TripleStore, triples []*rdfterm.Triple) int {
	inserted := 0
	for _, t := range triples {
		if s.InsertTripleParts(termLexical(t.Subject), termLexical(t.Predicate), termLexical(t.Object)) {
			inserted++
		}
	}
	return inserted
}

func insertQuads(s *store.TripleStore, quads []*rdfterm.Quad) int {
	inserted := 0
	for _, q := range quads {
		if s.InsertTripleParts(termLexical(q.Subject), termLexical(q.Predicate), termLexical(q.Object)) {
			inserted++
		}
	}
	return inserted
}

// ExportCanonical renders every triple currently in s as internal/rdfterm's
// canonical N-Triples-like syntax, suitable for a round trip back through
// LoadTurtle or an external RDF/XML writer.
func ExportCanonical(s *store.TripleStore) string {
	dict := s.Dictionary()
	triples := make([]*rdfterm.Triple, 0, s.Count())
	for _, t := range s.All() {
		subj, ok1 := dict.Decode(t.S)
		pred, ok2 := dict.Decode(t.P)
		obj, ok3 := dict.Decode(t.O)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		triples = append(triples, rdfterm.NewTriple(rdfterm.NewNamedNode(subj), rdfterm.NewNamedNode(pred), literalOrNode(obj)))
	}
	return rdfterm.SerializeTriplesCanonical(triples)
}

// RoundTripIsomorphic reports whether two parses of (conceptually) the
// same graph are isomorphic up to blank-node renaming, as required of
// every RDF/XML/Turtle parser collaborator by the core's round-trip
// invariant.
func RoundTripIsomorphic(expected, actual []*rdfterm.Triple) bool {
	return rdfterm.AreGraphsIsomorphic(expected, actual)
}

// termLexical extracts the bare lexical form the store's dictionary
// stores — an IRI, a blank node label prefixed with "_:", or a literal's
// value stripped of language tag and datatype, matching internal/ntriples
// and internal/sparqlsyntax's literal handling so Filter's AsNumber keeps
// working uniformly regardless of which parser fed the store.
func termLexical(t rdfterm.Term) string {
	switch v := t.(type) {
	case *rdfterm.NamedNode:
		return v.IRI
	case *rdfterm.BlankNode:
		return "_:" + v.ID
	case *rdfterm.Literal:
		return v.Value
	default:
		return t.String()
	}
}

// literalOrNode is ExportCanonical's inverse of termLexical for objects:
// a lexical form that parses as an absolute IRI round-trips as a named
// node, anything else as a plain literal. This is a best-effort heuristic
// since the store itself no longer distinguishes the two once a term has
// been reduced to its dictionary string.
func literalOrNode(lexical string) rdfterm.Term {
	if looksLikeIRI(lexical) {
		return rdfterm.NewNamedNode(lexical)
	}
	return rdfterm.NewLiteral(lexical)
}

func looksLikeIRI(s string) bool {
	for i, r := range s {
		if r == ':' {
			return i > 0
		}
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return false
}
