package rdfio

import (
	"strings"
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/rdfterm"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func TestLoadTurtleInsertsTriples(t *testing.T) {
	s := store.New()
	doc := `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob .
ex:alice ex:age "30" .`

	n, err := LoadTurtle(s, doc)
	if err != nil {
		t.Fatalf("LoadTurtle: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 triples inserted, got %d", n)
	}
	if s.Count() != 2 {
		t.Fatalf("expected 2 triples in store, got %d", s.Count())
	}
}

func TestLoadRDFXMLInsertsTriples(t *testing.T) {
	s := store.New()
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:ex="http://example.org/">
  <rdf:Description rdf:about="http://example.org/alice">
    <ex:knows rdf:resource="http://example.org/bob"/>
  </rdf:Description>
</rdf:RDF>`

	n, err := LoadRDFXML(s, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadRDFXML: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 triple inserted, got %d", n)
	}
}

func TestLoadByContentTypeDispatchesToTurtle(t *testing.T) {
	s := store.New()
	doc := `<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> .`
	n, err := LoadByContentType(s, "text/turtle; charset=utf-8", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadByContentType: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 triple inserted, got %d", n)
	}
}

func TestLoadByContentTypeRejectsUnknownType(t *testing.T) {
	s := store.New()
	if _, err := LoadByContentType(s, "application/json", strings.NewReader("{}")); err == nil {
		t.Fatalf("expected an error for an unsupported content type")
	}
}

func TestExportCanonicalThenReparseIsIsomorphic(t *testing.T) {
	s := store.New()
	s.InsertTripleParts("http://example.org/alice", "http://example.org/knows", "http://example.org/bob")
	s.InsertTripleParts("http://example.org/bob", "http://example.org/knows", "http://example.org/carol")

	original := []*rdfterm.Triple{
		rdfterm.NewTriple(
			rdfterm.NewNamedNode("http://example.org/alice"),
			rdfterm.NewNamedNode("http://example.org/knows"),
			rdfterm.NewNamedNode("http://example.org/bob"),
		),
		rdfterm.NewTriple(
			rdfterm.NewNamedNode("http://example.org/bob"),
			rdfterm.NewNamedNode("http://example.org/knows"),
			rdfterm.NewNamedNode("http://example.org/carol"),
		),
	}

	canonical := ExportCanonical(s)
	reparsed, err := rdfterm.NewNTriplesParser(canonical).Parse()
	if err != nil {
		t.Fatalf("reparsing canonical export: %v", err)
	}
	if !RoundTripIsomorphic(original, reparsed) {
		t.Fatalf("expected round-tripped graph to be isomorphic to the original")
	}
}
