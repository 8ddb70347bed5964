package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

func seededStore() *store.TripleStore {
	s := store.New()
	s.InsertTripleParts("alice", "http://example.org/knows", "bob")
	s.InsertTripleParts("alice", "http://example.org/age", "30")
	s.InsertTripleParts("bob", "http://example.org/age", "25")
	return s
}

func postQuery(t *testing.T, handler http.HandlerFunc, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(query))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleQuerySelectReturnsRows(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	rec := postQuery(t, srv.handleQuery, `SELECT ?x ?y WHERE { ?x <http://example.org/knows> ?y . }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Rows []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(payload.Rows) != 1 || payload.Rows[0]["x"] != "alice" || payload.Rows[0]["y"] != "bob" {
		t.Fatalf("unexpected rows: %+v", payload.Rows)
	}
}

func TestHandleQueryFilterNarrowsRows(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	rec := postQuery(t, srv.handleQuery, `SELECT ?x WHERE { ?x <http://example.org/age> ?a . FILTER(?a > 26) }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Rows []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(payload.Rows) != 1 || payload.Rows[0]["x"] != "alice" {
		t.Fatalf("unexpected rows: %+v", payload.Rows)
	}
}

func TestHandleQueryAskReturnsBoolean(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	rec := postQuery(t, srv.handleQuery, `ASK WHERE { ?x <http://example.org/knows> <http://example.org/bob> }`)
	var payload struct {
		Boolean bool `json:"boolean"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload.Boolean {
		t.Fatalf("expected false, since 'bob' is never an IRI constant in this store")
	}
}

func TestHandleQueryInsertWhereInsertsDerivedTriples(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	rec := postQuery(t, srv.handleQuery,
		`INSERT { ?x <http://example.org/adult> "true" } WHERE { ?x <http://example.org/age> ?a . FILTER(?a >= 18) }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Inserted int `json:"inserted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload.Inserted != 2 {
		t.Fatalf("expected 2 insertions, got %d", payload.Inserted)
	}
	subj, ok1 := s.Dictionary().Lookup("alice")
	pred, ok2 := s.Dictionary().Lookup("http://example.org/adult")
	obj, ok3 := s.Dictionary().Lookup("true")
	if !ok1 || !ok2 || !ok3 || !s.Contains(subj, pred, obj) {
		t.Fatalf("expected alice adult=true to have been inserted")
	}
}

func TestHandleQueryRejectsGet(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	srv.handleQuery(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleQueryRejectsBadSyntax(t *testing.T) {
	s := seededStore()
	srv := NewServer(s, ":0")

	rec := postQuery(t, srv.handleQuery, `SELECT ?x WHERE`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLoadInsertsTriples(t *testing.T) {
	s := store.New()
	srv := NewServer(s, ":0")

	body := `<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> .`
	req := httptest.NewRequest(http.MethodPost, "/load", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleLoad(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 triple in the store, got %d", s.Count())
	}
}
