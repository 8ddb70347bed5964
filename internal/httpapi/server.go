// Package httpapi exposes the triple store and query engine over HTTP: a
// POST /query endpoint accepting a SPARQL-subset query string and returning
// JSON rows, matching the HTTP server collaborator contract, plus a POST
// /load endpoint for bulk RDF ingestion.
// Persistence, auth, and a query UI are all out of scope here — this is a
// thin collaborator around the core engine, not a product surface.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/exec"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/optimizer"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/rdfio"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/sparqlsyntax"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/store"
)

// Server is the HTTP front end for one triple store.
type Server struct {
	store *store.TripleStore
	addr  string
}

// NewServer creates a Server serving store at addr.
func NewServer(s *store.TripleStore, addr string) *Server {
	return &Server{store: s, addr: addr}
}

// Start blocks serving HTTP on s.addr.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/load", s.handleLoad)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("serving queries at http://%s/query", s.addr)
	return server.ListenAndServe()
}

// handleQuery parses, plans, and executes a SELECT/ASK/INSERT query,
// responding with JSON rows (SELECT), a boolean (ASK), or an insertion
// count (INSERT).
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	q, err := sparqlsyntax.NewParser(string(body)).Parse()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse error: %v", err))
		return
	}

	if q.Insert {
		s.handleInsert(w, q)
		return
	}

	plan, err := sparqlsyntax.BuildPlan(q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("planning error: %v", err))
		return
	}

	physicalPlan := optimizer.New(s.store).Optimize(plan)
	engine := exec.New(s.store)
	it, err := engine.Execute(physicalPlan)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("execution error: %v", err))
		return
	}
	it = applyModifiers(it, q, s.store)

	if q.Ask {
		hasRow := it.Next()
		_ = it.Close()
		s.writeJSON(w, map[string]bool{"boolean": hasRow})
		return
	}

	rows, err := exec.Decode(it, s.store.Dictionary())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("decode error: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{"rows": rows})
}

func applyModifiers(it exec.Iterator, q *sparqlsyntax.Query, s *store.TripleStore) exec.Iterator {
	if len(q.OrderBy) > 0 {
		keys := make([]exec.OrderKey, len(q.OrderBy))
		for i, o := range q.OrderBy {
			keys[i] = exec.OrderKey{Variable: o.Variable, Desc: o.Descending}
		}
		ordered, err := exec.OrderBy(it, keys, s.Dictionary())
		if err == nil {
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

func (s *Server) handleInsert(w http.ResponseWriter, q *sparqlsyntax.Query) {
	plan, err := sparqlsyntax.BuildPlan(q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("planning error: %v", err))
		return
	}
	physicalPlan := optimizer.New(s.store).Optimize(plan)
	it, err := exec.New(s.store).Execute(physicalPlan)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("execution error: %v", err))
		return
	}
	rows, err := exec.Decode(it, s.store.Dictionary())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("decode error: %v", err))
		return
	}

	inserted := 0
	for _, row := range rows {
		triples, err := sparqlsyntax.Instantiate(q.InsertTemplate, row)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("template error: %v", err))
			return
		}
		for _, t := range triples {
			if s.store.InsertTripleParts(t[0], t[1], t[2]) {
				inserted++
			}
		}
	}
	s.writeJSON(w, map[string]any{"inserted": inserted})
}

// handleLoad bulk-loads an RDF document into the store, dispatching on
// the request's Content-Type header (N-Triples, Turtle, RDF/XML); a
// missing Content-Type falls back to N-Triples.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/n-triples"
	}
	inserted, err := rdfio.LoadByContentType(s.store, contentType, r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("load error: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{"inserted": inserted})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: writing response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	log.Printf("httpapi: %s", message)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
