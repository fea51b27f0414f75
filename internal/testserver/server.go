// Package testserver provides an in-memory stand-in for the product
// API, used by integration tests and runnable standalone for demos.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// productSchema is the validation contract for create payloads. An
// incomplete payload (e.g. only product_id) is rejected with 400.
const productSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["product_id", "sku", "manufacturer", "category_id", "weight", "some_other_id"],
	"properties": {
		"product_id":    {"type": "integer", "minimum": 1},
		"sku":           {"type": "string", "minLength": 1},
		"manufacturer":  {"type": "string", "minLength": 1},
		"category_id":   {"type": "integer", "minimum": 1},
		"weight":        {"type": "integer", "minimum": 0},
		"some_other_id": {"type": "integer", "minimum": 1}
	}
}`

// Server is an in-memory product API.
type Server struct {
	mux    *http.ServeMux
	schema *jsonschema.Schema

	mu       sync.RWMutex
	products map[int64][]byte
}

// New creates a server with the product endpoints registered.
func New() *Server {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("product.json", strings.NewReader(productSchema)); err != nil {
		panic(fmt.Sprintf("testserver: invalid product schema: %v", err))
	}
	schema, err := compiler.Compile("product.json")
	if err != nil {
		panic(fmt.Sprintf("testserver: compile product schema: %v", err))
	}

	s := &Server{
		mux:      http.NewServeMux(),
		schema:   schema,
		products: make(map[int64][]byte),
	}
	s.mux.HandleFunc("POST /products/{id}/details", s.handleCreate)
	s.mux.HandleFunc("GET /products/{id}", s.handleGet)
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Count returns the number of stored products.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "body is not valid JSON")
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		writeError(w, http.StatusBadRequest, "payload failed validation: "+err.Error())
		return
	}

	if gjson.GetBytes(body, "product_id").Int() != id {
		writeError(w, http.StatusBadRequest, "product_id does not match path")
		return
	}

	s.mu.Lock()
	s.products[id] = body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(body)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	s.mu.RLock()
	body, ok := s.products[id]
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
