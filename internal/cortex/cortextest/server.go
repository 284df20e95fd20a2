// File path: internal/cortex/cortextest/server.go

// Package cortextest provides an in-memory fake of the Cortex DataTable
// and search APIs. It applies append and clear operators literally, so
// reconciliation tests observe the same accumulation behavior the real
// DAM exhibits when multi-valued fields are not cleared first.
package cortextest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// TestToken is the session token the fake always issues.
const TestToken = "TEST-TOKEN"

// Record is one stored entity instance: its natural key, scalar and
// multi-valued fields, and its parent reference.
type Record struct {
	Key    string
	Fields map[string][]string
	Parent string
}

// FieldJoined returns a field's values pipe-joined, the DAM's
// multi-value wire form.
func (r *Record) FieldJoined(name string) string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Fields[name], "|")
}

// Call is one observed DataTable invocation: the Entity:Action path and
// the raw field operations in submission order.
type Call struct {
	Action string
	Ops    []string
}

// Server is the fake DAM.
type Server struct {
	mu       sync.Mutex
	srv      *httptest.Server
	entities map[string]map[string]*Record
	calls    []Call
	failNext int
}

// NewServer starts the fake. Callers must Close it.
func NewServer() *Server {
	s := &Server{entities: make(map[string]map[string]*Record)}
	router := chi.NewRouter()
	router.Post("/API/Authentication/v1.0/Login", s.handleAuth)
	router.Post("/API/DataTable/v2.2/{call}", s.handleDataTable)
	router.Get("/API/search/v3.0/search", s.handleSearch)
	s.srv = httptest.NewServer(router)
	return s
}

// URL returns the fake's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the fake down.
func (s *Server) Close() { s.srv.Close() }

// FailNext makes the next n DataTable calls fail with HTTP 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Calls returns every DataTable invocation observed so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Get returns the stored record for an entity natural key, or nil.
func (s *Server) Get(entity, key string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities[entity][key]
}

// Put seeds a record, for tests that start from existing remote state.
func (s *Server) Put(entity, key string, fields map[string][]string, parent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities[entity] == nil {
		s.entities[entity] = make(map[string]*Record)
	}
	if fields == nil {
		fields = make(map[string][]string)
	}
	s.entities[entity][key] = &Record{Key: key, Fields: fields, Parent: parent}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("Login")
	code, token := "SUCCESS", TestToken
	if login == "" {
		code, token = "FAILURE", ""
	}
	writeJSON(w, map[string]any{"APIResponse": map[string]any{"Code": code, "Token": token}})
}

func (s *Server) handleDataTable(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	call := chi.URLParam(r, "call")
	parts := strings.SplitN(call, ":", 2)
	if len(parts) != 2 {
		http.Error(w, "bad call", http.StatusBadRequest)
		return
	}
	entity, action := parts[0], parts[1]

	ops := parseOps(r)
	s.calls = append(s.calls, Call{Action: call, Ops: opStrings(ops)})

	if action == "Read" {
		s.handleRead(w, entity, ops)
		return
	}

	keyField, keyValue := naturalKey(ops)
	if keyValue == "" {
		http.Error(w, "missing natural key", http.StatusBadRequest)
		return
	}
	if s.entities[entity] == nil {
		s.entities[entity] = make(map[string]*Record)
	}
	record := s.entities[entity][keyValue]
	if record == nil {
		record = &Record{Key: keyValue, Fields: map[string][]string{keyField: {keyValue}}}
		s.entities[entity][keyValue] = record
	}
	for _, op := range ops {
		applyOp(record, op)
	}
	writeJSON(w, map[string]any{"APIResponse": map[string]any{"Code": "SUCCESS"}})
}

func (s *Server) handleRead(w http.ResponseWriter, entity string, ops []fieldOp) {
	_, keyValue := naturalKey(ops)
	record := s.entities[entity][keyValue]
	if record == nil {
		writeJSON(w, map[string]any{
			"ResponseSummary": map[string]any{"TotalItemCount": 0},
			"Response":        []any{},
		})
		return
	}
	fields := make(map[string]any, len(record.Fields))
	for name, values := range record.Fields {
		fields[name] = strings.Join(values, "|")
	}
	writeJSON(w, map[string]any{
		"ResponseSummary": map[string]any{"TotalItemCount": 1},
		"Response":        []any{fields},
	})
}

// handleSearch supports the query shapes the pipeline issues:
// "CoreField.Legacy-Identifier:<id> DocSubType:<type>" and
// "DocSubType:<type> CoreField.visibility-class:<class>". Matched
// records are projected with all stored fields pipe-joined.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := r.URL.Query().Get("query")
	id := searchTerm(query, "CoreField.Legacy-Identifier:")
	subType := searchTerm(query, "DocSubType:")
	visibility := searchTerm(query, "CoreField.visibility-class:")

	var items []map[string]any
	for entity, records := range s.entities {
		if subType != "" && !strings.Contains(entity, subType) {
			continue
		}
		for key, record := range records {
			if id != "" && key != id {
				continue
			}
			if visibility != "" && record.FieldJoined("CoreField.visibility-class") != visibility {
				continue
			}
			item := make(map[string]any, len(record.Fields)+2)
			for name, values := range record.Fields {
				item[name] = strings.Join(values, "|")
			}
			item["Document.LineageParentName"] = parentKey(record.Parent)
			item["CoreField.Identifier"] = key
			items = append(items, item)
		}
	}
	writeJSON(w, map[string]any{"APIResponse": map[string]any{
		"GlobalInfo": map[string]any{"TotalCount": len(items)},
		"Items":      items,
	}})
}

type fieldOp struct {
	raw      string
	field    string
	operator string
	value    string
}

// parseOps reads field operations from the raw query string (or the
// form body), keeping operator suffixes intact. Keys are not run
// through query unescaping because the wire format carries "+" and
// "--" suffixes literally.
func parseOps(r *http.Request) []fieldOp {
	raw := r.URL.RawQuery
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err == nil {
			var ops []fieldOp
			for key, values := range r.PostForm {
				for _, value := range values {
					ops = append(ops, decodeOp(key, value, key+"="+value))
				}
			}
			return ops
		}
	}
	var ops []fieldOp
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value := pair, ""
		if idx := strings.Index(pair, "="); idx >= 0 {
			key, value = pair[:idx], pair[idx+1:]
		}
		if key == "token" || key == "format" {
			continue
		}
		unescaped, err := url.QueryUnescape(value)
		if err != nil {
			unescaped = value
		}
		ops = append(ops, decodeOp(key, unescaped, pair))
	}
	return ops
}

func decodeOp(key, value, raw string) fieldOp {
	for _, suffix := range []string{"--", "++", "+", ":"} {
		if strings.HasSuffix(key, suffix) {
			return fieldOp{
				raw:      raw,
				field:    strings.TrimSuffix(key, suffix),
				operator: suffix,
				value:    value,
			}
		}
	}
	return fieldOp{raw: raw, field: key, operator: "", value: value}
}

func opStrings(ops []fieldOp) []string {
	out := make([]string, len(ops))
	for idx, op := range ops {
		out[idx] = op.field + op.operator + "=" + op.value
	}
	return out
}

// naturalKey finds the bare-assignment op that identifies the record,
// falling back to the first scalar set when a Create keys by set op.
func naturalKey(ops []fieldOp) (string, string) {
	for _, op := range ops {
		if op.operator == "" && op.value != "" {
			return op.field, op.value
		}
	}
	for _, op := range ops {
		if op.operator == ":" && op.value != "" {
			return op.field, op.value
		}
	}
	return "", ""
}

func applyOp(record *Record, op fieldOp) {
	if record.Fields == nil {
		record.Fields = make(map[string][]string)
	}
	isParent := strings.EqualFold(op.field, "CoreField.Parent-folder")
	switch op.operator {
	case "":
		record.Fields[op.field] = []string{op.value}
	case ":":
		if isParent {
			record.Parent = op.value
			return
		}
		record.Fields[op.field] = []string{op.value}
	case "+", "++":
		if isParent {
			record.Parent = op.value
			return
		}
		// Appends accumulate blindly: the reason the pipeline must
		// clear before setting.
		record.Fields[op.field] = append(record.Fields[op.field], op.value)
	case "--":
		delete(record.Fields, op.field)
	}
}

// parentKey extracts the legacy identifier from a stored parent
// reference like "[Documents.Virtual-folder.Season:CoreField.Legacy-identifier=ID123]".
func parentKey(parent string) string {
	if parent == "" {
		return ""
	}
	trimmed := strings.Trim(parent, "[]")
	if idx := strings.LastIndex(trimmed, "="); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func searchTerm(query, prefix string) string {
	idx := strings.Index(query, prefix)
	if idx < 0 {
		return ""
	}
	rest := query[idx+len(prefix):]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		return rest[:end]
	}
	return rest
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Println("cortextest: encode response:", err)
	}
}
