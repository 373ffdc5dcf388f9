// Package crmtest runs an in-memory CRM behind an httptest server. It
// implements the object, search, association, file and workflow endpoints
// used by pkg/crm and records every request so tests can assert on the
// writes a call made.
package crmtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/clientportal/pkg/crm"
)

// Token is the bearer credential the fake CRM accepts.
const Token = "crmtest-token"

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// IsWrite reports whether the request mutates CRM state.
func (r Request) IsWrite() bool {
	switch r.Method {
	case http.MethodGet:
		return false
	case http.MethodPost:
		return !strings.HasSuffix(r.Path, "/search") && !strings.HasSuffix(r.Path, "/batch/read")
	}
	return true
}

type edge struct {
	toID  string
	types []crm.AssociationType
}

type failure struct {
	status int
	times  int // 0 means always
}

// Server is the fake CRM.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	objects  map[string]map[string]crm.Object
	order    map[string][]string
	edges    map[string][]edge
	labels   map[int]string
	fail     map[string]*failure
	requests []Request
	nextID   int
}

// New starts a fake CRM that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		objects: map[string]map[string]crm.Object{},
		order:   map[string][]string{},
		edges:   map[string][]edge{},
		labels:  map[int]string{},
		fail:    map[string]*failure{},
		nextID:  1000,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Client returns a CRM client pointed at the fake.
func (s *Server) Client(t testing.TB) *crm.Client {
	t.Helper()
	c, err := crm.NewClient(crm.Config{BaseURL: s.URL, AccessToken: Token, Timeout: 5 * time.Second}, s.Server.Client())
	if err != nil {
		t.Fatalf("crm client: %v", err)
	}
	return c
}

// AddObject stores a record.
func (s *Server) AddObject(objectType, id string, props crm.Properties) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(objectType, id, props)
}

func (s *Server) putLocked(objectType, id string, props crm.Properties) {
	if s.objects[objectType] == nil {
		s.objects[objectType] = map[string]crm.Object{}
	}
	if _, ok := s.objects[objectType][id]; !ok {
		s.order[objectType] = append(s.order[objectType], id)
	}
	if props == nil {
		props = crm.Properties{}
	}
	s.objects[objectType][id] = crm.Object{ID: id, Properties: props}
}

// Object returns a stored record.
func (s *Server) Object(objectType, id string) (crm.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[objectType][id]
	return o, ok
}

// Objects returns the records of one type in creation order.
func (s *Server) Objects(objectType string) []crm.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]crm.Object, 0, len(s.order[objectType]))
	for _, id := range s.order[objectType] {
		out = append(out, s.objects[objectType][id])
	}
	return out
}

// DefineLabel names a user defined association type id.
func (s *Server) DefineLabel(typeID int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[typeID] = name
}

// Structural returns the unlabeled association type used by Link.
func Structural() crm.AssociationType {
	return crm.AssociationType{Category: crm.CategoryUserDefined, TypeID: 1}
}

// Link creates an edge in both directions with a structural type plus the
// given labels, which must have been defined with DefineLabel.
func (s *Server) Link(fromType, fromID, toType, toID string, labels ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := []crm.AssociationType{Structural()}
	for _, l := range labels {
		types = append(types, s.labelTypeLocked(l))
	}
	s.addTypesLocked(fromType, fromID, toType, toID, types)
	s.addTypesLocked(toType, toID, fromType, fromID, types)
}

func (s *Server) labelTypeLocked(label string) crm.AssociationType {
	for id, name := range s.labels {
		if name == label {
			return crm.AssociationType{Category: crm.CategoryUserDefined, TypeID: id, Label: name}
		}
	}
	panic(fmt.Sprintf("crmtest: label %q not defined", label))
}

// Labels returns the labels on the edge, or nil when there is no edge.
func (s *Server) Labels(fromType, fromID, toType, toID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges[edgeKey(fromType, fromID, toType)] {
		if e.toID == toID {
			out := []string{}
			for _, t := range e.types {
				if t.Label != "" {
					out = append(out, t.Label)
				}
			}
			sort.Strings(out)
			return out
		}
	}
	return nil
}

// FailOn makes requests matching method and path answer status. times
// limits how many requests fail; 0 fails all of them.
func (s *Server) FailOn(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method+" "+path] = &failure{status: status, times: times}
}

// Requests returns the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Writes returns the recorded mutating calls.
func (s *Server) Writes() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.IsWrite() {
			out = append(out, r)
		}
	}
	return out
}

// Reset forgets the recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func edgeKey(fromType, fromID, toType string) string {
	return fromType + "/" + fromID + "/" + toType
}

func (s *Server) addTypesLocked(fromType, fromID, toType, toID string, types []crm.AssociationType) {
	key := edgeKey(fromType, fromID, toType)
	list := s.edges[key]
	for i := range list {
		if list[i].toID != toID {
			continue
		}
		for _, t := range types {
			if !hasType(list[i].types, t) {
				list[i].types = append(list[i].types, t)
			}
		}
		return
	}
	s.edges[key] = append(list, edge{toID: toID, types: append([]crm.AssociationType(nil), types...)})
}

func (s *Server) removeEdgeLocked(fromType, fromID, toType, toID string) bool {
	key := edgeKey(fromType, fromID, toType)
	list := s.edges[key]
	for i := range list {
		if list[i].toID == toID {
			s.edges[key] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Server) removeTypesLocked(fromType, fromID, toType, toID string, specs []crm.AssociationSpec) {
	list := s.edges[edgeKey(fromType, fromID, toType)]
	for i := range list {
		if list[i].toID != toID {
			continue
		}
		kept := list[i].types[:0:0]
		for _, t := range list[i].types {
			drop := false
			for _, sp := range specs {
				if sp.TypeID == t.TypeID && sp.Category == t.Category {
					drop = true
				}
			}
			if !drop {
				kept = append(kept, t)
			}
		}
		list[i].types = kept
	}
}

func hasType(list []crm.AssociationType, t crm.AssociationType) bool {
	for _, x := range list {
		if x.TypeID == t.TypeID && x.Category == t.Category {
			return true
		}
	}
	return false
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/crm/v3/objects/{type}/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/crm/v3/objects/{type}/batch/read", s.handleBatchRead).Methods(http.MethodPost)
	r.HandleFunc("/crm/v3/objects/{type}", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/crm/v3/objects/{type}/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/crm/v3/objects/{type}/{id}", s.handleUpdate).Methods(http.MethodPatch)

	r.HandleFunc("/crm/v4/objects/{from}/{id}/associations/{to}", s.handleAssociations).Methods(http.MethodGet)
	r.HandleFunc("/crm/v4/objects/{from}/{id}/associations/{to}/{toID}", s.handleAssociate).Methods(http.MethodPut)
	r.HandleFunc("/crm/v4/objects/{from}/{id}/associations/{to}/{toID}", s.handleRemove).Methods(http.MethodDelete)
	r.HandleFunc("/crm/v4/associations/{from}/{to}/batch/labels/archive", s.handleArchive).Methods(http.MethodPost)

	r.HandleFunc("/files/v3/files", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/automation/v3/workflows/{id}/enrollments", s.handleEnroll).Methods(http.MethodPost)
	return r
}

// record logs the request, checks the credential and applies FailOn rules.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		f := s.fail[r.Method+" "+r.URL.Path]
		status := 0
		if f != nil {
			status = f.status
			if f.times > 0 {
				f.times--
				if f.times == 0 {
					delete(s.fail, r.Method+" "+r.URL.Path)
				}
			}
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "authentication credentials not found")
			return
		}
		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg, "category": "TEST"})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	o, ok := s.Object(v["type"], v["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleBatchRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Inputs []struct {
			ID string `json:"id"`
		} `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := struct {
		Results []crm.Object `json:"results"`
	}{Results: []crm.Object{}}
	for _, in := range req.Inputs {
		if o, ok := s.Object(mux.Vars(r)["type"], in.ID); ok {
			out.Results = append(out.Results, o)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req crm.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var hits []crm.Object
	for _, o := range s.Objects(mux.Vars(r)["type"]) {
		if matches(o, req.FilterGroups) {
			hits = append(hits, o)
		}
	}

	start, _ := strconv.Atoi(req.After)
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	end := min(start+limit, len(hits))
	if start > end {
		start = end
	}
	res := crm.SearchResult{Total: len(hits), Results: append([]crm.Object{}, hits[start:end]...)}
	if end < len(hits) {
		res.Paging = &crm.Paging{Next: &struct {
			After string `json:"after"`
		}{After: strconv.Itoa(end)}}
	}
	writeJSON(w, http.StatusOK, res)
}

func matches(o crm.Object, groups []crm.FilterGroup) bool {
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		ok := true
		for _, f := range g.Filters {
			if !matchFilter(o.Properties[f.PropertyName], f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func matchFilter(v string, f crm.Filter) bool {
	switch f.Operator {
	case "EQ":
		return strings.EqualFold(v, f.Value)
	case "NEQ":
		return !strings.EqualFold(v, f.Value)
	case "IN":
		for _, want := range f.Values {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	case "CONTAINS_TOKEN":
		return strings.Contains(strings.ToLower(v), strings.ToLower(f.Value))
	case "HAS_PROPERTY":
		return v != ""
	}
	return false
}

func (s *Server) decodeProps(w http.ResponseWriter, r *http.Request) (crm.Properties, bool) {
	var body struct {
		Properties crm.Properties `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return body.Properties, true
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	props, ok := s.decodeProps(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.putLocked(mux.Vars(r)["type"], id, props)
	o := s.objects[mux.Vars(r)["type"]][id]
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	props, ok := s.decodeProps(w, r)
	if !ok {
		return
	}
	v := mux.Vars(r)
	s.mu.Lock()
	o, found := s.objects[v["type"]][v["id"]]
	if found {
		merged := crm.Properties{}
		for k, val := range o.Properties {
			merged[k] = val
		}
		for k, val := range props {
			merged[k] = val
		}
		o.Properties = merged
		s.objects[v["type"]][v["id"]] = o
	}
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleAssociations(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	s.mu.Lock()
	list := s.edges[edgeKey(v["from"], v["id"], v["to"])]
	results := make([]map[string]any, 0, len(list))
	for _, e := range list {
		id, err := strconv.Atoi(e.toID)
		var toID any = e.toID
		if err == nil {
			toID = id
		}
		results = append(results, map[string]any{"toObjectId": toID, "associationTypes": e.types})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleAssociate(w http.ResponseWriter, r *http.Request) {
	var specs []crm.AssociationSpec
	if err := json.NewDecoder(r.Body).Decode(&specs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := mux.Vars(r)
	s.mu.Lock()
	types := make([]crm.AssociationType, 0, len(specs))
	for _, sp := range specs {
		t := crm.AssociationType{Category: sp.Category, TypeID: sp.TypeID}
		if sp.Category == crm.CategoryUserDefined {
			t.Label = s.labels[sp.TypeID]
		}
		types = append(types, t)
	}
	s.addTypesLocked(v["from"], v["id"], v["to"], v["toID"], types)
	s.addTypesLocked(v["to"], v["toID"], v["from"], v["id"], types)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"fromObjectId": v["id"], "toObjectId": v["toID"]})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	s.mu.Lock()
	s.removeEdgeLocked(v["from"], v["id"], v["to"], v["toID"])
	s.removeEdgeLocked(v["to"], v["toID"], v["from"], v["id"])
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Inputs []struct {
			From  struct{ ID string }   `json:"from"`
			To    struct{ ID string }   `json:"to"`
			Types []crm.AssociationSpec `json:"types"`
		} `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := mux.Vars(r)
	s.mu.Lock()
	for _, in := range body.Inputs {
		s.removeTypesLocked(v["from"], in.From.ID, v["to"], in.To.ID, in.Types)
		s.removeTypesLocked(v["to"], in.To.ID, v["from"], in.From.ID, in.Types)
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()
	n, _ := io.Copy(io.Discard, f)

	s.mu.Lock()
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, crm.File{
		ID:   id,
		Name: hdr.Filename,
		URL:  s.URL + "/files/" + id + "/" + hdr.Filename,
		Size: n,
	})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
