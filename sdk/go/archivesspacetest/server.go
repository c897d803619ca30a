// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package archivesspacetest provides an in-process fake ArchivesSpace
// backend for tests.
package archivesspacetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin"

	sessionHeader = "X-ArchivesSpace-Session"
)

// Request is a copy of a request received by a Server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a fake ArchivesSpace backend. It accepts logins for one
// user, serves records, paginated listings, and all_ids listings
// that the test has installed, and records every request.
type Server struct {
	*httptest.Server

	Username string
	Password string

	// Number of results per page in paginated listings. Default 10.
	PageSize int

	mtx      sync.Mutex
	sessions map[string]bool
	nextTok  int
	nextID   int
	requests []Request
	records  map[string]interface{}
	lists    map[string][]interface{}
	ids      map[string]interface{}
	failures map[string]int
	raw      map[string]string
}

// NewServer starts a fake backend with the default admin
// credentials. Call Close when done.
func NewServer() *Server {
	s := &Server{
		Username: AdminUsername,
		Password: AdminPassword,
		PageSize: 10,
		sessions: map[string]bool{},
		records:  map[string]interface{}{},
		lists:    map[string][]interface{}{},
		ids:      map[string]interface{}{},
		failures: map[string]int{},
		raw:      map[string]string{},
	}
	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.POST("/users/:username/login", s.login)
	router.GET("/users/current-user", s.currentUser)
	router.NotFound = http.HandlerFunc(s.serveRecord)
	s.Server = httptest.NewServer(s.recordRequests(router))
	return s
}

// Host returns the server's host name.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Listener.Addr().String())
	return host
}

// Port returns the server's port number.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// SetRecord installs a record to be returned by GET path.
func (s *Server) SetRecord(path string, record interface{}) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.records[path] = record
}

// Record returns the record stored at path, e.g., after a POST.
func (s *Server) Record(path string) (interface{}, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	rec, ok := s.records[path]
	return rec, ok
}

// SetList installs a paginated listing at path. GET path requires a
// page parameter, as the real backend does.
func (s *Server) SetList(path string, results []interface{}) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.lists[path] = results
}

// SetIDs installs the response to GET path?all_ids=true. It does not
// have to be a list of integers.
func (s *Server) SetIDs(path string, ids interface{}) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.ids[path] = ids
}

// SetRaw makes GET path return the given body verbatim with status
// 200.
func (s *Server) SetRaw(path, body string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.raw[path] = body
}

// FailWith makes every request for path (including logins, e.g.,
// "/users/admin/login") fail with the given status.
func (s *Server) FailWith(path string, status int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.failures[path] = status
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the requests received so far for path.
func (s *Server) RequestsFor(path string) []Request {
	var reqs []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// ResetRequests forgets the requests received so far.
func (s *Server) ResetRequests() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.requests = nil
}

// ExpireSessions invalidates all session tokens issued so far.
func (s *Server) ExpireSessions() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sessions = map[string]bool{}
}

func (s *Server) recordRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		req.Body.Close()
		s.mtx.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.Query(),
			Header: req.Header.Clone(),
			Body:   body,
		})
		status, fail := s.failures[req.URL.Path]
		s.mtx.Unlock()
		if fail {
			writeJSON(w, status, map[string]interface{}{"error": http.StatusText(status)})
			return
		}
		req.Body = io.NopCloser(strings.NewReader(string(body)))
		h.ServeHTTP(w, req)
	})
}

func (s *Server) login(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	if err := req.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if ps.ByName("username") != s.Username || req.PostForm.Get("password") != s.Password {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": "Login failed"})
		return
	}
	s.mtx.Lock()
	s.nextTok++
	token := fmt.Sprintf("session-%04d", s.nextTok)
	s.sessions[token] = true
	s.mtx.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": token,
		"user":    s.user(),
	})
}

func (s *Server) user() map[string]interface{} {
	return map[string]interface{}{
		"lock_version":   0,
		"username":       s.Username,
		"name":           "Administrator",
		"is_system_user": true,
		"is_admin":       true,
		"uri":            "/users/1",
		"jsonmodel_type": "user",
		"permissions": map[string]interface{}{
			"_archivesspace": []string{"administer_system", "manage_repository"},
		},
	}
}

func (s *Server) authorized(w http.ResponseWriter, req *http.Request) bool {
	s.mtx.Lock()
	ok := s.sessions[req.Header.Get(sessionHeader)]
	s.mtx.Unlock()
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": "Access denied", "code": "SESSION_GONE"})
	}
	return ok
}

func (s *Server) currentUser(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	if !s.authorized(w, req) {
		return
	}
	writeJSON(w, http.StatusOK, s.user())
}

func (s *Server) serveRecord(w http.ResponseWriter, req *http.Request) {
	if !s.authorized(w, req) {
		return
	}
	switch req.Method {
	case http.MethodGet:
		s.get(w, req)
	case http.MethodPost:
		s.post(w, req)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"error": "method not allowed"})
	}
}

func (s *Server) get(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	q := req.URL.Query()
	s.mtx.Lock()
	raw, isRaw := s.raw[path]
	ids, hasIDs := s.ids[path]
	list, isList := s.lists[path]
	rec, isRec := s.records[path]
	pageSize := s.PageSize
	s.mtx.Unlock()

	switch {
	case isRaw:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, raw)
	case hasIDs && q.Get("all_ids") == "true":
		writeJSON(w, http.StatusOK, ids)
	case isList:
		if q.Get("page") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": map[string]interface{}{"page": []string{"Parameter required but no value provided"}},
			})
			return
		}
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil || page < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": map[string]interface{}{"page": []string{"Wanted type Integer but got '" + q.Get("page") + "'"}},
			})
			return
		}
		writeJSON(w, http.StatusOK, paginate(list, page, pageSize))
	case isRec:
		writeJSON(w, http.StatusOK, rec)
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "Record not found"})
	}
}

func paginate(list []interface{}, page, pageSize int) map[string]interface{} {
	if pageSize < 1 {
		pageSize = 10
	}
	lastPage := (len(list) + pageSize - 1) / pageSize
	if lastPage < 1 {
		lastPage = 1
	}
	start := (page - 1) * pageSize
	if start > len(list) {
		start = len(list)
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return map[string]interface{}{
		"first_page": 1,
		"last_page":  lastPage,
		"this_page":  page,
		"total":      len(list),
		"results":    list[start:end],
	}
}

// post creates a record (when path is a collection such as
// "/subjects") or updates one (when a record exists at path).
func (s *Server) post(w http.ResponseWriter, req *http.Request) {
	var rec map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Had some trouble parsing your request: " + err.Error()})
		return
	}
	if rec == nil {
		rec = map[string]interface{}{}
	}
	if missing := missingFields(rec); len(missing) > 0 {
		errs := map[string]interface{}{}
		for _, f := range missing {
			errs[f] = []string{"Property is required but was missing"}
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": errs})
		return
	}
	path := req.URL.Path
	s.mtx.Lock()
	defer s.mtx.Unlock()
	status := "Updated"
	id := 0
	lockVersion := 0
	if old, ok := s.records[path].(map[string]interface{}); ok {
		if lv, ok := old["lock_version"].(float64); ok {
			lockVersion = int(lv) + 1
		}
		if n, ok := old["id"].(float64); ok {
			id = int(n)
		} else {
			id, _ = strconv.Atoi(path[strings.LastIndexByte(path, '/')+1:])
		}
	} else {
		status = "Created"
		s.nextID++
		id = s.nextID
		path = strings.TrimSuffix(path, "/") + "/" + strconv.Itoa(id)
	}
	rec["uri"] = path
	rec["id"] = float64(id)
	rec["lock_version"] = float64(lockVersion)
	s.records[path] = rec
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"id":           id,
		"lock_version": lockVersion,
		"stale":        true,
		"uri":          path,
		"warnings":     []string{},
	})
}

// missingFields reports required fields that are absent. Only
// jsonmodel_type is required here.
func missingFields(rec map[string]interface{}) []string {
	var missing []string
	for _, f := range []string{"jsonmodel_type"} {
		if _, ok := rec[f]; !ok {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return missing
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
