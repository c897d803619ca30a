// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/aspace-tools/aspace-go/sdk/go/archivesspacetest"
	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(&pagingSuite{})

type pagingSuite struct {
	server *archivesspacetest.Server
	client *Client
	ctx    context.Context
}

func (s *pagingSuite) SetUpTest(c *check.C) {
	s.server = archivesspacetest.NewServer()
	s.client = NewClient("http", s.server.Host(), s.server.Port(), archivesspacetest.AdminUsername, archivesspacetest.AdminPassword)
	s.client.Logger = ctxlog.TestLogger(c)
	s.ctx = context.Background()
	c.Assert(s.client.Connect(s.ctx), check.IsNil)
	s.server.ResetRequests()
}

func (s *pagingSuite) TearDownTest(c *check.C) {
	s.server.Close()
}

func (s *pagingSuite) TestAllPages(c *check.C) {
	s.server.PageSize = 2
	s.server.SetList("/repositories/2/resources", []interface{}{"r1", "r2", "r3", "r4", "r5", "r6"})
	results, err := s.client.PagedRequestGet(s.ctx, "/repositories/2/resources", NewParams().Set("resolve", []string{"subjects"}))
	c.Assert(err, check.IsNil)
	titles, err := DecodeResults[string](results)
	c.Assert(err, check.IsNil)
	c.Check(titles, check.DeepEquals, []string{"r1", "r2", "r3", "r4", "r5", "r6"})

	reqs := s.server.Requests()
	c.Assert(reqs, check.HasLen, 3)
	for i, req := range reqs {
		c.Check(req.Query.Get("page"), check.Equals, strconv.Itoa(i+1))
		c.Check(req.Query["resolve[]"], check.DeepEquals, []string{"subjects"})
	}
}

func (s *pagingSuite) TestSinglePage(c *check.C) {
	s.server.SetList("/subjects", []interface{}{map[string]interface{}{"title": "a"}})
	results, err := s.client.PagedRequestGet(s.ctx, "/subjects", nil)
	c.Assert(err, check.IsNil)
	c.Assert(results, check.HasLen, 1)
	c.Check(string(results[0]), check.Equals, `{"title":"a"}`)
	c.Check(s.server.Requests(), check.HasLen, 1)
}

func (s *pagingSuite) TestEmptyList(c *check.C) {
	s.server.SetList("/subjects", []interface{}{})
	results, err := s.client.PagedRequestGet(s.ctx, "/subjects", nil)
	c.Check(err, check.IsNil)
	c.Check(results, check.HasLen, 0)
}

func (s *pagingSuite) TestCallerPageIgnored(c *check.C) {
	s.server.PageSize = 1
	s.server.SetList("/subjects", []interface{}{"a", "b"})
	params := NewParams().Set("page", 7).Set("page_size", 1)
	results, err := s.client.PagedRequestGet(s.ctx, "/subjects", params)
	c.Assert(err, check.IsNil)
	c.Check(results, check.HasLen, 2)
	reqs := s.server.Requests()
	c.Assert(reqs, check.HasLen, 2)
	c.Check(reqs[0].Query.Get("page"), check.Equals, "1")
	c.Check(reqs[1].Query.Get("page"), check.Equals, "2")
	c.Check(reqs[1].Query.Get("page_size"), check.Equals, "1")
	// The caller's params are not modified.
	v, _ := params.Get("page")
	c.Check(v, check.Equals, 7)
}

func (s *pagingSuite) TestNotPaginated(c *check.C) {
	s.server.SetRecord("/users/1", map[string]interface{}{"username": "admin"})
	results, err := s.client.PagedRequestGet(s.ctx, "/users/1", nil)
	c.Check(results, check.IsNil)
	c.Check(matchingKinds(err), check.DeepEquals, []error{ErrNotPaginated})
	c.Check(errors.Is(err, ErrInvalidIDList), check.Equals, false)
	c.Check(s.server.RequestsFor("/users/1"), check.HasLen, 1)
}

func (s *pagingSuite) TestMalformedPages(c *check.C) {
	for _, body := range []string{
		`{"results":[1,2]}`,
		`{"last_page":1}`,
		`{"results":null,"last_page":1}`,
		`{"results":{},"last_page":1}`,
		`{"results":[],"last_page":"one"}`,
		`[1,2,3]`,
		`"hello"`,
	} {
		c.Logf("body %s", body)
		s.server.ResetRequests()
		s.server.SetRaw("/thing", body)
		_, err := s.client.PagedRequestGet(s.ctx, "/thing", nil)
		c.Check(errors.Is(err, ErrNotPaginated), check.Equals, true)
		c.Check(s.server.Requests(), check.HasLen, 1)
	}
}

func (s *pagingSuite) TestInformationalFields(c *check.C) {
	pr, err := parsePage(json.RawMessage(`{"first_page":1,"this_page":1,"total":2,"last_page":1,"results":[1,2]}`))
	c.Assert(err, check.IsNil)
	c.Check(pr.FirstPage, check.Equals, 1)
	c.Check(pr.ThisPage, check.Equals, 1)
	c.Check(pr.Total, check.Equals, 2)

	pr, err = parsePage(json.RawMessage(`{"first_page":"one","this_page":null,"total":2.5,"last_page":1,"results":[1,2]}`))
	c.Assert(err, check.IsNil)
	c.Check(pr.FirstPage, check.Equals, 0)
	c.Check(pr.ThisPage, check.Equals, 0)
	c.Check(pr.Total, check.Equals, 0)
	c.Check(pr.Results, check.HasLen, 2)

	s.server.SetRaw("/thing", `{"total":"lots","last_page":1,"results":["a"]}`)
	results, err := s.client.PagedRequestGet(s.ctx, "/thing", nil)
	c.Check(err, check.IsNil)
	c.Check(results, check.HasLen, 1)
}

func (s *pagingSuite) TestHTTPErrorOnFirstPage(c *check.C) {
	results, err := s.client.PagedRequestGet(s.ctx, "/nonexistent", nil)
	c.Check(results, check.IsNil)
	c.Check(matchingKinds(err), check.DeepEquals, []error{ErrNotFound})
}

// pageHandler serves a paginated listing with a last_page that can
// differ from page to page, and fails on failPage.
type pageHandler struct {
	lastPage map[int]int
	failPage int
	mtx      sync.Mutex
	pages    []int
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/users/admin/login" {
		fmt.Fprint(w, `{"session":"abc"}`)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	h.mtx.Lock()
	h.pages = append(h.pages, page)
	h.mtx.Unlock()
	if page == h.failPage {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"first_page": 1,
		"this_page":  page,
		"last_page":  h.lastPage[page],
		"results":    []int{page * 10, page*10 + 1},
	})
}

func (h *pageHandler) requested() []int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return append([]int(nil), h.pages...)
}

func (s *pagingSuite) clientFor(c *check.C, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	s.server.Close()
	s.server.Server = srv
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	client := NewClient("http", u.Hostname(), port, "admin", "admin")
	client.Logger = ctxlog.TestLogger(c)
	c.Assert(client.Connect(s.ctx), check.IsNil)
	return client
}

func (s *pagingSuite) TestErrorOnLaterPage(c *check.C) {
	h := &pageHandler{lastPage: map[int]int{1: 3, 2: 3, 3: 3}, failPage: 2}
	client := s.clientFor(c, h)
	results, err := client.PagedRequestGet(s.ctx, "/things", nil)
	c.Check(results, check.IsNil)
	c.Check(matchingKinds(err), check.DeepEquals, []error{ErrServerError})
	c.Check(h.requested(), check.DeepEquals, []int{1, 2})
}

func (s *pagingSuite) TestFirstLastPageWins(c *check.C) {
	h := &pageHandler{lastPage: map[int]int{1: 2, 2: 5}}
	client := s.clientFor(c, h)
	results, err := client.PagedRequestGet(s.ctx, "/things", nil)
	c.Assert(err, check.IsNil)
	ids, err := DecodeResults[int](results)
	c.Check(err, check.IsNil)
	c.Check(ids, check.DeepEquals, []int{10, 11, 20, 21})
	c.Check(h.requested(), check.DeepEquals, []int{1, 2})
}

func (s *pagingSuite) TestAllIds(c *check.C) {
	s.server.SetIDs("/repositories/2/resources", []interface{}{1, 2, 3})
	ids, err := s.client.AllIdsRequestGet(s.ctx, "/repositories/2/resources")
	c.Assert(err, check.IsNil)
	c.Check(ids, check.DeepEquals, []int64{1, 2, 3})
	reqs := s.server.Requests()
	c.Assert(reqs, check.HasLen, 1)
	c.Check(reqs[0].Query, check.DeepEquals, url.Values{"all_ids": {"true"}})
}

func (s *pagingSuite) TestAllIdsEmpty(c *check.C) {
	s.server.SetIDs("/subjects", []interface{}{})
	ids, err := s.client.AllIdsRequestGet(s.ctx, "/subjects")
	c.Check(err, check.IsNil)
	c.Check(ids, check.HasLen, 0)
}

func (s *pagingSuite) TestAllIdsLarge(c *check.C) {
	s.server.SetRaw("/subjects", `[9007199254740993]`)
	ids, err := s.client.AllIdsRequestGet(s.ctx, "/subjects")
	c.Check(err, check.IsNil)
	c.Check(ids, check.DeepEquals, []int64{9007199254740993})
}

func (s *pagingSuite) TestAllIdsInvalid(c *check.C) {
	for _, body := range []string{
		`[1,"x",3]`,
		`[1,2.5]`,
		`[1,null]`,
		`{"results":[1,2,3],"last_page":1}`,
		`42`,
	} {
		c.Logf("body %s", body)
		s.server.SetRaw("/subjects", body)
		ids, err := s.client.AllIdsRequestGet(s.ctx, "/subjects")
		c.Check(ids, check.IsNil)
		c.Check(errors.Is(err, ErrInvalidIDList), check.Equals, true)
		c.Check(matchingKinds(err), check.DeepEquals, []error{ErrNotPaginated})
	}
}

func (s *pagingSuite) TestAllIdsHTTPError(c *check.C) {
	s.server.FailWith("/subjects", http.StatusForbidden)
	_, err := s.client.AllIdsRequestGet(s.ctx, "/subjects")
	c.Check(matchingKinds(err), check.DeepEquals, []error{ErrForbidden})
}

func (s *pagingSuite) TestDecodeResultsError(c *check.C) {
	_, err := DecodeResults[int]([]json.RawMessage{json.RawMessage(`1`), json.RawMessage(`"x"`)})
	c.Check(err, check.ErrorMatches, `result 1: .*`)
}
