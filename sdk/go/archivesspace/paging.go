// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// PageParam is the (1-based) page selector understood by paginated
// ArchivesSpace endpoints.
const PageParam = "page"

// PagedRequestGet fetches every page of a paginated listing and
// returns the concatenated results in page order.
//
// Each request carries params with "page" set to the page being
// fetched, replacing any "page" in params. The page count is taken
// from the first response's last_page. If the first response lacks
// results or last_page, ErrNotPaginated is returned without fetching
// more pages. An error fetching any page is returned immediately and
// no results are returned.
func (c *Client) PagedRequestGet(ctx context.Context, path string, params *Params) ([]json.RawMessage, error) {
	first, err := c.getPage(ctx, path, params, 1)
	if err != nil {
		return nil, err
	}
	results := first.Results
	for page := 2; page <= first.LastPage; page++ {
		next, err := c.getPage(ctx, path, params, page)
		if err != nil {
			return nil, err
		}
		results = append(results, next.Results...)
	}
	return results, nil
}

// pageResponse is one page of a paginated listing.
type pageResponse struct {
	FirstPage int
	LastPage  int
	ThisPage  int
	Total     int
	Results   []json.RawMessage
}

func (c *Client) getPage(ctx context.Context, path string, params *Params, page int) (*pageResponse, error) {
	var raw json.RawMessage
	err := c.RequestGet(ctx, &raw, path, MergeParams(params, NewParams().Set(PageParam, page)))
	if err != nil {
		return nil, err
	}
	pr, err := parsePage(raw)
	if err != nil {
		return nil, fmt.Errorf("GET %s page %d: %w", path, page, err)
	}
	return pr, nil
}

func parsePage(raw json.RawMessage) (*pageResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: response is not an object", ErrNotPaginated)
	}
	var pr pageResponse
	rawResults, ok := fields["results"]
	if !ok || bytes.Equal(rawResults, []byte("null")) {
		return nil, fmt.Errorf("%w: no results in response", ErrNotPaginated)
	}
	if err := json.Unmarshal(rawResults, &pr.Results); err != nil {
		return nil, fmt.Errorf("%w: results is not a list", ErrNotPaginated)
	}
	rawLastPage, ok := fields["last_page"]
	if !ok {
		return nil, fmt.Errorf("%w: no last_page in response", ErrNotPaginated)
	}
	if err := json.Unmarshal(rawLastPage, &pr.LastPage); err != nil {
		return nil, fmt.Errorf("%w: last_page is not an integer", ErrNotPaginated)
	}
	// Informational only: a malformed value is left as zero.
	for key, dst := range map[string]*int{"first_page": &pr.FirstPage, "this_page": &pr.ThisPage, "total": &pr.Total} {
		if v, ok := fields[key]; ok {
			_ = json.Unmarshal(v, dst)
		}
	}
	return &pr, nil
}

// AllIdsRequestGet requests path with all_ids=true and returns the
// list of integer ids in the response. If the response is not a list
// of integers, the error matches ErrInvalidIDList (and
// ErrNotPaginated).
func (c *Client) AllIdsRequestGet(ctx context.Context, path string) ([]int64, error) {
	var raw json.RawMessage
	err := c.RequestGet(ctx, &raw, path, ParamsFromMap(map[string]interface{}{"all_ids": true}))
	if err != nil {
		return nil, err
	}
	var items []interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, ErrInvalidIDList)
	}
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		n, ok := item.(json.Number)
		if !ok {
			return nil, fmt.Errorf("GET %s: item %d is %T: %w", path, i, item, ErrInvalidIDList)
		}
		id, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("GET %s: item %d is %s: %w", path, i, n, ErrInvalidIDList)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DecodeResults decodes each result returned by PagedRequestGet into
// a T.
func DecodeResults[T any](results []json.RawMessage) ([]T, error) {
	out := make([]T, len(results))
	for i, r := range results {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
	}
	return out, nil
}
