// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Error kinds. Every error returned by a Client matches (via
// errors.Is) at most one of the status kinds below, plus
// ErrAuthenticationFailed when the failure happened during Connect.
var (
	ErrNotConnected         = errors.New("no ArchivesSpace session: call Connect first")
	ErrConnectionFailed     = errors.New("unable to connect to ArchivesSpace")
	ErrAuthenticationFailed = errors.New("ArchivesSpace authentication failed")
	ErrBadRequestType       = errors.New("unsupported request method")

	ErrBadRequest       = errors.New("bad request")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrServerError      = errors.New("internal server error")
	ErrUnexpectedStatus = errors.New("unexpected response status")

	ErrNotPaginated = errors.New("response is not paginated")
	// ErrInvalidIDList is returned when an all_ids listing
	// contains something other than integers. It also matches
	// ErrNotPaginated.
	ErrInvalidIDList = fmt.Errorf("%w: expected a list of integer ids", ErrNotPaginated)
)

// TransactionError is returned when the server responds with a
// status other than 200. It unwraps to the error kind for its
// status code.
type TransactionError struct {
	Method     string
	URL        url.URL
	StatusCode int
	Status     string
	// Raw response body.
	Body []byte

	errors []string
}

func (e *TransactionError) Error() (s string) {
	s = fmt.Sprintf("request failed: %s %s", e.Method, e.URL.String())
	if e.Status != "" {
		s = s + ": " + e.Status
	}
	if len(e.errors) > 0 {
		s = s + ": " + strings.Join(e.errors, "; ")
	}
	return
}

// Unwrap returns the error kind corresponding to e.StatusCode.
func (e *TransactionError) Unwrap() error {
	return statusErrorKind(e.StatusCode)
}

// Details returns the error messages found in the response body, if
// any.
func (e *TransactionError) Details() []string {
	return append([]string(nil), e.errors...)
}

func statusErrorKind(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInternalServerError:
		return ErrServerError
	default:
		return ErrUnexpectedStatus
	}
}

func newTransactionError(method string, u *url.URL, resp *http.Response, buf []byte) *TransactionError {
	e := &TransactionError{
		Method: method,
		URL:    *u,
		Body:   buf,
	}
	if resp != nil {
		e.Status = resp.Status
		e.StatusCode = resp.StatusCode
	}
	e.errors = errorDetails(buf)
	return e
}

// errorDetails extracts messages from an ArchivesSpace error body,
// which looks like {"error":"Record not found"} or, for validation
// failures, {"error":{"title":["Property is required but was
// missing"]}}.
func errorDetails(buf []byte) []string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(buf, &body) != nil || len(body.Error) == 0 {
		return nil
	}
	var msg string
	if json.Unmarshal(body.Error, &msg) == nil {
		return []string{msg}
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(body.Error, &fields) == nil {
		var details []string
		for field, raw := range fields {
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil {
				details = append(details, field+": "+strings.Join(msgs, ", "))
			} else {
				details = append(details, field+": "+string(raw))
			}
		}
		sort.Strings(details)
		return details
	}
	return []string{string(body.Error)}
}
