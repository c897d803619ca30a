// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package archivesspace is a client for the ArchivesSpace backend
// REST API.
//
// A Client logs in once with Connect, then sends the session token
// it got back with every request:
//
//	client := archivesspace.NewClient("http", "localhost", 8089, "admin", "admin")
//	err := client.Connect(ctx)
//	...
//	var user map[string]interface{}
//	err = client.RequestGet(ctx, &user, "/users/1", nil)
//
// Paginated listings can be fetched in full with PagedRequestGet:
//
//	results, err := client.PagedRequestGet(ctx, "/subjects", nil)
//	subjects, err := archivesspace.DecodeResults[Subject](results)
//
// Records are created or updated by posting them back:
//
//	var subject map[string]interface{}
//	err = client.RequestGet(ctx, &subject, "/subjects/1", nil)
//	subject["scope_note"] = "Hello World"
//	err = client.RequestPost(ctx, nil, "/subjects/1", subject)
//
// The record's lock_version must be posted back unchanged; the
// server uses it to reject conflicting updates.
//
// Failed requests return errors that can be matched with errors.Is
// against ErrBadRequest, ErrForbidden, ErrNotFound, ErrServerError,
// ErrUnexpectedStatus, ErrConnectionFailed, and so on. Use errors.As
// with *TransactionError to get the status code and response body.
//
// A Client is safe to use from multiple goroutines, but requests that
// are in flight while Connect runs may be sent with either the old or
// the new session.
package archivesspace
