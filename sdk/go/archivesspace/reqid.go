// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type contextKeyRequestID struct{}

// ContextWithRequestID returns a child context that causes requests
// made with it to carry the given X-Request-Id header instead of a
// generated one.
func ContextWithRequestID(ctx context.Context, reqid string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, reqid)
}

var reqIDGen = idGenerator{prefix: "req-"}

// idGenerator returns IDs that are unique for the life of the
// process.
type idGenerator struct {
	prefix string
	lastID int64
	mtx    sync.Mutex
}

func (g *idGenerator) Next() string {
	id := time.Now().UnixNano()
	g.mtx.Lock()
	if id <= g.lastID {
		id = g.lastID + 1
	}
	g.lastID = id
	g.mtx.Unlock()
	return g.prefix + strconv.FormatInt(id, 36)
}
