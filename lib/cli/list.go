// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"io"

	"github.com/aspace-tools/aspace-go/sdk/go/archivesspace"
)

var (
	// List fetches every page of a paginated listing.
	List = apiCmd{
		positional: "path [key=value ...]",
		minArgs:    1,
		maxArgs:    -1,
		summarize:  true,
		run: func(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error) {
			params, err := archivesspace.ParseParams(args[1:])
			if err != nil {
				return nil, err
			}
			return client.PagedRequestGet(ctx, args[0], params)
		},
	}

	// IDs fetches the all_ids listing of a collection.
	IDs = apiCmd{
		positional: "path",
		minArgs:    1,
		maxArgs:    1,
		summarize:  true,
		run: func(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error) {
			return client.AllIdsRequestGet(ctx, args[0])
		},
	}
)
