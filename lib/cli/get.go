// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aspace-tools/aspace-go/sdk/go/archivesspace"
)

var (
	// Get fetches a single record (or any other JSON response):
	//
	//	aspace-client get /repositories/2/resources/1 resolve='["subjects"]'
	Get = apiCmd{
		positional: "path [key=value ...]",
		minArgs:    1,
		maxArgs:    -1,
		run:        runGet,
	}

	// Post sends the JSON object on stdin to path.
	Post = apiCmd{
		positional: "path < record.json",
		minArgs:    1,
		maxArgs:    1,
		run:        runPost,
	}

	// Login connects and prints the authenticated user.
	Login = apiCmd{
		maxArgs: 0,
		run: func(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error) {
			return client.Session().User, nil
		},
	}
)

func runGet(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error) {
	params, err := archivesspace.ParseParams(args[1:])
	if err != nil {
		return nil, err
	}
	var obj json.RawMessage
	err = client.RequestGet(ctx, &obj, args[0], params)
	return obj, err
}

func runPost(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error) {
	buf, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: reading JSON object from stdin: %s", archivesspace.ErrBadRequest, err)
	}
	var resp json.RawMessage
	err = client.RequestPost(ctx, &resp, args[0], body)
	return resp, err
}
