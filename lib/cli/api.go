// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/aspace-tools/aspace-go/lib/cmd"
	"github.com/aspace-tools/aspace-go/lib/config"
	"github.com/aspace-tools/aspace-go/sdk/go/archivesspace"
	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// apiCmd is a subcommand that connects to a backend, makes one or
// more requests, and prints the result.
type apiCmd struct {
	// Usage string for positional arguments.
	positional string
	minArgs    int
	// -1 means unlimited.
	maxArgs int
	// Print the number of results on stderr.
	summarize bool

	run func(ctx context.Context, client *archivesspace.Client, args []string, stdin io.Reader) (interface{}, error)
}

func (ac apiCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s: %s\n", prog, err)
		}
	}()

	flags, opts := GlobalFlagSet()
	if ok, code := cmd.ParseFlags(flags, prog, args, ac.positional, stderr); !ok {
		return code
	}
	args = flags.Args()
	if len(args) < ac.minArgs || (ac.maxArgs >= 0 && len(args) > ac.maxArgs) {
		fmt.Fprintf(stderr, "Usage: %s [options] %s\n", prog, ac.positional)
		return cmd.EX_USAGE
	}
	if err = opts.check(); err != nil {
		return cmd.EX_USAGE
	}

	cc, err := loadClientConfig(opts, ctxlog.New(stderr, defaultString(opts.LogFormat, "text"), defaultString(opts.LogLevel, "info")))
	if err != nil {
		return cmd.EX_CONFIG
	}
	logger := ctxlog.New(stderr, defaultString(opts.LogFormat, cc.LogFormat), defaultString(opts.LogLevel, cc.LogLevel))
	ctx := ctxlog.Context(context.Background(), logger)
	client := cc.NewClient()
	client.Logger = logger
	if err = client.Connect(ctx); err != nil {
		return exitCode(err)
	}
	result, err := ac.run(ctx, client, args, stdin)
	if err != nil {
		return exitCode(err)
	}
	if err = printResult(stdout, opts.Format, result); err != nil {
		return cmd.EX_GENERAL
	}
	if ac.summarize {
		if v := reflect.ValueOf(result); v.Kind() == reflect.Slice {
			fmt.Fprintf(stderr, "%s results\n", humanize.Comma(int64(v.Len())))
		}
	}
	return 0
}

// loadClientConfig returns the selected profile from the client
// configuration.
func loadClientConfig(opts *GlobalFlags, logger logrus.FieldLogger) (*config.ClientConfig, error) {
	ldr := config.NewLoader(nil, logger)
	ldr.Path = opts.Config
	cfg, err := ldr.Load()
	if err != nil {
		return nil, err
	}
	return cfg.GetClient(opts.Profile)
}

// exitCode maps a request error to a sysexits code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, archivesspace.ErrAuthenticationFailed),
		errors.Is(err, archivesspace.ErrForbidden):
		return cmd.EX_NOPERM
	case errors.Is(err, archivesspace.ErrConnectionFailed),
		errors.Is(err, context.DeadlineExceeded):
		return cmd.EX_UNAVAILABLE
	case errors.Is(err, archivesspace.ErrNotFound):
		return cmd.EX_NOINPUT
	case errors.Is(err, archivesspace.ErrBadRequest),
		errors.Is(err, archivesspace.ErrNotPaginated):
		return cmd.EX_DATAERR
	case errors.Is(err, archivesspace.ErrServerError):
		return cmd.EX_SOFTWARE
	default:
		return cmd.EX_GENERAL
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
