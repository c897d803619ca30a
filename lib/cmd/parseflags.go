// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// ParseFlags parses args with f, printing help or error messages to
// stderr.
//
// positional describes the accepted positional arguments, for the
// usage line "Usage: {prog} [options] {positional}". If it is empty,
// any positional argument is a usage error.
//
// If ok is false, the caller should exit with exitCode: 0 after
// --help, EX_USAGE after a usage error.
func ParseFlags(f FlagSet, prog string, args []string, positional string, stderr io.Writer) (ok bool, exitCode int) {
	f.Init(prog, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	err := f.Parse(args)
	switch {
	case err == nil && f.NArg() > 0 && positional == "":
		fmt.Fprintf(stderr, "%s: unexpected arguments %q (try --help)\n", prog, f.Args())
		return false, EX_USAGE
	case err == nil:
		return true, 0
	case errors.Is(err, flag.ErrHelp):
		printUsage(f, prog, positional, stderr)
		return false, 0
	default:
		fmt.Fprintf(stderr, "%s: %s (try --help)\n", prog, err)
		return false, EX_USAGE
	}
}

func printUsage(f FlagSet, prog, positional string, w io.Writer) {
	usage := "Usage: " + prog + " [options]"
	if positional != "" {
		usage += " " + positional
	}
	fmt.Fprintf(w, "%s\n\nOptions:\n", usage)
	f.SetOutput(w)
	f.PrintDefaults()
}
