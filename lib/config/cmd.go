// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/aspace-tools/aspace-go/lib/cmd"
	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
)

var DumpCommand dumpCommand

type dumpCommand struct{}

func (dumpCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()

	loader := NewLoader(stdin, ctxlog.New(stderr, "text", "info"))
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	loader.SetupFlags(flags)
	profile := flags.String("profile", "", "Dump only the given `profile`")
	showSecrets := flags.Bool("show-secrets", false, "Include passwords in the output")
	if ok, code := cmd.ParseFlags(flags, prog, args, "", stderr); !ok {
		return code
	}
	cfg, err := loader.Load()
	if err != nil {
		return cmd.EX_CONFIG
	}
	if *profile != "" {
		var cc *ClientConfig
		cc, err = cfg.GetClient(*profile)
		if err != nil {
			return cmd.EX_CONFIG
		}
		cfg = &Config{Clients: map[string]ClientConfig{*profile: *cc}}
	}
	err = ExportYAML(stdout, cfg, *showSecrets)
	if err != nil {
		return cmd.EX_GENERAL
	}
	return 0
}

var CheckCommand checkCommand

type checkCommand struct{}

func (checkCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()

	loader := NewLoader(stdin, ctxlog.New(stderr, "text", "info"))
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	loader.SetupFlags(flags)
	strict := flags.Bool("strict", true, "Exit non-zero if the config has unknown entries")
	if ok, code := cmd.ParseFlags(flags, prog, args, "", stderr); !ok {
		return code
	}
	_, err = loader.Load()
	if err != nil {
		return cmd.EX_CONFIG
	}
	if *strict && len(loader.UnknownKeys()) > 0 {
		return cmd.EX_CONFIG
	}
	return 0
}
