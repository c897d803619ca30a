// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/aspace-tools/aspace-go/lib/cli"
	"github.com/aspace-tools/aspace-go/lib/cmd"
	"github.com/aspace-tools/aspace-go/lib/config"
)

var (
	handler = cmd.Multi(map[string]cmd.Handler{
		"-e":        cmd.Version,
		"version":   cmd.Version,
		"-version":  cmd.Version,
		"--version": cmd.Version,

		"login": cli.Login,
		"get":   cli.Get,
		"post":  cli.Post,
		"list":  cli.List,
		"ids":   cli.IDs,

		"config-check": config.CheckCommand,
		"config-dump":  config.DumpCommand,
	})
)

// fixArgs allows global flags to appear before the subcommand, as in
// "aspace-client --profile prod get /repositories".
func fixArgs(args []string) []string {
	flags, _ := cli.GlobalFlagSet()
	return cmd.SubcommandToFront(args, flags)
}

func main() {
	os.Exit(handler.RunCommand(os.Args[0], fixArgs(os.Args[1:]), os.Stdin, os.Stdout, os.Stderr))
}
