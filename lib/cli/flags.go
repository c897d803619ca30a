// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"rsc.io/getopt"
)

// GlobalFlags are accepted by every subcommand that talks to a
// backend. They can appear before or after the subcommand name.
type GlobalFlags struct {
	Format    string
	Short     bool
	Config    string
	Profile   string
	LogLevel  string
	LogFormat string
}

func GlobalFlagSet() (*getopt.FlagSet, *GlobalFlags) {
	values := &GlobalFlags{Format: "json"}
	flags := getopt.NewFlagSet("", flag.ContinueOnError)
	flags.StringVar(&values.Format, "format", values.Format, "Output format: json, yaml, or uri")
	flags.Alias("f", "format")
	flags.BoolVar(&values.Short, "short", false, "Print only URIs (equivalent to --format=uri)")
	flags.Alias("s", "short")
	flags.StringVar(&values.Config, "config", "", "Client configuration `file` (default $ASPACE_CONFIG, /etc/archivesspace/config.yml, or ASPACE_API_* environment)")
	flags.Alias("c", "config")
	flags.StringVar(&values.Profile, "profile", "", "Configuration `profile` to use")
	flags.Alias("p", "profile")
	flags.StringVar(&values.LogLevel, "log-level", "", "Log `level` (default from config, or info)")
	flags.StringVar(&values.LogFormat, "log-format", "", "Log `format`: text or json (default from config, or text)")
	return flags, values
}

func (f *GlobalFlags) check() error {
	if f.Short {
		f.Format = "uri"
	}
	switch f.Format {
	case "json", "yaml", "uri":
	default:
		return fmt.Errorf("unsupported output format %q (use json, yaml, or uri)", f.Format)
	}
	if f.LogLevel != "" {
		if _, err := logrus.ParseLevel(f.LogLevel); err != nil {
			return err
		}
	}
	switch f.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (use text or json)", f.LogFormat)
	}
	return nil
}
