// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"io"

	"github.com/ghodss/yaml"
)

const redacted = "xxxxxxxx"

// ExportYAML writes cfg to w as YAML. Passwords are replaced with a
// placeholder unless showSecrets is true.
func ExportYAML(w io.Writer, cfg *Config, showSecrets bool) error {
	out := Config{Clients: make(map[string]ClientConfig, len(cfg.Clients))}
	for name, cc := range cfg.Clients {
		if !showSecrets && cc.Password != "" {
			cc.Password = redacted
		}
		out.Clients[name] = cc
	}
	buf, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
