// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
)

// settingsFile is relative to $HOME.
const settingsFile = ".config/archivesspace/settings.conf"

// NewClientFromEnv creates a new Client using the backend and
// credentials given by the ASPACE_API_* environment variables:
//
//	ASPACE_API_SCHEME    http or https (default https)
//	ASPACE_API_HOST
//	ASPACE_API_PORT
//	ASPACE_API_USERNAME
//	ASPACE_API_PASSWORD
//	ASPACE_API_INSECURE  1, yes, or true to skip TLS verification
//
// Variables not set in the environment are read from
// $HOME/.config/archivesspace/settings.conf, which contains
// "NAME = value" lines.
//
// Problems with the settings file or the port are logged to the
// ctxlog root logger and otherwise ignored.
func NewClientFromEnv() *Client {
	logger := ctxlog.FromContext(context.Background())
	vars := map[string]string{}
	if home := os.Getenv("HOME"); home != "" {
		if buf, err := os.ReadFile(home + "/" + settingsFile); err == nil {
			for k, v := range parseSettings(string(buf)) {
				vars[k] = v
			}
		} else if !os.IsNotExist(err) {
			logger.WithError(err).Warn("ignoring unreadable settings file")
		}
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 && strings.HasPrefix(kv, "ASPACE_") {
			vars[kv[:i]] = kv[i+1:]
		}
	}
	port := 0
	if s := vars["ASPACE_API_PORT"]; s != "" {
		var err error
		port, err = strconv.Atoi(s)
		if err != nil {
			logger.WithField("ASPACE_API_PORT", s).Warn("ignoring invalid port")
			port = 0
		}
	}
	return &Client{
		Endpoint: Endpoint{
			Scheme: vars["ASPACE_API_SCHEME"],
			Host:   vars["ASPACE_API_HOST"],
			Port:   port,
		},
		Credentials: Credentials{
			Username: vars["ASPACE_API_USERNAME"],
			Password: vars["ASPACE_API_PASSWORD"],
		},
		Insecure: StringBool(vars["ASPACE_API_INSECURE"]),
		Timeout:  5 * time.Minute,
	}
}

// parseSettings returns the ASPACE_* assignments in a settings file.
// Blank lines, comments, and other names are ignored.
func parseSettings(text string) map[string]string {
	vars := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i < 1 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		if !strings.HasPrefix(k, "ASPACE_") {
			continue
		}
		vars[k] = strings.TrimSpace(line[i+1:])
	}
	return vars
}

// StringBool tests whether s is suggestive of true. It returns true
// if s is a mixed/upper/lower-case variant of "1", "yes", or "true".
func StringBool(s string) bool {
	s = strings.ToLower(s)
	return s == "1" || s == "yes" || s == "true"
}
