// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(&envSuite{})

type envSuite struct {
	home string
	env  map[string]string
}

var envVars = []string{
	"HOME",
	"ASPACE_API_SCHEME",
	"ASPACE_API_HOST",
	"ASPACE_API_PORT",
	"ASPACE_API_USERNAME",
	"ASPACE_API_PASSWORD",
	"ASPACE_API_INSECURE",
}

func (s *envSuite) SetUpTest(c *check.C) {
	s.env = map[string]string{}
	for _, k := range envVars {
		s.env[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	s.home = c.MkDir()
	os.Setenv("HOME", s.home)
}

func (s *envSuite) TearDownTest(c *check.C) {
	for k, v := range s.env {
		if v == "" {
			os.Unsetenv(k)
		} else {
			os.Setenv(k, v)
		}
	}
}

func (s *envSuite) writeSettings(c *check.C, text string) {
	fnm := filepath.Join(s.home, settingsFile)
	c.Assert(os.MkdirAll(filepath.Dir(fnm), 0700), check.IsNil)
	c.Assert(os.WriteFile(fnm, []byte(text), 0600), check.IsNil)
}

func (s *envSuite) TestFromEnv(c *check.C) {
	os.Setenv("ASPACE_API_SCHEME", "http")
	os.Setenv("ASPACE_API_HOST", "aspace.example")
	os.Setenv("ASPACE_API_PORT", "8089")
	os.Setenv("ASPACE_API_USERNAME", "archivist")
	os.Setenv("ASPACE_API_PASSWORD", "secret")
	os.Setenv("ASPACE_API_INSECURE", "Yes")
	client := NewClientFromEnv()
	c.Check(client.Endpoint, check.Equals, Endpoint{Scheme: "http", Host: "aspace.example", Port: 8089})
	c.Check(client.Credentials, check.Equals, Credentials{Username: "archivist", Password: "secret"})
	c.Check(client.Insecure, check.Equals, true)
	c.Check(client.Timeout, check.Equals, 5*time.Minute)
	c.Check(client.Session(), check.IsNil)
}

func (s *envSuite) TestSettingsFile(c *check.C) {
	s.writeSettings(c, `
# local backend
ASPACE_API_HOST = localhost
ASPACE_API_PORT=8089
ASPACE_API_USERNAME = admin
ASPACE_API_PASSWORD = file-password
OTHER_VAR = ignored
not an assignment
`)
	os.Setenv("ASPACE_API_PASSWORD", "env-password")
	client := NewClientFromEnv()
	c.Check(client.Endpoint, check.Equals, Endpoint{Host: "localhost", Port: 8089})
	c.Check(client.Endpoint.String(), check.Equals, "https://localhost:8089")
	c.Check(client.Credentials.Username, check.Equals, "admin")
	c.Check(client.Credentials.Password, check.Equals, "env-password")
	c.Check(client.Insecure, check.Equals, false)
}

func (s *envSuite) TestBadPort(c *check.C) {
	var logbuf bytes.Buffer
	ctxlog.SetOutput(&logbuf)
	defer ctxlog.SetOutput(nil)
	os.Setenv("ASPACE_API_HOST", "localhost")
	os.Setenv("ASPACE_API_PORT", "eighty")
	client := NewClientFromEnv()
	c.Check(client.Endpoint.Port, check.Equals, 0)
	c.Check(client.Endpoint.Host, check.Equals, "localhost")
	c.Check(logbuf.String(), check.Matches, `(?ms).*ignoring invalid port.*ASPACE_API_PORT.*eighty.*`)
}

func (s *envSuite) TestUnreadableSettingsFile(c *check.C) {
	var logbuf bytes.Buffer
	ctxlog.SetOutput(&logbuf)
	defer ctxlog.SetOutput(nil)
	// A directory where the file should be cannot be read.
	c.Assert(os.MkdirAll(filepath.Join(s.home, settingsFile), 0700), check.IsNil)
	os.Setenv("ASPACE_API_HOST", "localhost")
	client := NewClientFromEnv()
	c.Check(client.Endpoint.Host, check.Equals, "localhost")
	c.Check(logbuf.String(), check.Matches, `(?ms).*ignoring unreadable settings file.*`)
}

func (s *envSuite) TestParseSettings(c *check.C) {
	c.Check(parseSettings("ASPACE_A=1\n  # ASPACE_B=2\nASPACE_C = x = y\n=bare\n"), check.DeepEquals, map[string]string{
		"ASPACE_A": "1",
		"ASPACE_C": "x = y",
	})
}

func (s *envSuite) TestStringBool(c *check.C) {
	for _, t := range []string{"1", "yes", "YES", "true", "True"} {
		c.Check(StringBool(t), check.Equals, true, check.Commentf("%q", t))
	}
	for _, f := range []string{"", "0", "no", "false", "y", "on"} {
		c.Check(StringBool(f), check.Equals, false, check.Commentf("%q", f))
	}
}
