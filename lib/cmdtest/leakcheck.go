// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmdtest provides tools for testing command line tools.
package cmdtest

import (
	"io"
	"os"

	check "gopkg.in/check.v1"
)

// LeakCheck fails the test if anything is written to os.Stdout or
// os.Stderr instead of the stdout and stderr writers passed to a
// cmd.Handler.
//
// The returned func restores os.Stdout and os.Stderr and does the
// check. Defer it:
//
//	func (s *Suite) TestSomething(c *check.C) {
//		defer cmdtest.LeakCheck(c)()
//		// ... run a command
//	}
func LeakCheck(c *check.C) func() {
	tmpdir := c.MkDir()
	stdout, err := os.CreateTemp(tmpdir, "stdout")
	c.Assert(err, check.IsNil)
	stderr, err := os.CreateTemp(tmpdir, "stderr")
	c.Assert(err, check.IsNil)

	origStdout, origStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = stdout, stderr
	return func() {
		os.Stdout, os.Stderr = origStdout, origStderr
		for _, f := range []*os.File{stdout, stderr} {
			_, err := f.Seek(0, io.SeekStart)
			c.Assert(err, check.IsNil)
			leaked, err := io.ReadAll(f)
			c.Assert(err, check.IsNil)
			c.Check(string(leaked), check.Equals, "", check.Commentf("leaked to %s", f.Name()))
			f.Close()
		}
	}
}
