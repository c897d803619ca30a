// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package version reports the release of the aspace-go tools.
package version

import "runtime/debug"

var (
	// Version will get assigned the release number at compile
	// time, e.g., -ldflags "-X .../sdk/go/version.Version=1.2.0"
	Version string

	readBuildInfo = debug.ReadBuildInfo
)

// GetVersion returns the release number if it was assigned by the
// linker, otherwise the main module version recorded by "go install
// ...@vX.Y.Z", otherwise "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}
