/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build information.
package version

import (
	"fmt"
	"runtime"
)

// These are set at build time via ldflags:
//
//	-X github.com/friendsincode/timegate/internal/version.Version=X.Y.Z
var (
	Version = "0.4.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build information for the version command and logs.
func String() string {
	return fmt.Sprintf("timegate %s (commit %s, built %s, %s/%s)", Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
