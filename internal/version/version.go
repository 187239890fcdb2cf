// Package version holds build metadata set through -ldflags, e.g.
//
//	go build -ldflags "-X modelwire/internal/version.Version=v0.3.0 -X modelwire/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("modelwire %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}
