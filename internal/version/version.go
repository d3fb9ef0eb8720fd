// Package version exposes build information injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables (injected via -ldflags).
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("music2db %s (commit %s, built %s, %s)",
		Version, Commit, Date, runtime.Version())
}
