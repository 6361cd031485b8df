// Package version holds build metadata injected via ldflags.
package version

import "fmt"

// Stamped at build time via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "none"
	BuiltAt = "unknown"
)

// String renders the build stamp in one line for startup logs.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, BuiltAt)
}
