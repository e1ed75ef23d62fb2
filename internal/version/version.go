// Package version holds build identification stamped in via -ldflags.
package version

import "fmt"

var (
	// Version is the release version, "dev" for unstamped builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

// String returns a single-line build description for startup logs.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
