// Package version provides build version information for checkflow.
package version

// Version is the semantic version of checkflow.
// Overridable at build time using:
//
//	go build -ldflags="-X github.com/checkflow/checkflow/internal/version.Version=v1.0.0"
var Version = "v0.1.0-dev"

// String returns the version string.
func String() string {
	return Version
}
