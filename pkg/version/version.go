// Package version holds build metadata injected at link time via
// -ldflags "-X watchtower/pkg/version.Version=... -X watchtower/pkg/version.GitCommit=...".
package version

var (
	// Version is the semantic version of the build
	Version = "dev"

	// GitCommit is the git commit hash of the build
	GitCommit = "unknown"
)
