package ltsc

import "github.com/nobletooth/ltsc/pkg/utils"

// Version returns the build-time semantic version, set via linker flags at
// build time and defaulting to "unknown" for local builds.
func Version() string {
	return utils.Version
}

// Commit returns the build-time VCS commit hash, set the same way as Version.
func Commit() string {
	return utils.Commit
}
