// Package version reports the build version of carbonfocus.
package version

import (
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

// Set at build time with -ldflags "-X github.com/rshade/carbonfocus/pkg/version.version=1.2.3".
//
//nolint:gochecknoglobals // Overridden by the linker.
var (
	version = "0.1.0-dev"
	commit  = ""
)

// GetVersion returns the semantic version of the binary.
func GetVersion() string {
	return version
}

// GetCommit returns the VCS revision, from ldflags or the embedded build info.
func GetCommit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// Semver parses the version. Builds with a malformed version string report
// an error rather than panicking.
func Semver() (*semver.Version, error) {
	return semver.NewVersion(version)
}

// IsPrerelease reports whether this is a development or prerelease build.
func IsPrerelease() bool {
	v, err := Semver()
	return err != nil || v.Prerelease() != ""
}
