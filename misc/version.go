// Package misc holds build time information.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X edi835/misc.version=... -X edi835/misc.gitHash=...".
var (
	version = "dev"
	gitHash = ""
)

const appName = "edi835"

// GetAppName returns program name used for logs, temporary files and
// report names.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// GetGitHash returns VCS revision program was built from.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
