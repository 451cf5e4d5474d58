// Package misc keeps build time information.
package misc

import (
	"runtime/debug"
)

// set by linker: -X tripimg/misc.version=...
var (
	version = "dev"
	gitHash = ""
)

const appName = "tripimg"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit hash set at link time or, when absent, the
// vcs.revision recorded by the go tool.
func GetGitHash() string {
	if len(gitHash) > 0 {
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

// GetUserAgent is used for all outgoing requests.
func GetUserAgent() string {
	return appName + "/" + version
}
