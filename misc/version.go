// Package misc keeps build identification used across the program.
package misc

import "runtime/debug"

// Values are overwritten at build time with
// -ldflags "-X bec/misc.version=... -X bec/misc.gitHash=...".
var (
	appName = "bec"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

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
