// Package version provides build version information and semver utilities.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These are set via ldflags at build time. When they are not, Short and Info fall
// back to the module and VCS data embedded by the go command.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// Short returns the version number.
func Short() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// Revision returns the commit the binary was built from, shortened to 7 characters.
func Revision() string {
	commit := Commit
	if commit == "unknown" {
		if info, ok := readBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
				}
			}
		}
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return commit
}

// Info returns a one-line build summary, e.g. "testkit v0.3.0 (1a2b3c4) built on 2024-05-01 with go1.25.3".
func Info() string {
	return fmt.Sprintf("testkit %s (%s) built on %s with %s", Short(), Revision(), BuildDate, runtime.Version())
}
