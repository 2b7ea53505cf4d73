// Package version reports which build of labelbot is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags, e.g.
// go build -ldflags="-X github.com/triagehq/labelbot/internal/version.Version=v1.0.0".
// Binaries built without ldflags fall back to the module info the toolchain
// embeds, so `go install` builds still report a usable revision.
var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildDate is the RFC3339 timestamp of the build.
	BuildDate = "unknown"
)

// Short returns just the version string (e.g., "v1.2.3" or "dev").
func Short() string {
	v, _, _ := resolve()
	return v
}

// Info returns a one-line description of the running build.
// Format: "labelbot v1.2.3 (commit: abc1234, built: 2026-01-15T10:30:00Z, go: go1.24.x)"
func Info() string {
	v, c, d := resolve()
	return fmt.Sprintf("labelbot %s (commit: %s, built: %s, go: %s)",
		v, shortCommit(c), d, runtime.Version())
}

// Full returns a multi-line verbose version output.
func Full() string {
	v, c, d := resolve()
	return fmt.Sprintf(`labelbot %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s`,
		v, c, d, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// resolve merges the ldflags values with the toolchain's embedded build
// info. Explicit ldflags win; the embedded info only fills fields left at
// their defaults.
func resolve() (version, commit, date string) {
	version, commit, date = Version, Commit, BuildDate

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
