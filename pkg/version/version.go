// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Overridden at link time:
//
//	-ldflags "-X github.com/Sumatoshi-tech/gitradar/pkg/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills unset metadata from the module build info, so
// binaries installed with go install report their module version.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String formats the metadata for the version command.
func String() string {
	return fmt.Sprintf("gitradar %s (commit: %s, built: %s)", Version, Commit, Date)
}
