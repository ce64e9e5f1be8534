// Package buildinfo reports the version of the sheetflow binary.
//
// Release builds stamp the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/sheetflow/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/sheetflow/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/sheetflow/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries installed with "go install" are not stamped; for those the module
// version and VCS settings embedded by the toolchain are used instead.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version (e.g., "v0.3.0").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info is the resolved build information.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Get returns the stamped build information, falling back to what the Go
// toolchain embedded in the binary.
func Get() Info {
	return resolve(debug.ReadBuildInfo)
}

func resolve(read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := read()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String returns the formatted build information.
func String() string {
	i := Get()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, i.Commit, i.Date)
}

// Template returns the version template string for cobra.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
