package version

import (
	"runtime"
	"runtime/debug"
)

// Set through -ldflags:
// -X 'github.com/compozy/docrag/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/docrag/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/docrag/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commitHash"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
}

// Get resolves the build information from ldflags first, then from the module
// info embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "unknown" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.CommitHash == "unknown" {
				info.CommitHash = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = setting.Value
			}
		}
	}
	return info
}

// GetVersion returns just the version string
func GetVersion() string {
	return Get().Version
}
