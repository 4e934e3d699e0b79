// Package version reports how the tpu binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/teranos/tpu/version.Version=..." at release time
var (
	Version    = "dev"
	CommitHash = "dev"
	BuildTime  = "unknown"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the build information. Commit and build time the linker did
// not set come from the VCS stamp of the main module, when present.
func Get() Info {
	info := Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		info.stamp(build.Settings)
	}
	return info
}

func (i *Info) stamp(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch {
		case s.Key == "vcs.revision" && i.CommitHash == "dev":
			i.CommitHash = s.Value
		case s.Key == "vcs.time" && i.BuildTime == "unknown":
			i.BuildTime = s.Value
		}
	}
}

func (i Info) String() string {
	return fmt.Sprintf("tpu %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

// Short returns the abbreviated commit hash
func (i Info) Short() string {
	const n = 7
	if len(i.CommitHash) < n {
		return i.CommitHash
	}
	return i.CommitHash[:n]
}

// UserAgent returns the User-Agent sent to the engine
func (i Info) UserAgent() string {
	return "tpu/" + i.Version + " (" + i.Short() + ")"
}
