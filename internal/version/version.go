// Package version provides build-time version information for ideactl.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the application version (e.g., git tag or "dev")
	Version = "dev"
	// Commit is the git commit hash
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info is the version report printed by `ideactl version`
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get collects the build variables and runtime details
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders a one-line summary
func (i Info) String() string {
	return fmt.Sprintf("ideactl %s (commit %s, built %s, %s %s)", i.Version, i.Commit, i.BuildTime, i.GoVersion, i.Platform)
}
