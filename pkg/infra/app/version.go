package app

import (
	"github.com/kart-io/version"
	"github.com/spf13/pflag"
)

// BuildInfo 是版本接口返回的构建信息。
type BuildInfo struct {
	GitVersion string `json:"git_version"`
	GitCommit  string `json:"git_commit,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

// GetVersion returns the git version injected at build time.
func GetVersion() string {
	return version.Get().GitVersion
}

// GetBuildInfo returns the build metadata of the running binary.
func GetBuildInfo() BuildInfo {
	info := version.Get()
	return BuildInfo{
		GitVersion: info.GitVersion,
		GitCommit:  info.GitCommit,
		BuildDate:  info.BuildDate,
		GoVersion:  info.GoVersion,
		Platform:   info.Platform,
	}
}

// AddVersionFlags registers --version on fs.
func AddVersionFlags(fs *pflag.FlagSet) {
	version.AddFlags(fs)
}

// PrintAndExitIfRequested prints the version and exits when --version is set.
func PrintAndExitIfRequested() {
	version.PrintAndExitIfRequested()
}
