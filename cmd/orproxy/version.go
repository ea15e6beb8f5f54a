package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/orproxy/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

// versionInfo prints as the familiar multi-line block in text mode.
type versionInfo health.VersionInfo

func (v versionInfo) String() string {
	return fmt.Sprintf("orproxy %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s",
		v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

func newVersionCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including Git commit and build date.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, global, versionInfo(health.NewVersionInfo(Version, GitCommit, BuildDate)))
		},
	}
}
