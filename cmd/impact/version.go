package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// GitCommit is set with -ldflags "-X main.GitCommit=...".
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

// VersionWithCommit appends the short commit, falling back to the vcs
// revision stamped by the go toolchain.
func VersionWithCommit(gitCommit string) string {
	if gitCommit == "" {
		gitCommit = vcsRevision()
	}
	vsn := Version
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the version",
	Aliases: []string{"V"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(VersionWithCommit(GitCommit))
	},
}
