// Package version holds build information set with -ldflags, e.g.
//
//	go build -ldflags "-X discord-core-bot/internal/version.Version=1.0.0"
package version

import (
	"fmt"
	"runtime"
)

const AppName = "corebot"

var (
	Version   = "dev"
	GitCommit string
	BuildTime string
)

// String returns the version with the commit when known.
func String() string {
	v := Version
	if GitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", GitCommit)
	}
	return v
}

// Build returns the build time and the Go version.
func Build() (string, string) {
	return BuildTime, runtime.Version()
}
