// Package version provides build information for StoryLoom.
package version

import "runtime"

// Version and Commit are set at build time:
//
//	go build -ldflags "-X github.com/AaronLay10/StoryLoom/internal/version.Version=x.y.z -X github.com/AaronLay10/StoryLoom/internal/version.Commit=abc123"
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// String returns a one-line description of the build.
func String() string {
	return "storyloom " + Version + " (" + Commit + ", " + runtime.Version() + ")"
}
