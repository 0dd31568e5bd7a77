package app

import "fmt"

// Set with -ldflags "-X github.com/hyperifyio/copyfinder/internal/app.BuildVersion=..."
// by release builds.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Version renders the build information on one line.
func Version() string {
	return fmt.Sprintf("copyfinder %s (%s, %s)", BuildVersion, BuildCommit, BuildDate)
}
