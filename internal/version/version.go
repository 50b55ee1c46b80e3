// Package version holds build information injected with -ldflags.
package version

import "fmt"

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/arthur-debert/roost/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/arthur-debert/roost/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/arthur-debert/roost/internal/version.Date={{.Date}}
)

// Info is the build information as rendered by `roost version`
type Info struct {
	Version string `yaml:"version"`
	Commit  string `yaml:"commit"`
	Date    string `yaml:"date"`
}

// Get returns the build information
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String renders the information on one line
func (i Info) String() string {
	return fmt.Sprintf("roost %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
