package buildconfig

import "fmt"

// Set with -ldflags "-X github.com/Harshitk-cp/axiom/internal/buildconfig.version=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// String is the one-line form printed by `axiomctl version` and logged at startup.
func String() string {
	s := fmt.Sprintf("axiom %s (%s)", version, shortCommit())
	if buildDate != "" {
		s += " built " + buildDate
	}
	return s
}

func shortCommit() string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
