package version //nolint:revive // package name intentionally matches build-info convention

import "fmt"

//nolint:gochecknoglobals //version information is set at build time
var (
	Repository string
	Version    string
	Commit     string
	Date       string
)

// String renders the build information on one line.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}

	s := v
	if Commit != "" {
		s += fmt.Sprintf(" (%s", Commit)
		if Date != "" {
			s += ", " + Date
		}
		s += ")"
	}
	if Repository != "" {
		s += " " + Repository
	}
	return s
}
