package version

// Package version holds build-time version metadata.
// Values are intended to be overridden via -ldflags during build.

var (
	Version = "dev"     // e.g., v1.2.3 or git describe output
	Commit  = "none"    // short git SHA
	Date    = "unknown" // build UTC timestamp
	Repo    = ""        // e.g., owner/repo; optional
)

type Info struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	Date            string `json:"date"`
	Repo            string `json:"repo"`
	LatestTag       string `json:"latest_tag"`
	UpdateAvailable bool   `json:"update_available"`
}
