// Package version holds the mapsearch build metadata injected via ldflags.
package version

// Service is the canonical name the binary reports in logs and health
// responses.
const Service = "mapsearch"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
