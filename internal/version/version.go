// Package version carries build identification, overridden at link time
// via -ldflags "-X".
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)
