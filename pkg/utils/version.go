// Package utils holds build metadata and small string helpers.
package utils

// Overridden at release time with -ldflags "-X .../pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo returns the build metadata as slog key/value pairs.
func BuildInfo() []any {
	return []any{"version", Version, "sha", Sha, "built_at", Buildtime}
}
