// Package build holds build-time metadata for the binary.
package build

var (
	// Slug is the command name of the application.
	Slug = "flowgrid"

	// Version is the application version. Overridden at build time
	// via -ldflags.
	Version = "0.0.0-dev"
)
