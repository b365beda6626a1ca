// Package fs exposes files embedded in the application binary.
package fs

import "embed"

//go:embed migrations
var Migrations embed.FS
