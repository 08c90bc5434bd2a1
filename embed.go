// Package karma exposes assets embedded into the binaries.
package karma

import "embed"

// MigrationsFS carries the goose SQL migrations.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
