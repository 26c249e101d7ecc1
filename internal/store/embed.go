package store

import "embed"

// migrationsFS contains the embedded goose migrations.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS
