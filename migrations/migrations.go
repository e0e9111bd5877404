// Package migrations embeds the saved-query schema migrations, one directory per driver.
package migrations

import "embed"

// Files are applied in lexical order by internal/core/db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
