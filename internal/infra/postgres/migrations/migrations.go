package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema and seed migration, registered by file.
var Migrations = migrate.NewMigrations()
