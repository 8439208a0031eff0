// Package migrations embeds the SQL migration files into the binary.
//
// The daemon runs migrations at startup without needing the SQL files on
// disk. Tests across the module use Source() with an in-memory database.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migrations as a database.MigrationSource.
func Source() database.MigrationSource {
	return database.MigrationSource{FS: files, Dir: "."}
}
