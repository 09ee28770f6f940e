// Package migrations embeds SQL migration files into the binary.
//
// controlhub runs its migrations from the executable itself, so the SQL
// files do not need to be shipped alongside it.
package migrations

import (
	"embed"

	"github.com/nerrad567/controlhub-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
