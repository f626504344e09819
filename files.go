package credstore

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// DialectMigrationsFS returns the migrations for one driver, rooted at the
// directory goose reads from.
func DialectMigrationsFS(driver string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations/"+driver)
}
