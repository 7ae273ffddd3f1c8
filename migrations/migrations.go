// Package migrations embeds the baseline schema for the SQL backends.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the goose migration files for PostgreSQL.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the goose migration files for SQLite.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// only reachable if the embed pattern above changes
		panic(err)
	}
	return f
}
