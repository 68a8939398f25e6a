// Package db embeds the match store schema migrations
package db

import "embed"

// Migrations holds one directory of golang-migrate files per database driver
//
//go:embed pg/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "pg"
	SQLiteDir   = "sqlite"
)
