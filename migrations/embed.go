// Package migrations embeds the SQL schema for MirAIe Core.
//
// The files are compiled into the binary so the service can migrate a fresh
// database without anything on disk besides the database file itself.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS is passed to database.DB.Migrate.
var FS = files
