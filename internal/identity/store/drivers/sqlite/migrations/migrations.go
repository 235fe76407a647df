package migrations

import "embed"

// Migrations holds the SQL migration files, embedded into the binary.
//
//go:embed *.sql
var Migrations embed.FS
