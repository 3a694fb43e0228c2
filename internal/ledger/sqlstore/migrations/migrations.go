// Package migrations embeds the goose migrations of the SQL ledger store,
// one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
