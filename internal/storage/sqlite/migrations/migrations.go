// Package migrations embeds the goose SQL migrations for SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
