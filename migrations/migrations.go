// Package migrations embeds the schema for the record tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
