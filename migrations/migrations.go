// Package migrations embeds the SQL schema history so the migration runner
// works without files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
