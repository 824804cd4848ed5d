// Package migrations embeds the SQL schema migrations so binaries stay
// self-contained.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
