// Package migrations embeds the schema and seed SQL shipped with the binary.
package migrations

import "embed"

//go:embed sql
var Files embed.FS
