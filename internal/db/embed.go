// filepath: internal/db/embed.go
package db

import "embed"

// SchemaFile is the name of the base schema script inside FS.
const SchemaFile = "schema.sql"

// FS embeds the base schema script so a packaged binary can bootstrap a
// datastore without the source tree.
//
//go:embed schema.sql
var FS embed.FS
