package appfs

import "embed"

// FS holds the SQL migrations, email templates and seed data shipped with the binaries.
//
//go:embed migrations/*.sql all:assets
var FS embed.FS
