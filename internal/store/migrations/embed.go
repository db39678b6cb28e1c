package migrations

import "embed"

// Files contains the SQL migrations, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
