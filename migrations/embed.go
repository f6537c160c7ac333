// Package migrations embeds the SQL schema for the Postgres ride store.
package migrations

import "embed"

// FS holds all *.sql migration files, applied by goose at server start when
// MIGRATE=true.
//
//go:embed *.sql
var FS embed.FS
