// Package postgres embeds the SQL schema for the pg storage adapter.
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS
