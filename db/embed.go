// Package db embeds the storefront schema so the binary can migrate itself
// at startup without shipping SQL files alongside it.
package db

import _ "embed"

// Schema holds the DDL for the products and orders tables plus their
// indexes. Applied idempotently by postgres.RunMigrations.
//
//go:embed migrations/001_schema.sql
var Schema string
