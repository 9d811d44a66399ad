// Package db embeds the database schema.
package db

import _ "embed"

// Schema contains the DDL for the promotions, menu, orders and API key tables.
// Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
