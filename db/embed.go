// Package db embeds the PostgreSQL schema for the collections backend.
package db

import _ "embed"

// Schema creates the collections table. It is safe to run repeatedly.
//
//go:embed migrations/001_schema.sql
var Schema string
