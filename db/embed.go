// Package db ships the SQL schema inside the binary so deployments never
// depend on migration files being present on disk.
package db

import _ "embed"

// Schema holds the DDL for the tracker tables, applied idempotently at
// startup by repository.RunMigrations.
//
//go:embed migrations/001_schema.sql
var Schema string
