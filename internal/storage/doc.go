// Package storage persists the recipient directory and the report history.
//
// The only backend is a single SQLite database file; see migrations.sql for
// the schema.
package storage
