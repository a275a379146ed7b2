// Package sqlite keeps ontology snapshots in a SQLite file: a local cache
// for instant reopen and a revisioned store for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"ontograph/infrastructure/persistence/schema"

	_ "modernc.org/sqlite"
)

// Migrations is the schema history of the snapshot database. Statements
// stay idempotent so files created before versioning upgrade cleanly.
func Migrations() *schema.SchemaEvolution {
	evolution := schema.NewSchemaEvolution()
	steps := []schema.Migration{
		{
			FromVersion: 0, ToVersion: 1,
			Description: "snapshot cache",
			Up: schema.Exec(`
CREATE TABLE IF NOT EXISTS snapshot_cache (
	iri        TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	revision   INTEGER NOT NULL,
	node_count INTEGER NOT NULL,
	edge_count INTEGER NOT NULL,
	body       BLOB NOT NULL,
	cached_at  TEXT NOT NULL
)`),
			Down: schema.Exec(`DROP TABLE IF EXISTS snapshot_cache`),
		},
		{
			FromVersion: 1, ToVersion: 2,
			Description: "revisioned snapshot store",
			Up: schema.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
	iri        TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	revision   INTEGER NOT NULL,
	saved_at   TEXT NOT NULL,
	saved_by   TEXT NOT NULL DEFAULT '',
	body       BLOB NOT NULL
)`),
			Down: schema.Exec(`DROP TABLE IF EXISTS snapshots`),
		},
	}
	for _, m := range steps {
		if err := evolution.RegisterMigration(m); err != nil {
			panic(err)
		}
	}
	return evolution
}

// Open opens or creates the database at path and migrates it to the latest
// schema. ":memory:" gives a private in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	evolution := Migrations()
	if err := evolution.Migrate(context.Background(), db, evolution.Latest()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}
