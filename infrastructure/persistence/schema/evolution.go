// Package schema applies versioned migrations to SQL databases. The current
// version is kept in SQLite's user_version pragma and every applied step is
// recorded in schema_history.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// SchemaVersion records one applied migration
type SchemaVersion struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Migration moves the schema one version forward (Up) or back (Down)
type Migration struct {
	FromVersion int
	ToVersion   int
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// MigrationFunc runs inside the migration's transaction
type MigrationFunc func(ctx context.Context, tx *sql.Tx) error

const historyTable = `
CREATE TABLE IF NOT EXISTS schema_history (
	version     INTEGER NOT NULL,
	description TEXT NOT NULL,
	applied_at  TEXT NOT NULL
)`

// SchemaEvolution holds the registered migrations for one database
type SchemaEvolution struct {
	migrations []Migration
	now        func() time.Time
}

// NewSchemaEvolution creates an empty migration set
func NewSchemaEvolution() *SchemaEvolution {
	return &SchemaEvolution{now: time.Now}
}

// RegisterMigration adds a single-step migration
func (s *SchemaEvolution) RegisterMigration(migration Migration) error {
	if migration.ToVersion != migration.FromVersion+1 {
		return fmt.Errorf("invalid migration %d->%d: steps must advance one version",
			migration.FromVersion, migration.ToVersion)
	}
	if migration.Up == nil {
		return fmt.Errorf("migration %d->%d has no Up step", migration.FromVersion, migration.ToVersion)
	}
	if s.findMigration(migration.FromVersion, migration.ToVersion) != nil {
		return fmt.Errorf("migration from %d to %d already exists",
			migration.FromVersion, migration.ToVersion)
	}
	s.migrations = append(s.migrations, migration)
	sort.Slice(s.migrations, func(i, j int) bool {
		return s.migrations[i].ToVersion < s.migrations[j].ToVersion
	})
	return nil
}

// Latest is the highest version any registered migration reaches
func (s *SchemaEvolution) Latest() int {
	if len(s.migrations) == 0 {
		return 0
	}
	return s.migrations[len(s.migrations)-1].ToVersion
}

// CurrentVersion reads the version stored in the database
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Migrate brings the database to targetVersion, one transaction per step
func (s *SchemaEvolution) Migrate(ctx context.Context, db *sql.DB, targetVersion int) error {
	if _, err := db.ExecContext(ctx, historyTable); err != nil {
		return fmt.Errorf("create schema history: %w", err)
	}
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for current < targetVersion {
		m := s.findMigration(current, current+1)
		if m == nil {
			return fmt.Errorf("no migration found from version %d to %d", current, current+1)
		}
		if err := s.apply(ctx, db, m.Up, m.ToVersion, m.Description); err != nil {
			return fmt.Errorf("migration %d->%d failed: %w", m.FromVersion, m.ToVersion, err)
		}
		current = m.ToVersion
	}

	for current > targetVersion {
		m := s.findMigration(current-1, current)
		if m == nil {
			return fmt.Errorf("no rollback found from version %d to %d", current, current-1)
		}
		if m.Down == nil {
			return fmt.Errorf("migration %d->%d does not support rollback", m.FromVersion, m.ToVersion)
		}
		if err := s.apply(ctx, db, m.Down, m.FromVersion, "rollback: "+m.Description); err != nil {
			return fmt.Errorf("rollback %d->%d failed: %w", m.ToVersion, m.FromVersion, err)
		}
		current = m.FromVersion
	}
	return nil
}

func (s *SchemaEvolution) apply(ctx context.Context, db *sql.DB, step MigrationFunc, version int, description string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := step(ctx, tx); err != nil {
		return err
	}
	// pragmas take no bind parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_history (version, description, applied_at) VALUES (?, ?, ?)`,
		version, description, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SchemaEvolution) findMigration(from, to int) *Migration {
	for i := range s.migrations {
		if s.migrations[i].FromVersion == from && s.migrations[i].ToVersion == to {
			return &s.migrations[i]
		}
	}
	return nil
}

// History lists applied steps, oldest first
func History(ctx context.Context, db *sql.DB) ([]SchemaVersion, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, description, applied_at FROM schema_history ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SchemaVersion
	for rows.Next() {
		var (
			v       SchemaVersion
			applied string
		)
		if err := rows.Scan(&v.Version, &v.Description, &applied); err != nil {
			return nil, err
		}
		v.AppliedAt, _ = time.Parse(time.RFC3339Nano, applied)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Exec builds a MigrationFunc from plain statements
func Exec(statements ...string) MigrationFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
