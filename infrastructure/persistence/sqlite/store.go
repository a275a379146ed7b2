package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"go.uber.org/zap"
)

// Store implements ports.SnapshotStore with a revision counter per ontology
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore creates a store on an opened database
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Save replaces the stored snapshot and increments its revision. Conflict is
// set when the stored revision differs from snapshot.Revision.
func (s *Store) Save(ctx context.Context, snapshot aggregates.Snapshot) (ports.SaveResult, error) {
	if snapshot.OntologyIRI.IsZero() {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot has no ontology IRI")
	}
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("begin save", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var stored int64
	err = tx.QueryRowContext(ctx, `SELECT revision FROM snapshots WHERE iri = ?`, snapshot.OntologyIRI.String()).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("read revision", err)
	}

	result := ports.SaveResult{Revision: stored + 1, Conflict: stored != snapshot.Revision}
	snapshot.Revision = result.Revision
	body, err := snapshot.Encode()
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (iri, label, revision, saved_at, saved_by, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(iri) DO UPDATE SET
			label = excluded.label,
			revision = excluded.revision,
			saved_at = excluded.saved_at,
			saved_by = excluded.saved_by,
			body = excluded.body`,
		snapshot.OntologyIRI.String(), snapshot.Label, result.Revision,
		snapshot.SavedAt.Format(time.RFC3339Nano), snapshot.SavedBy, body,
	)
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("write snapshot", err)
	}
	if err := tx.Commit(); err != nil {
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("commit snapshot", err)
	}

	s.logger.Debug("Saved snapshot to SQLite",
		zap.String("iri", snapshot.OntologyIRI.String()),
		zap.Int64("revision", result.Revision),
		zap.Bool("conflict", result.Conflict),
	)
	return result, nil
}

// Load returns the stored snapshot
func (s *Store) Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	var label string
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT label, body FROM snapshots WHERE iri = ?`, iri.String()).Scan(&label, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return aggregates.Snapshot{}, pkgerrors.NewNotFoundError("ontology " + iri.String())
	}
	if err != nil {
		return aggregates.Snapshot{}, pkgerrors.NewDatabaseError("read snapshot", err)
	}
	snapshot, err := aggregates.DecodeSnapshot(body)
	if err != nil {
		return aggregates.Snapshot{}, err
	}
	snapshot.Label = label
	return snapshot, nil
}

// Rename updates the stored label
func (s *Store) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE snapshots SET label = ? WHERE iri = ?`, label, iri.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("rename ontology", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.NewNotFoundError("ontology " + iri.String())
	}
	return nil
}

// Delete removes the snapshot
func (s *Store) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE iri = ?`, iri.String()); err != nil {
		return pkgerrors.NewDatabaseError("delete ontology", err)
	}
	return nil
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return pkgerrors.NewDatabaseError("ping", err)
	}
	return nil
}
