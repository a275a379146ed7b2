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

// Cache implements ports.LocalCache and ports.CacheLister
type Cache struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ ports.LocalCache  = (*Cache)(nil)
	_ ports.CacheLister = (*Cache)(nil)
)

// NewCache creates a cache on an opened database
func NewCache(db *sql.DB, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{db: db, logger: logger}
}

// Get returns the cached snapshot. A row that no longer decodes is treated
// as a miss and removed.
func (c *Cache) Get(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, bool, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT body FROM snapshot_cache WHERE iri = ?`, iri.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return aggregates.Snapshot{}, false, nil
	}
	if err != nil {
		return aggregates.Snapshot{}, false, pkgerrors.NewDatabaseError("read cache", err)
	}

	snapshot, err := aggregates.DecodeSnapshot(body)
	if err != nil {
		c.logger.Warn("Dropping unreadable cache entry", zap.String("iri", iri.String()), zap.Error(err))
		if delErr := c.Delete(ctx, iri); delErr != nil {
			c.logger.Warn("Failed to drop cache entry", zap.Error(delErr))
		}
		return aggregates.Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Put stores or replaces the snapshot
func (c *Cache) Put(ctx context.Context, snapshot aggregates.Snapshot) error {
	body, err := snapshot.Encode()
	if err != nil {
		return pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshot_cache (iri, label, revision, node_count, edge_count, body, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(iri) DO UPDATE SET
			label = excluded.label,
			revision = excluded.revision,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			body = excluded.body,
			cached_at = excluded.cached_at`,
		snapshot.OntologyIRI.String(), snapshot.Label, snapshot.Revision,
		len(snapshot.Nodes), len(snapshot.Edges), body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("write cache", err)
	}
	return nil
}

// Delete evicts the entry
func (c *Cache) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM snapshot_cache WHERE iri = ?`, iri.String()); err != nil {
		return pkgerrors.NewDatabaseError("evict cache", err)
	}
	return nil
}

// List summarises every cached ontology ordered by IRI
func (c *Cache) List(ctx context.Context) ([]ports.CacheEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT iri, label, revision, node_count, edge_count
		FROM snapshot_cache ORDER BY iri`)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list cache", err)
	}
	defer rows.Close()

	var entries []ports.CacheEntry
	for rows.Next() {
		var e ports.CacheEntry
		var iri string
		if err := rows.Scan(&iri, &e.Label, &e.Revision, &e.NodeCount, &e.EdgeCount); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan cache", err)
		}
		e.IRI = valueobjects.OntologyIRI(iri)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list cache", err)
	}
	return entries, nil
}
