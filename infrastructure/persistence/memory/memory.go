// Package memory provides in-process snapshot storage for tests, demos and
// the headless editor.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// Store is a revisioned in-memory ports.SnapshotStore. Snapshots are kept
// encoded so callers never share slices with the store.
type Store struct {
	mu    sync.RWMutex
	items map[valueobjects.OntologyIRI][]byte
	now   func() time.Time
}

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{items: make(map[valueobjects.OntologyIRI][]byte), now: time.Now}
}

// Save stores the snapshot under the next revision
func (s *Store) Save(_ context.Context, snapshot aggregates.Snapshot) (ports.SaveResult, error) {
	if snapshot.OntologyIRI.IsZero() {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot has no ontology IRI")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if prev, ok := s.items[snapshot.OntologyIRI]; ok {
		old, err := aggregates.DecodeSnapshot(prev)
		if err != nil {
			return ports.SaveResult{}, err
		}
		stored = old.Revision
	}

	result := ports.SaveResult{Revision: stored + 1, Conflict: stored != snapshot.Revision}
	snapshot.Revision = result.Revision
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = s.now().UTC()
	}
	body, err := snapshot.Encode()
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}
	s.items[snapshot.OntologyIRI] = body
	return result, nil
}

// Load returns the stored snapshot
func (s *Store) Load(_ context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	s.mu.RLock()
	body, ok := s.items[iri]
	s.mu.RUnlock()
	if !ok {
		return aggregates.Snapshot{}, pkgerrors.NewNotFoundError("ontology " + iri.String())
	}
	return aggregates.DecodeSnapshot(body)
}

// Rename changes the stored label
func (s *Store) Rename(_ context.Context, iri valueobjects.OntologyIRI, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.items[iri]
	if !ok {
		return pkgerrors.NewNotFoundError("ontology " + iri.String())
	}
	snapshot, err := aggregates.DecodeSnapshot(body)
	if err != nil {
		return err
	}
	snapshot.Label = label
	updated, err := snapshot.Encode()
	if err != nil {
		return pkgerrors.NewInternalError("re-encode snapshot").WithCause(err)
	}
	s.items[iri] = updated
	return nil
}

// Delete removes the snapshot
func (s *Store) Delete(_ context.Context, iri valueobjects.OntologyIRI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, iri)
	return nil
}

// Cache is an in-memory ports.LocalCache
type Cache struct {
	mu    sync.RWMutex
	items map[valueobjects.OntologyIRI][]byte
}

var (
	_ ports.LocalCache  = (*Cache)(nil)
	_ ports.CacheLister = (*Cache)(nil)
)

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{items: make(map[valueobjects.OntologyIRI][]byte)}
}

func (c *Cache) Get(_ context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, bool, error) {
	c.mu.RLock()
	body, ok := c.items[iri]
	c.mu.RUnlock()
	if !ok {
		return aggregates.Snapshot{}, false, nil
	}
	snapshot, err := aggregates.DecodeSnapshot(body)
	if err != nil {
		return aggregates.Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (c *Cache) Put(_ context.Context, snapshot aggregates.Snapshot) error {
	body, err := snapshot.Encode()
	if err != nil {
		return pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}
	c.mu.Lock()
	c.items[snapshot.OntologyIRI] = body
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, iri valueobjects.OntologyIRI) error {
	c.mu.Lock()
	delete(c.items, iri)
	c.mu.Unlock()
	return nil
}

func (c *Cache) List(ctx context.Context) ([]ports.CacheEntry, error) {
	c.mu.RLock()
	iris := make([]valueobjects.OntologyIRI, 0, len(c.items))
	for iri := range c.items {
		iris = append(iris, iri)
	}
	c.mu.RUnlock()
	sort.Slice(iris, func(i, j int) bool { return iris[i] < iris[j] })

	entries := make([]ports.CacheEntry, 0, len(iris))
	for _, iri := range iris {
		s, ok, _ := c.Get(ctx, iri)
		if !ok {
			continue
		}
		entries = append(entries, ports.CacheEntry{
			IRI: iri, Label: s.Label, Revision: s.Revision,
			NodeCount: len(s.Nodes), EdgeCount: len(s.Edges),
		})
	}
	return entries, nil
}
