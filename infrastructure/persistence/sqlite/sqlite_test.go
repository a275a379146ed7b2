package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testIRI = valueobjects.OntologyIRI("http://example.org/vehicles")

func openDB(t *testing.T) *Cache {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCache(db, zap.NewNop())
}

func sample(iri valueobjects.OntologyIRI, revision int64) aggregates.Snapshot {
	s := aggregates.EmptySnapshot(iri, "Vehicles")
	s.Revision = revision
	s.Nodes = []entities.NodeRecord{
		{ID: valueobjects.MustElementID("vehicle"), Type: entities.NodeKindClass, Label: "Vehicle", Position: valueobjects.MustPosition(100, 100)},
		{ID: valueobjects.MustElementID("engine"), Type: entities.NodeKindClass, Label: "Engine", Position: valueobjects.MustPosition(300, 100)},
	}
	s.Edges = []entities.EdgeRecord{
		{ID: valueobjects.MustElementID("e1"), Type: entities.EdgeKindObjectProperty, Label: "hasEngine",
			Source: valueobjects.MustElementID("vehicle"), Target: valueobjects.MustElementID("engine"), Predicate: "hasEngine"},
	}
	return s
}

func TestCache_PutGetDelete(t *testing.T) {
	// Arrange
	cache := openDB(t)
	ctx := context.Background()

	// Act
	_, hit, err := cache.Get(ctx, testIRI)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Put(ctx, sample(testIRI, 3)))
	got, hit, err := cache.Get(ctx, testIRI)

	// Assert
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(3), got.Revision)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, got.Edges, 1)

	require.NoError(t, cache.Put(ctx, sample(testIRI, 4)))
	got, _, _ = cache.Get(ctx, testIRI)
	assert.Equal(t, int64(4), got.Revision)

	require.NoError(t, cache.Delete(ctx, testIRI))
	_, hit, err = cache.Get(ctx, testIRI)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_UnreadableEntryIsMiss(t *testing.T) {
	cache := openDB(t)
	ctx := context.Background()
	_, err := cache.db.Exec(`INSERT INTO snapshot_cache (iri, label, revision, node_count, edge_count, body, cached_at)
		VALUES (?, 'x', 1, 0, 0, ?, 'now')`, testIRI.String(), []byte("{not json"))
	require.NoError(t, err)

	_, hit, err := cache.Get(ctx, testIRI)

	require.NoError(t, err)
	assert.False(t, hit)
	entries, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCache_List(t *testing.T) {
	cache := openDB(t)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, sample("http://example.org/b", 1)))
	require.NoError(t, cache.Put(ctx, sample("http://example.org/a", 7)))

	entries, err := cache.List(ctx)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, valueobjects.OntologyIRI("http://example.org/a"), entries[0].IRI)
	assert.Equal(t, int64(7), entries[0].Revision)
	assert.Equal(t, 2, entries[0].NodeCount)
	assert.Equal(t, 1, entries[0].EdgeCount)
}

func TestStore_SaveLoadRevisions(t *testing.T) {
	// Arrange
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db, zap.NewNop())
	ctx := context.Background()

	// Act
	first, err := store.Save(ctx, sample(testIRI, 0))
	require.NoError(t, err)
	second, err := store.Save(ctx, sample(testIRI, first.Revision))
	require.NoError(t, err)
	stale, err := store.Save(ctx, sample(testIRI, first.Revision))
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(1), first.Revision)
	assert.False(t, first.Conflict)
	assert.Equal(t, int64(2), second.Revision)
	assert.False(t, second.Conflict)
	assert.Equal(t, int64(3), stale.Revision)
	assert.True(t, stale.Conflict)

	loaded, err := store.Load(ctx, testIRI)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.Revision)
	assert.Len(t, loaded.Nodes, 2)
}

func TestStore_RenameAndDelete(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db, zap.NewNop())
	ctx := context.Background()

	assert.True(t, pkgerrors.IsNotFound(store.Rename(ctx, testIRI, "Cars")))

	_, err = store.Save(ctx, sample(testIRI, 0))
	require.NoError(t, err)
	require.NoError(t, store.Rename(ctx, testIRI, "Cars"))
	loaded, err := store.Load(ctx, testIRI)
	require.NoError(t, err)
	assert.Equal(t, "Cars", loaded.Label)

	require.NoError(t, store.Delete(ctx, testIRI))
	_, err = store.Load(ctx, testIRI)
	assert.True(t, pkgerrors.IsNotFound(err))
}
