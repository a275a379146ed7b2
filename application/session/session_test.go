package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"ontograph/application/editor"
	"ontograph/application/ports"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	iriA = valueobjects.OntologyIRI("http://example.org/a")
	iriB = valueobjects.OntologyIRI("http://example.org/b")
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, s aggregates.Snapshot) (ports.SaveResult, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(ports.SaveResult), args.Error(1)
}

func (m *mockStore) Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	args := m.Called(ctx, iri)
	return args.Get(0).(aggregates.Snapshot), args.Error(1)
}

func (m *mockStore) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error {
	return m.Called(ctx, iri, label).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	return m.Called(ctx, iri).Error(0)
}

type mapCache struct {
	mu    sync.Mutex
	items map[valueobjects.OntologyIRI]aggregates.Snapshot
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[valueobjects.OntologyIRI]aggregates.Snapshot)}
}

func (c *mapCache) Get(_ context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[iri]
	return s, ok, nil
}

func (c *mapCache) Put(_ context.Context, s aggregates.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[s.OntologyIRI] = s
	return nil
}

func (c *mapCache) Delete(_ context.Context, iri valueobjects.OntologyIRI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, iri)
	return nil
}

type fakeAutosave struct {
	mu        sync.Mutex
	suspended int
	flushes   int
	discards  int
	scheduled []valueobjects.OntologyIRI
	revisions map[valueobjects.OntologyIRI]int64
}

func newFakeAutosave() *fakeAutosave {
	return &fakeAutosave{revisions: make(map[valueobjects.OntologyIRI]int64)}
}

func (f *fakeAutosave) Schedule(key valueobjects.OntologyIRI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suspended == 0 {
		f.scheduled = append(f.scheduled, key)
	}
}
func (f *fakeAutosave) Suspend() { f.mu.Lock(); f.suspended++; f.mu.Unlock() }
func (f *fakeAutosave) Resume()  { f.mu.Lock(); f.suspended--; f.mu.Unlock() }
func (f *fakeAutosave) FlushAndWait(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}
func (f *fakeAutosave) isSuspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended > 0
}
func (f *fakeAutosave) revision(iri valueobjects.OntologyIRI) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revisions[iri]
}
func (f *fakeAutosave) Discard() { f.mu.Lock(); f.discards++; f.mu.Unlock() }
func (f *fakeAutosave) SetBaseRevision(iri valueobjects.OntologyIRI, rev int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions[iri] = rev
}
func (f *fakeAutosave) Forget(iri valueobjects.OntologyIRI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.revisions, iri)
}

type fixture struct {
	session  *Session
	editor   *editor.Editor
	store    *mockStore
	cache    *mapCache
	autosave *fakeAutosave
	states   *state.Manager
}

func newFixture(t *testing.T, cfg *config.EditorConfig, opts ...Option) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultEditorConfig()
	}
	f := &fixture{
		store:    new(mockStore),
		cache:    newMapCache(),
		autosave: newFakeAutosave(),
		states:   state.NewManager(),
	}
	f.editor = editor.NewEditor(cfg, nil, f.states, zap.NewNop(), editor.WithAutosave(f.autosave))
	f.session = NewSession(f.editor, f.autosave, f.store, f.cache, nil, cfg, zap.NewNop(), opts...)
	return f
}

func snapshotWith(iri valueobjects.OntologyIRI, revision int64, labels ...string) aggregates.Snapshot {
	s := aggregates.EmptySnapshot(iri, "Ontology")
	s.Revision = revision
	for i, l := range labels {
		s.Nodes = append(s.Nodes, entities.NodeRecord{
			ID:       valueobjects.MustElementID(l),
			Type:     entities.NodeKindClass,
			Label:    l,
			Position: valueobjects.MustPosition(float64(i*100), 0),
		})
	}
	return s
}

func labels(ed *editor.Editor) []string {
	var out []string
	for _, n := range ed.Nodes() {
		out = append(out, n.Label())
	}
	return out
}

func TestSession_SelectLoadsFromBackendOnCacheMiss(t *testing.T) {
	// Arrange
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 4, "Vehicle", "Engine"), nil).Once()

	// Act
	err := f.session.Select(context.Background(), Selected{IRI: iriA, Label: "Vehicles", ProjectID: "p1"})

	// Assert
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Vehicle", "Engine"}, labels(f.editor))
	st := f.states.Get()
	assert.Equal(t, iriA, st.ActiveIRI)
	assert.Equal(t, "Vehicles", st.ActiveLabel)
	assert.Equal(t, "p1", st.ProjectID)
	assert.False(t, st.AutosaveSuspended)
	assert.Equal(t, int64(4), f.autosave.revisions[iriA])
	assert.Empty(t, f.autosave.scheduled)
	assert.False(t, f.editor.CanUndo())

	cached, ok, _ := f.cache.Get(context.Background(), iriA)
	require.True(t, ok)
	assert.Equal(t, int64(4), cached.Revision)
}

func TestSession_SelectShowsCacheThenBackend(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 2, "Fresh"), nil).Once()

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()

	assert.Equal(t, []string{"Fresh"}, labels(f.editor))
	assert.Equal(t, int64(2), f.autosave.revisions[iriA])
}

func TestSession_BackendDoesNotOverwriteLocalEdits(t *testing.T) {
	// Arrange
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	release := make(chan time.Time)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 2, "Fresh"), nil).WaitUntil(release).Once()

	// Act
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	_, ok := f.editor.AddClass("Typed While Loading", valueobjects.MustPosition(0, 0))
	require.True(t, ok)
	close(release)
	f.session.Wait()

	// Assert
	assert.ElementsMatch(t, []string{"Cached", "Typed While Loading"}, labels(f.editor))
	assert.Equal(t, []valueobjects.OntologyIRI{iriA}, f.autosave.scheduled)
}

func TestSession_RefreshIsAppliedThroughDispatcher(t *testing.T) {
	// Arrange
	posted := make(chan func(), 1)
	f := newFixture(t, nil, WithDispatcher(func(fn func()) { posted <- fn }))
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 2, "Fresh"), nil).Once()

	// Act
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()
	require.Equal(t, []string{"Cached"}, labels(f.editor))
	(<-posted)()

	// Assert
	assert.Equal(t, []string{"Fresh"}, labels(f.editor))
	assert.Equal(t, int64(2), f.autosave.revision(iriA))
	assert.False(t, f.editor.CanUndo())
}

func TestSession_EditBeforeRefreshAppliesIsKept(t *testing.T) {
	// Arrange: the backend copy has arrived but is not applied yet
	posted := make(chan func(), 1)
	f := newFixture(t, nil, WithDispatcher(func(fn func()) { posted <- fn }))
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 2, "Fresh"), nil).Once()
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()
	apply := <-posted

	// Act
	_, ok := f.editor.AddClass("Typed After Fetch", valueobjects.MustPosition(0, 0))
	require.True(t, ok)
	apply()

	// Assert
	assert.ElementsMatch(t, []string{"Cached", "Typed After Fetch"}, labels(f.editor))
	assert.True(t, f.editor.CanUndo())
	assert.Equal(t, int64(1), f.autosave.revision(iriA))
	assert.Equal(t, []valueobjects.OntologyIRI{iriA}, f.autosave.scheduled)
}

func TestSession_BackgroundRefreshLeavesAutosaveRunning(t *testing.T) {
	// Arrange
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	release := make(chan time.Time)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 2, "Fresh"), nil).WaitUntil(release).Once()

	// Act
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))

	// Assert: nothing is suspended while the fetch is outstanding
	assert.False(t, f.autosave.isSuspended())
	assert.False(t, f.editor.History().IsSuspended())
	st := f.states.Get()
	assert.False(t, st.AutosaveSuspended)
	assert.False(t, st.HistorySuspended)

	close(release)
	f.session.Wait()
	assert.False(t, f.autosave.isSuspended())
	assert.False(t, f.editor.History().IsSuspended())
	assert.Equal(t, []string{"Fresh"}, labels(f.editor))
}

func TestSession_RejectedRefreshKeepsCachedCopy(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	broken := snapshotWith(iriA, 2)
	broken.Edges = []entities.EdgeRecord{{
		ID: valueobjects.MustElementID("e"), Type: entities.EdgeKindObjectProperty,
		Source: valueobjects.MustElementID("missing"), Target: valueobjects.MustElementID("gone"), Predicate: "p",
	}}
	f.store.On("Load", mock.Anything, iriA).Return(broken, nil).Once()

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()

	assert.Equal(t, []string{"Cached"}, labels(f.editor))
	assert.Nil(t, f.states.Get().Banner)
	assert.Equal(t, int64(1), f.autosave.revision(iriA))
}

func TestSession_SwitchFlushesPreviousOntology(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, mock.Anything).Return(aggregates.Snapshot{}, pkgerrors.NewNotFoundError("ontology"))

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.editor.AddClass("Unsaved", valueobjects.MustPosition(0, 0))
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriB}))

	assert.Equal(t, 1, f.autosave.flushes)
	assert.Equal(t, 0, f.autosave.discards)
	assert.Equal(t, iriB, f.editor.ActiveIRI())
	assert.Empty(t, f.editor.Nodes())
}

func TestSession_SwitchDiscardPolicy(t *testing.T) {
	cfg := config.DefaultEditorConfig()
	cfg.SwitchPolicy = config.SwitchPolicyDiscard
	f := newFixture(t, cfg)
	f.store.On("Load", mock.Anything, mock.Anything).Return(aggregates.Snapshot{}, pkgerrors.NewNotFoundError("ontology"))

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriB}))

	assert.Equal(t, 0, f.autosave.flushes)
	assert.Equal(t, 1, f.autosave.discards)
}

func TestSession_ReselectingActiveOntologyKeepsGraph(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 1, "Vehicle"), nil).Once()
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA, Label: "Old"}))

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA, Label: "New"}))

	f.store.AssertNumberOfCalls(t, "Load", 1)
	assert.Equal(t, "New", f.states.Get().ActiveLabel)
	assert.Equal(t, []string{"Vehicle"}, labels(f.editor))
}

func TestSession_MalformedSnapshotOpensEmptyWithBanner(t *testing.T) {
	f := newFixture(t, nil)
	broken := aggregates.EmptySnapshot(iriA, "Broken")
	broken.Edges = []entities.EdgeRecord{{
		ID: valueobjects.MustElementID("e"), Type: entities.EdgeKindObjectProperty,
		Source: valueobjects.MustElementID("missing"), Target: valueobjects.MustElementID("gone"), Predicate: "p",
	}}
	f.store.On("Load", mock.Anything, iriA).Return(broken, nil).Once()

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))

	assert.True(t, f.editor.IsActive())
	assert.Empty(t, f.editor.Nodes())
	assert.Empty(t, f.editor.Edges())
	banner := f.states.Get().Banner
	require.NotNil(t, banner)
	assert.Equal(t, ports.SeverityError, banner.Severity)
}

func TestSession_BackendUnavailableKeepsCachedCopy(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 1, "Cached")))
	f.store.On("Load", mock.Anything, iriA).Return(aggregates.Snapshot{}, pkgerrors.NewUnavailableError("backend")).Once()

	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()

	assert.Equal(t, []string{"Cached"}, labels(f.editor))
}

func TestSession_DeleteActiveDiscardsAndEvicts(t *testing.T) {
	// Arrange
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriA, 3, "Vehicle")))
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 3, "Vehicle"), nil).Once()
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))
	f.session.Wait()

	// Act
	require.NoError(t, f.session.Delete(context.Background(), Deleted{IRI: iriA}))

	// Assert
	assert.Equal(t, 1, f.autosave.discards)
	assert.Equal(t, 0, f.autosave.flushes)
	assert.False(t, f.editor.IsActive())
	assert.True(t, f.states.Get().ActiveIRI.IsZero())
	_, ok, _ := f.cache.Get(context.Background(), iriA)
	assert.False(t, ok)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSession_DeleteInactiveOnlyEvicts(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Put(context.Background(), snapshotWith(iriB, 1)))

	require.NoError(t, f.session.Delete(context.Background(), Deleted{IRI: iriB}))

	assert.Equal(t, 0, f.autosave.discards)
	_, ok, _ := f.cache.Get(context.Background(), iriB)
	assert.False(t, ok)
}

func TestSession_RenameActive(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 1, "Vehicle"), nil).Once()
	f.store.On("Rename", mock.Anything, iriA, "Transport").Return(nil).Once()
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA, Label: "Vehicles"}))
	version := f.editor.Version()

	require.NoError(t, f.session.Rename(context.Background(), Renamed{IRI: iriA, Label: "Transport"}))

	assert.Equal(t, "Transport", f.states.Get().ActiveLabel)
	snap, err := f.editor.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Transport", snap.Label)
	assert.Equal(t, version, f.editor.Version())
	cached, _, _ := f.cache.Get(context.Background(), iriA)
	assert.Equal(t, "Transport", cached.Label)
	f.store.AssertExpectations(t)
}

func TestSession_Reset(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 1, "Vehicle"), nil).Once()
	require.NoError(t, f.session.Select(context.Background(), Selected{IRI: iriA}))

	require.NoError(t, f.session.Reset(context.Background()))

	assert.Equal(t, 1, f.autosave.flushes)
	assert.False(t, f.editor.IsActive())
	assert.True(t, f.states.Get().ActiveIRI.IsZero())
}

func TestSession_HandleJSON(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Load", mock.Anything, iriA).Return(snapshotWith(iriA, 1, "Vehicle"), nil).Once()

	err := f.session.HandleJSON(context.Background(),
		[]byte(`{"type":"ontology:selected","payload":{"iri":"http://example.org/a","label":"Vehicles"}}`))

	require.NoError(t, err)
	assert.Equal(t, iriA, f.editor.ActiveIRI())
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Event
		wantErr bool
	}{
		{name: "selected", input: `{"type":"ontology:selected","payload":{"iri":"urn:a","label":"A","projectId":"p"}}`, want: Selected{IRI: "urn:a", Label: "A", ProjectID: "p"}},
		{name: "reset without payload", input: `{"type":"ontology:reset"}`, want: Reset{}},
		{name: "renamed", input: `{"type":"ontology:renamed","payload":{"iri":"urn:a","label":"B"}}`, want: Renamed{IRI: "urn:a", Label: "B"}},
		{name: "deleted", input: `{"type":"ontology:deleted","payload":{"iri":"urn:a"}}`, want: Deleted{IRI: "urn:a"}},
		{name: "missing iri", input: `{"type":"ontology:selected","payload":{"label":"A"}}`, wantErr: true},
		{name: "rename without label", input: `{"type":"ontology:renamed","payload":{"iri":"urn:a"}}`, wantErr: true},
		{name: "missing payload", input: `{"type":"ontology:deleted"}`, wantErr: true},
		{name: "unknown type", input: `{"type":"ontology:exploded","payload":{}}`, wantErr: true},
		{name: "not json", input: `ontology`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeEvent_RoundTrip(t *testing.T) {
	data, err := EncodeEvent(Renamed{IRI: iriA, Label: "Transport"})
	require.NoError(t, err)

	ev, err := DecodeEvent(data)

	require.NoError(t, err)
	assert.Equal(t, Renamed{IRI: iriA, Label: "Transport"}, ev)
}
