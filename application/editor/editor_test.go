package editor

import (
	"testing"
	"time"

	"ontograph/application/ports"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/provenance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testIRI = valueobjects.OntologyIRI("http://example.org/vehicles")

type recordingRenderer struct {
	caps     ports.Capabilities
	added    []valueobjects.ElementID
	created  []valueobjects.ElementID
	removed  []valueobjects.ElementID
	changed  []valueobjects.ElementID
	selected [][]valueobjects.ElementID
	redraws  int
}

func (r *recordingRenderer) Capabilities() ports.Capabilities { return r.caps }
func (r *recordingRenderer) OnNodeAdded(n *entities.Node)     { r.added = append(r.added, n.ID()) }
func (r *recordingRenderer) OnEdgeCreated(e *entities.Edge)   { r.created = append(r.created, e.ID()) }
func (r *recordingRenderer) OnElementRemoved(id valueobjects.ElementID) {
	r.removed = append(r.removed, id)
}
func (r *recordingRenderer) OnElementChanged(id valueobjects.ElementID) {
	r.changed = append(r.changed, id)
}
func (r *recordingRenderer) OnSelectionChanged(ids []valueobjects.ElementID) {
	r.selected = append(r.selected, ids)
}
func (r *recordingRenderer) RequestRedraw() { r.redraws++ }

type countingAutosave struct {
	keys []valueobjects.OntologyIRI
}

func (c *countingAutosave) Schedule(key valueobjects.OntologyIRI) {
	c.keys = append(c.keys, key)
}

type fixture struct {
	editor   *Editor
	renderer *recordingRenderer
	autosave *countingAutosave
	states   *state.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		renderer: &recordingRenderer{caps: ports.Capabilities{ConnectionHandles: true}},
		autosave: &countingAutosave{},
		states:   state.NewManager(),
	}
	tracker := provenance.NewTracker(provenance.FixedClock{At: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}, provenance.StaticIdentity("tester"))
	f.editor = NewEditor(config.DefaultEditorConfig(), nil, f.states, zap.NewNop(),
		WithRenderer(f.renderer), WithAutosave(f.autosave), WithTracker(tracker))
	require.NoError(t, f.editor.Load(aggregates.EmptySnapshot(testIRI, "Vehicles")))
	return f
}

func pos(x, y float64) valueobjects.Position {
	return valueobjects.MustPosition(x, y)
}

func TestEditor_ConnectTwoClasses(t *testing.T) {
	// Arrange
	f := newFixture(t)
	vehicle, ok := f.editor.AddClass("Vehicle", pos(100, 100))
	require.True(t, ok)
	engine, ok := f.editor.AddClass("Engine", pos(300, 100))
	require.True(t, ok)

	// Act
	edge, ok := f.editor.AddEdge(aggregates.EdgeSpec{
		Kind:      entities.EdgeKindObjectProperty,
		SourceID:  vehicle.ID(),
		TargetID:  engine.ID(),
		Predicate: "relatedTo",
	})

	// Assert
	require.True(t, ok)
	assert.Equal(t, "relatedTo", edge.Predicate())
	assert.Nil(t, edge.Multiplicity().Min())
	assert.Nil(t, edge.Multiplicity().Max())
	assert.Len(t, f.editor.Edges(), 1)
	assert.Equal(t, []valueobjects.ElementID{edge.ID()}, f.renderer.created)
	assert.Len(t, f.autosave.keys, 3)
	assert.Equal(t, testIRI, f.autosave.keys[2])
	assert.Equal(t, 3, f.editor.History().UndoDepth())
}

func TestEditor_AddDataPropertyFromClass(t *testing.T) {
	f := newFixture(t)
	vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 100))

	dp, ok := f.editor.AddDataProperty(vehicle.ID(), "", nil)

	require.True(t, ok)
	assert.Equal(t, entities.NodeKindDataProperty, dp.Kind())
	assert.Equal(t, "Data Property 1", dp.Label())
	assert.Equal(t, vehicle.ID(), dp.OwnerID())
	assert.Equal(t, 220.0, dp.Position().X())
	assert.Equal(t, 100.0, dp.Position().Y())

	second, ok := f.editor.AddDataProperty(vehicle.ID(), "", nil)
	require.True(t, ok)
	assert.Equal(t, "Data Property 2", second.Label())
}

func TestEditor_DataPropertyNeedsClassOwner(t *testing.T) {
	f := newFixture(t)
	note, _ := f.editor.AddNote("hello", valueobjects.NoteTypeComment, pos(0, 0))

	_, ok := f.editor.AddDataProperty(note.ID(), "", nil)

	assert.False(t, ok)
	assert.Len(t, f.editor.Nodes(), 1)
}

func TestEditor_MultiplicityPresetAndUndo(t *testing.T) {
	// Arrange
	f := newFixture(t)
	vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 100))
	engine, _ := f.editor.AddClass("Engine", pos(300, 100))
	edge, _ := f.editor.AddEdge(aggregates.EdgeSpec{
		Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "relatedTo",
	})

	// Act
	require.True(t, f.editor.SetMultiplicityPreset(edge.ID(), valueobjects.PresetOneOrMany))
	updated, _ := f.editor.LookupEdge(edge.ID())

	// Assert
	require.NotNil(t, updated.Multiplicity().Min())
	assert.Equal(t, 1, *updated.Multiplicity().Min())
	assert.Nil(t, updated.Multiplicity().Max())
	assert.Equal(t, "1..*", updated.Multiplicity().Label())

	require.True(t, f.editor.Undo())
	reverted, _ := f.editor.LookupEdge(edge.ID())
	assert.Nil(t, reverted.Multiplicity().Min())
	assert.Nil(t, reverted.Multiplicity().Max())
	assert.True(t, f.editor.CanRedo())
	assert.Contains(t, f.renderer.changed, edge.ID())
}

func TestEditor_NoteToEdgeIsRejected(t *testing.T) {
	f := newFixture(t)
	vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 100))
	engine, _ := f.editor.AddClass("Engine", pos(300, 100))
	edge, _ := f.editor.AddEdge(aggregates.EdgeSpec{
		Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "relatedTo",
	})
	note, _ := f.editor.AddNote("check", valueobjects.NoteTypeTodo, pos(0, 0))
	before, err := f.editor.Snapshot()
	require.NoError(t, err)
	scheduled := len(f.autosave.keys)

	ok := f.editor.CommitEdge(aggregates.EdgeSpec{
		Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: edge.ID(), Predicate: entities.NoteEdgePredicate,
	})

	assert.False(t, ok)
	after, err := f.editor.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.autosave.keys, scheduled)
}

func importedSnapshot(t *testing.T) aggregates.Snapshot {
	t.Helper()
	s := aggregates.EmptySnapshot(testIRI, "Vehicles")
	s.Nodes = []entities.NodeRecord{
		{ID: valueobjects.MustElementID("imported-thing"), Type: entities.NodeKindClass, Label: "ImportedThing", Position: pos(40, 40), Imported: true},
		{ID: valueobjects.MustElementID("local"), Type: entities.NodeKindClass, Label: "Local", Position: pos(200, 40)},
	}
	return s
}

func TestEditor_ImportedNodeIsReadOnly(t *testing.T) {
	// Arrange
	f := newFixture(t)
	require.NoError(t, f.editor.Load(importedSnapshot(t)))
	id := valueobjects.MustElementID("imported-thing")
	before, _ := f.editor.Snapshot()
	encodedBefore, err := before.Encode()
	require.NoError(t, err)

	// Act
	deleted := f.editor.Remove(id)
	dragging := f.editor.BeginDrag(id)
	moved := f.editor.Move(id, pos(400, 400))
	renamed := f.editor.Rename(id, "Mine")

	// Assert
	assert.False(t, deleted)
	assert.False(t, dragging)
	assert.False(t, moved)
	assert.False(t, renamed)
	node, ok := f.editor.LookupNode(id)
	require.True(t, ok)
	assert.Equal(t, pos(40, 40), node.Position())

	after, _ := f.editor.Snapshot()
	encodedAfter, err := after.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(encodedBefore), string(encodedAfter))
	assert.False(t, f.editor.CanUndo())
	assert.Empty(t, f.autosave.keys)
}

func TestEditor_RenameObjectPropertySetsPredicate(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantPredicate string
		wantLabel     string
	}{
		{name: "new name", input: "hasEngine", wantPredicate: "hasEngine", wantLabel: "hasEngine"},
		{name: "trimmed", input: "  drives ", wantPredicate: "drives", wantLabel: "drives"},
		{name: "blank keeps predicate", input: "  ", wantPredicate: "relatedTo", wantLabel: "relatedTo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 100))
			engine, _ := f.editor.AddClass("Engine", pos(300, 100))
			edge, ok := f.editor.AddEdge(aggregates.EdgeSpec{
				Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "relatedTo",
			})
			require.True(t, ok)

			f.editor.Rename(edge.ID(), tt.input)

			updated, _ := f.editor.LookupEdge(edge.ID())
			assert.Equal(t, tt.wantPredicate, updated.Predicate())
			assert.Equal(t, tt.wantLabel, updated.Label())
		})
	}
}

func TestEditor_LoadIfUnchanged(t *testing.T) {
	// Arrange
	f := newFixture(t)
	version := f.editor.Version()
	fresh := aggregates.EmptySnapshot(testIRI, "Vehicles")
	fresh.Nodes = []entities.NodeRecord{{
		ID: valueobjects.MustElementID("fresh"), Type: entities.NodeKindClass, Label: "Fresh", Position: pos(0, 0),
	}}

	// Act: an edit lands before the refresh
	f.editor.AddClass("Edited", pos(40, 40))
	applied, err := f.editor.LoadIfUnchanged(fresh, version)

	// Assert
	require.NoError(t, err)
	assert.False(t, applied)
	require.Len(t, f.editor.Nodes(), 1)
	assert.Equal(t, "Edited", f.editor.Nodes()[0].Label())
	assert.True(t, f.editor.CanUndo())

	applied, err = f.editor.LoadIfUnchanged(fresh, f.editor.Version())
	require.NoError(t, err)
	assert.True(t, applied)
	require.Len(t, f.editor.Nodes(), 1)
	assert.Equal(t, "Fresh", f.editor.Nodes()[0].Label())
	assert.False(t, f.editor.CanUndo())
}

func TestEditor_LoadIfUnchangedOtherOntology(t *testing.T) {
	f := newFixture(t)

	applied, err := f.editor.LoadIfUnchanged(aggregates.EmptySnapshot("http://example.org/other", "Other"), f.editor.Version())

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, testIRI, f.editor.ActiveIRI())
}

func TestEditor_LoadIsNotRecordedOrSaved(t *testing.T) {
	f := newFixture(t)
	f.editor.AddClass("Vehicle", pos(0, 0))
	require.True(t, f.editor.CanUndo())

	require.NoError(t, f.editor.Load(importedSnapshot(t)))

	assert.False(t, f.editor.CanUndo())
	assert.Len(t, f.autosave.keys, 1)
	assert.Len(t, f.editor.Nodes(), 2)
	assert.Positive(t, f.renderer.redraws)
}

func TestEditor_LoadInvalidSnapshotYieldsEmptyGraph(t *testing.T) {
	f := newFixture(t)
	s := aggregates.EmptySnapshot(testIRI, "Broken")
	s.Edges = []entities.EdgeRecord{{
		ID: valueobjects.MustElementID("dangling"), Type: entities.EdgeKindObjectProperty,
		Source: valueobjects.MustElementID("a"), Target: valueobjects.MustElementID("b"), Predicate: "p",
	}}

	err := f.editor.Load(s)

	assert.Error(t, err)
	assert.True(t, f.editor.IsActive())
	assert.Equal(t, testIRI, f.editor.ActiveIRI())
	assert.Empty(t, f.editor.Nodes())
	assert.Empty(t, f.editor.Edges())
}

func TestEditor_DragRecordsOneSnappedMove(t *testing.T) {
	// Arrange
	f := newFixture(t)
	node, _ := f.editor.AddClass("Vehicle", pos(100, 100))
	depth := f.editor.History().UndoDepth()

	// Act
	require.True(t, f.editor.BeginDrag(node.ID()))
	require.True(t, f.editor.DragTo(pos(130, 118)))
	require.True(t, f.editor.DragTo(pos(167, 143)))
	require.True(t, f.editor.EndDrag())

	// Assert
	moved, _ := f.editor.LookupNode(node.ID())
	assert.Equal(t, pos(160, 140), moved.Position())
	assert.Equal(t, depth+1, f.editor.History().UndoDepth())

	require.True(t, f.editor.Undo())
	restored, _ := f.editor.LookupNode(node.ID())
	assert.Equal(t, pos(100, 100), restored.Position())
}

func TestEditor_DragBackToStartRecordsNothing(t *testing.T) {
	f := newFixture(t)
	node, _ := f.editor.AddClass("Vehicle", pos(100, 100))
	original, _ := f.editor.LookupNode(node.ID())
	depth := f.editor.History().UndoDepth()

	f.editor.BeginDrag(node.ID())
	f.editor.DragTo(pos(180, 180))
	f.editor.DragTo(pos(102, 97))
	f.editor.EndDrag()

	after, _ := f.editor.LookupNode(node.ID())
	assert.Equal(t, original.Record(), after.Record())
	assert.Equal(t, depth, f.editor.History().UndoDepth())
}

func TestEditor_CancelDragRestoresPosition(t *testing.T) {
	f := newFixture(t)
	node, _ := f.editor.AddClass("Vehicle", pos(100, 100))

	f.editor.BeginDrag(node.ID())
	f.editor.DragTo(pos(300, 300))
	require.True(t, f.editor.CancelDrag())

	after, _ := f.editor.LookupNode(node.ID())
	assert.Equal(t, pos(100, 100), after.Position())
	assert.False(t, f.editor.IsDragging())
}

func TestEditor_RemoveSelectionIsOneEntry(t *testing.T) {
	// Arrange
	f := newFixture(t)
	vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 100))
	engine, _ := f.editor.AddClass("Engine", pos(300, 100))
	f.editor.AddDataProperty(vehicle.ID(), "wheels", nil)
	f.editor.AddEdge(aggregates.EdgeSpec{
		Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "hasEngine",
	})
	before, _ := f.editor.Snapshot()
	f.editor.Select(vehicle.ID(), engine.ID())

	// Act
	require.True(t, f.editor.RemoveSelection())

	// Assert
	assert.Empty(t, f.editor.Nodes())
	assert.Empty(t, f.editor.Edges())
	assert.Empty(t, f.editor.Selection())

	require.True(t, f.editor.Undo())
	after, _ := f.editor.Snapshot()
	assert.Equal(t, before, after)
}

func TestEditor_AddNoteForTarget(t *testing.T) {
	f := newFixture(t)
	vehicle, _ := f.editor.AddClass("Vehicle", pos(100, 200))

	note, ok := f.editor.AddNoteFor(vehicle.ID(), "needs review")

	require.True(t, ok)
	assert.Equal(t, pos(100, 100), note.Position())
	edges := f.editor.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, entities.EdgeKindNote, edges[0].Kind())
	assert.Equal(t, note.ID(), edges[0].SourceID())

	require.True(t, f.editor.Undo())
	assert.Len(t, f.editor.Nodes(), 1)
	assert.Empty(t, f.editor.Edges())
}

func TestEditor_TeardownDropsGraph(t *testing.T) {
	f := newFixture(t)
	node, _ := f.editor.AddClass("Vehicle", pos(0, 0))

	f.editor.Teardown()

	assert.False(t, f.editor.IsActive())
	assert.False(t, f.editor.CanUndo())
	assert.Contains(t, f.renderer.removed, node.ID())
	_, ok := f.editor.AddClass("Engine", pos(0, 0))
	assert.False(t, ok)
	_, err := f.editor.Snapshot()
	assert.ErrorIs(t, err, ErrNoActiveOntology)
}

func TestEditor_ProvenanceStamped(t *testing.T) {
	f := newFixture(t)

	node, _ := f.editor.AddClass("Vehicle", pos(0, 0))

	assert.Equal(t, "tester", node.Provenance().CreatedBy)
	assert.Equal(t, "tester", node.Provenance().ModifiedBy)
	assert.False(t, node.Provenance().CreatedAt.IsZero())
}
