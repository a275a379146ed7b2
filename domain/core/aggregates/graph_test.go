package aggregates

import (
	"errors"
	"testing"
	"time"

	"ontograph/domain/config"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/validators"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/provenance"
	pkgerrors "ontograph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestGraph(t *testing.T) *OntologyGraph {
	t.Helper()
	tracker := provenance.NewTracker(provenance.FixedClock{At: testTime}, provenance.StaticIdentity("tester"))
	return NewOntologyGraph("http://example.org/vehicles", "Vehicles", validators.NewConnectionRules(config.DefaultEditorConfig()), tracker)
}

func addClass(t *testing.T, g *OntologyGraph, id, label string, x, y float64) *entities.Node {
	t.Helper()
	n, _, err := g.AddNode(NodeSpec{
		ID:       valueobjects.MustElementID(id),
		Kind:     entities.NodeKindClass,
		Label:    label,
		Position: valueobjects.MustPosition(x, y),
	})
	require.NoError(t, err)
	return n
}

func addNote(t *testing.T, g *OntologyGraph, id, content string) *entities.Node {
	t.Helper()
	n, _, err := g.AddNode(NodeSpec{
		ID:       valueobjects.MustElementID(id),
		Kind:     entities.NodeKindNote,
		Content:  content,
		NoteType: valueobjects.NoteTypeTodo,
		Position: valueobjects.MustPosition(0, 0),
	})
	require.NoError(t, err)
	return n
}

func snapshotJSON(t *testing.T, g *OntologyGraph) string {
	t.Helper()
	data, err := g.Snapshot().Encode()
	require.NoError(t, err)
	return string(data)
}

// loadWithImported builds a graph holding an imported class and edge
func loadWithImported(t *testing.T) *OntologyGraph {
	t.Helper()
	s := EmptySnapshot("http://example.org/vehicles", "Vehicles")
	s.Nodes = []entities.NodeRecord{
		{ID: valueobjects.MustElementID("imp"), Type: entities.NodeKindClass, Label: "ImportedThing", Position: valueobjects.MustPosition(40, 40), Imported: true},
		{ID: valueobjects.MustElementID("imp2"), Type: entities.NodeKindClass, Label: "ImportedOther", Position: valueobjects.MustPosition(80, 40), Imported: true},
		{ID: valueobjects.MustElementID("local"), Type: entities.NodeKindClass, Label: "Local", Position: valueobjects.MustPosition(200, 40)},
	}
	s.Edges = []entities.EdgeRecord{
		{ID: valueobjects.MustElementID("imp-edge"), Type: entities.EdgeKindObjectProperty, Label: "uses", Source: valueobjects.MustElementID("imp"), Target: valueobjects.MustElementID("imp2"), Predicate: "uses", Imported: true},
	}
	tracker := provenance.NewTracker(provenance.FixedClock{At: testTime}, provenance.StaticIdentity("tester"))
	g, err := FromSnapshot(s, nil, tracker)
	require.NoError(t, err)
	return g
}

func TestOntologyGraph_AddNode(t *testing.T) {
	g := newTestGraph(t)

	node, change, err := g.AddNode(NodeSpec{Kind: entities.NodeKindClass, Label: "Vehicle", Position: valueobjects.MustPosition(100, 100)})

	require.NoError(t, err)
	assert.False(t, node.ID().IsZero())
	assert.True(t, node.ID().IsUUID())
	assert.Equal(t, 1, g.NodeCount())
	require.Len(t, change.Elements, 1)
	assert.True(t, change.Elements[0].Created())
	assert.Equal(t, "tester", node.Provenance().CreatedBy)
	assert.Equal(t, testTime, node.Provenance().CreatedAt)
	assert.Len(t, g.GetUncommittedEvents(), 1)
}

func TestOntologyGraph_AddNodeRejects(t *testing.T) {
	g := newTestGraph(t)
	addClass(t, g, "vehicle", "Vehicle", 0, 0)
	note := addNote(t, g, "note", "check this")

	tests := []struct {
		name string
		spec NodeSpec
		want *pkgerrors.DomainError
	}{
		{name: "duplicate id", spec: NodeSpec{ID: valueobjects.MustElementID("vehicle"), Kind: entities.NodeKindClass}, want: pkgerrors.ErrDuplicateID},
		{name: "unknown kind", spec: NodeSpec{Kind: "widget"}, want: pkgerrors.ErrInvalidNodeKind},
		{name: "data property without owner", spec: NodeSpec{Kind: entities.NodeKindDataProperty}, want: pkgerrors.ErrInvalidOwner},
		{name: "data property owned by note", spec: NodeSpec{Kind: entities.NodeKindDataProperty, OwnerID: note.ID()}, want: pkgerrors.ErrInvalidOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := snapshotJSON(t, g)
			_, change, err := g.AddNode(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.True(t, change.IsEmpty())
			assert.Equal(t, before, snapshotJSON(t, g))
		})
	}
}

func TestOntologyGraph_ConnectClasses(t *testing.T) {
	// Arrange
	g := newTestGraph(t)
	vehicle := addClass(t, g, "vehicle", "Vehicle", 100, 100)
	engine := addClass(t, g, "engine", "Engine", 300, 100)

	// Act
	edge, _, err := g.AddEdge(EdgeSpec{
		Kind:      entities.EdgeKindObjectProperty,
		SourceID:  vehicle.ID(),
		TargetID:  engine.ID(),
		Predicate: "relatedTo",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "relatedTo", edge.Predicate())
	assert.Equal(t, "relatedTo", edge.Label())
	assert.Nil(t, edge.Multiplicity().Min())
	assert.Nil(t, edge.Multiplicity().Max())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestOntologyGraph_ObjectPropertyTypeInvariant(t *testing.T) {
	g := newTestGraph(t)
	class := addClass(t, g, "c1", "Class", 0, 0)
	note := addNote(t, g, "n1", "note")
	dp, _, err := g.AddNode(NodeSpec{ID: valueobjects.MustElementID("dp"), Kind: entities.NodeKindDataProperty, Label: "dp", OwnerID: class.ID()})
	require.NoError(t, err)

	pairs := [][2]valueobjects.ElementID{
		{class.ID(), note.ID()},
		{note.ID(), class.ID()},
		{class.ID(), dp.ID()},
		{dp.ID(), class.ID()},
		{class.ID(), valueobjects.MustElementID("missing")},
	}
	for _, p := range pairs {
		before := snapshotJSON(t, g)
		_, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: p[0], TargetID: p[1], Predicate: "relatedTo"})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDomainValidation(err), "%s -> %s", p[0], p[1])
		assert.Equal(t, before, snapshotJSON(t, g))
	}
}

func TestOntologyGraph_NoteEdgeRules(t *testing.T) {
	g := newTestGraph(t)
	class := addClass(t, g, "c1", "Class", 0, 0)
	note := addNote(t, g, "n1", "note")
	other := addNote(t, g, "n2", "other")

	_, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: class.ID()})
	require.NoError(t, err)

	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: class.ID(), TargetID: note.ID()})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidEndpoint))

	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: other.ID()})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidEndpoint))
}

func TestOntologyGraph_NoteCannotTargetEdge(t *testing.T) {
	g := newTestGraph(t)
	a := addClass(t, g, "a", "A", 0, 0)
	b := addClass(t, g, "b", "B", 100, 0)
	note := addNote(t, g, "n", "about the edge")
	edge, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: a.ID(), TargetID: b.ID(), Predicate: "relatedTo"})
	require.NoError(t, err)
	before := snapshotJSON(t, g)

	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: edge.ID()})

	require.Error(t, err)
	assert.Equal(t, before, snapshotJSON(t, g))
}

func TestOntologyGraph_RemoveClassCascades(t *testing.T) {
	g := newTestGraph(t)
	vehicle := addClass(t, g, "vehicle", "Vehicle", 0, 0)
	engine := addClass(t, g, "engine", "Engine", 200, 0)
	_, _, err := g.AddNode(NodeSpec{ID: valueobjects.MustElementID("wheels"), Kind: entities.NodeKindDataProperty, Label: "wheels", OwnerID: vehicle.ID()})
	require.NoError(t, err)
	note := addNote(t, g, "note", "about wheels")
	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: valueobjects.MustElementID("wheels")})
	require.NoError(t, err)
	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "hasEngine"})
	require.NoError(t, err)
	before := snapshotJSON(t, g)

	change, err := g.RemoveElement(vehicle.ID())

	require.NoError(t, err)
	assert.Len(t, change.Elements, 4)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	require.NoError(t, g.Validate())

	require.NoError(t, g.Apply(change, Backward))
	assert.Equal(t, before, snapshotJSON(t, g))
	require.NoError(t, g.Validate())
}

func TestOntologyGraph_RemoveMissing(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.RemoveElement(valueobjects.MustElementID("nope"))
	assert.True(t, errors.Is(err, pkgerrors.ErrElementNotFound))
}

func TestOntologyGraph_UpdateAttrs(t *testing.T) {
	g := newTestGraph(t)
	a := addClass(t, g, "a", "A", 0, 0)
	b := addClass(t, g, "b", "B", 100, 0)
	edge, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: a.ID(), TargetID: b.ID(), Predicate: "relatedTo"})
	require.NoError(t, err)

	t.Run("relabel class", func(t *testing.T) {
		label := "Automobile"
		change, err := g.UpdateAttrs(a.ID(), AttrPatch{Label: &label})
		require.NoError(t, err)
		assert.Len(t, change.Elements, 1)
		n, _ := g.Node(a.ID())
		assert.Equal(t, "Automobile", n.Label())
	})

	t.Run("re-predicate edge keeps label in step", func(t *testing.T) {
		predicate := "drives"
		_, err := g.UpdateAttrs(edge.ID(), AttrPatch{Predicate: &predicate})
		require.NoError(t, err)
		e, _ := g.Edge(edge.ID())
		assert.Equal(t, "drives", e.Predicate())
		assert.Equal(t, "drives", e.Label())
	})

	t.Run("predicate on node is rejected", func(t *testing.T) {
		predicate := "x"
		_, err := g.UpdateAttrs(a.ID(), AttrPatch{Predicate: &predicate})
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidPatch))
	})

	t.Run("no-op patch yields empty change", func(t *testing.T) {
		label := "Automobile"
		change, err := g.UpdateAttrs(a.ID(), AttrPatch{Label: &label})
		require.NoError(t, err)
		assert.True(t, change.IsEmpty())
	})

	t.Run("note content drives label", func(t *testing.T) {
		note := addNote(t, g, "n", "first")
		content := "Line one\nline two"
		_, err := g.UpdateAttrs(note.ID(), AttrPatch{Content: &content})
		require.NoError(t, err)
		n, _ := g.Node(note.ID())
		assert.Equal(t, "Line one", n.Label())
		assert.Equal(t, content, n.Content())
	})
}

func TestOntologyGraph_SetMultiplicityUndo(t *testing.T) {
	g := newTestGraph(t)
	vehicle := addClass(t, g, "vehicle", "Vehicle", 100, 100)
	engine := addClass(t, g, "engine", "Engine", 300, 100)
	edge, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "relatedTo"})
	require.NoError(t, err)

	m, err := valueobjects.MultiplicityFromPreset(valueobjects.PresetOneOrMany)
	require.NoError(t, err)
	change, err := g.SetMultiplicity(edge.ID(), m)
	require.NoError(t, err)

	e, _ := g.Edge(edge.ID())
	assert.Equal(t, 1, *e.Multiplicity().Min())
	assert.Nil(t, e.Multiplicity().Max())
	assert.Equal(t, "1..*", e.Multiplicity().Label())

	require.NoError(t, g.Apply(change, Backward))
	e, _ = g.Edge(edge.ID())
	assert.True(t, e.Multiplicity().IsUnbounded())
}

func TestOntologyGraph_NoteEdgeHasNoMultiplicity(t *testing.T) {
	g := newTestGraph(t)
	class := addClass(t, g, "c", "C", 0, 0)
	note := addNote(t, g, "n", "x")
	edge, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: class.ID()})
	require.NoError(t, err)

	m, _ := valueobjects.MultiplicityFromPreset(valueobjects.PresetMany)
	_, err = g.SetMultiplicity(edge.ID(), m)
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidPatch))
}

func TestOntologyGraph_Reconnect(t *testing.T) {
	g := newTestGraph(t)
	a := addClass(t, g, "a", "A", 0, 0)
	b := addClass(t, g, "b", "B", 100, 0)
	c := addClass(t, g, "c", "C", 200, 0)
	note := addNote(t, g, "n", "x")
	edge, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: a.ID(), TargetID: b.ID(), Predicate: "relatedTo"})
	require.NoError(t, err)

	_, err = g.Reconnect(edge.ID(), a.ID(), c.ID())
	require.NoError(t, err)
	e, _ := g.Edge(edge.ID())
	assert.Equal(t, c.ID(), e.TargetID())

	_, err = g.Reconnect(edge.ID(), a.ID(), note.ID())
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidEndpoint))
	e, _ = g.Edge(edge.ID())
	assert.Equal(t, c.ID(), e.TargetID())
}

func TestOntologyGraph_UndoRedoSymmetry(t *testing.T) {
	label := "Renamed"
	equivalence := true
	m, _ := valueobjects.MultiplicityFromPreset(valueobjects.PresetExactlyOne)

	ops := map[string]func(g *OntologyGraph) (Change, error){
		"add node": func(g *OntologyGraph) (Change, error) {
			_, c, err := g.AddNode(NodeSpec{Kind: entities.NodeKindClass, Label: "New", Position: valueobjects.MustPosition(5, 5)})
			return c, err
		},
		"add edge": func(g *OntologyGraph) (Change, error) {
			_, c, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: valueobjects.MustElementID("b"), TargetID: valueobjects.MustElementID("a"), Predicate: "partOf"})
			return c, err
		},
		"move": func(g *OntologyGraph) (Change, error) {
			return g.MoveNode(valueobjects.MustElementID("a"), valueobjects.MustPosition(400, 20))
		},
		"relabel": func(g *OntologyGraph) (Change, error) {
			return g.UpdateAttrs(valueobjects.MustElementID("a"), AttrPatch{Label: &label, Equivalence: &equivalence})
		},
		"multiplicity": func(g *OntologyGraph) (Change, error) {
			return g.SetMultiplicity(valueobjects.MustElementID("ab"), m)
		},
		"remove class": func(g *OntologyGraph) (Change, error) {
			return g.RemoveElement(valueobjects.MustElementID("a"))
		},
		"remove edge": func(g *OntologyGraph) (Change, error) {
			return g.RemoveElement(valueobjects.MustElementID("ab"))
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			g := newTestGraph(t)
			addClass(t, g, "a", "A", 0, 0)
			addClass(t, g, "b", "B", 100, 0)
			_, _, err := g.AddEdge(EdgeSpec{ID: valueobjects.MustElementID("ab"), Kind: entities.EdgeKindObjectProperty, SourceID: valueobjects.MustElementID("a"), TargetID: valueobjects.MustElementID("b"), Predicate: "relatedTo"})
			require.NoError(t, err)
			initial := snapshotJSON(t, g)

			change, err := op(g)
			require.NoError(t, err)
			require.False(t, change.IsEmpty())
			afterOp := snapshotJSON(t, g)

			require.NoError(t, g.Apply(change, Backward))
			assert.Equal(t, initial, snapshotJSON(t, g))

			require.NoError(t, g.Apply(change, Forward))
			assert.Equal(t, afterOp, snapshotJSON(t, g))
			assert.NoError(t, g.Validate())
		})
	}
}

func TestOntologyGraph_ImportedElementsAreImmutable(t *testing.T) {
	g := loadWithImported(t)
	imp := valueobjects.MustElementID("imp")
	impEdge := valueobjects.MustElementID("imp-edge")
	before := snapshotJSON(t, g)
	version := g.Version()

	label := "Hacked"
	predicate := "hacked"
	m, _ := valueobjects.MultiplicityFromPreset(valueobjects.PresetMany)

	attempts := map[string]func() error{
		"delete node":   func() error { _, err := g.RemoveElement(imp); return err },
		"delete edge":   func() error { _, err := g.RemoveElement(impEdge); return err },
		"move":          func() error { _, err := g.MoveNode(imp, valueobjects.MustPosition(999, 999)); return err },
		"relabel":       func() error { _, err := g.UpdateAttrs(imp, AttrPatch{Label: &label}); return err },
		"re-predicate":  func() error { _, err := g.UpdateAttrs(impEdge, AttrPatch{Predicate: &predicate}); return err },
		"reconnect":     func() error { _, err := g.Reconnect(impEdge, imp, valueobjects.MustElementID("local")); return err },
		"multiplicity":  func() error { _, err := g.SetMultiplicity(impEdge, m); return err },
		"delete target": func() error { _, err := g.RemoveElement(valueobjects.MustElementID("imp2")); return err },
	}

	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			err := attempt()
			require.Error(t, err)
			assert.True(t, errors.Is(err, pkgerrors.ErrImportedElement))
			assert.Equal(t, before, snapshotJSON(t, g))
			assert.Equal(t, version, g.Version())
		})
	}
}

func TestOntologyGraph_ImportedEndpoints(t *testing.T) {
	g := loadWithImported(t)

	// a local class may point at an imported one
	_, _, err := g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: valueobjects.MustElementID("local"), TargetID: valueobjects.MustElementID("imp"), Predicate: "extends"})
	require.NoError(t, err)

	// two imported classes may not be joined from here
	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: valueobjects.MustElementID("imp2"), TargetID: valueobjects.MustElementID("imp"), Predicate: "relatedTo"})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidEndpoint))

	// imported elements keep empty provenance
	n, _ := g.Node(valueobjects.MustElementID("imp"))
	assert.True(t, n.Provenance().IsZero())
}

func TestOntologyGraph_SnapshotRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	vehicle := addClass(t, g, "vehicle", "Vehicle", 100, 100)
	engine := addClass(t, g, "engine", "Engine", 300, 100)
	_, _, err := g.AddNode(NodeSpec{ID: valueobjects.MustElementID("dp"), Kind: entities.NodeKindDataProperty, Label: "Data Property 1", OwnerID: vehicle.ID(), Position: valueobjects.MustPosition(220, 100)})
	require.NoError(t, err)
	note := addNote(t, g, "note", "remember\nthe wheels")
	two, five := 2, 5
	m, err := valueobjects.NewMultiplicity(&two, &five)
	require.NoError(t, err)
	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindObjectProperty, SourceID: vehicle.ID(), TargetID: engine.ID(), Predicate: "hasEngine", Multiplicity: m})
	require.NoError(t, err)
	_, _, err = g.AddEdge(EdgeSpec{Kind: entities.EdgeKindNote, SourceID: note.ID(), TargetID: vehicle.ID()})
	require.NoError(t, err)

	data, err := g.Snapshot().Encode()
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)
	restored, err := FromSnapshot(decoded, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, g.Snapshot(), restored.Snapshot())
	assert.Equal(t, string(data), snapshotJSON(t, restored))
}

func TestFromSnapshot_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "malformed", json: `{"nodes": [`},
		{name: "unknown node type", json: `{"ontologyIri":"x","nodes":[{"id":"a","type":"widget","position":{"x":0,"y":0}}],"edges":[]}`},
		{name: "dangling edge", json: `{"ontologyIri":"x","nodes":[{"id":"a","type":"class","position":{"x":0,"y":0}}],"edges":[{"id":"e","type":"objectProperty","source":"a","target":"b","predicate":"p"}]}`},
		{name: "duplicate id", json: `{"ontologyIri":"x","nodes":[{"id":"a","type":"class","position":{"x":0,"y":0}},{"id":"a","type":"class","position":{"x":1,"y":0}}],"edges":[]}`},
		{name: "bad multiplicity", json: `{"ontologyIri":"x","nodes":[{"id":"a","type":"class","position":{"x":0,"y":0}}],"edges":[{"id":"e","type":"objectProperty","source":"a","target":"a","predicate":"p","minCount":3,"maxCount":1}]}`},
		{name: "orphan owner", json: `{"ontologyIri":"x","nodes":[{"id":"d","type":"dataProperty","ownerId":"gone","position":{"x":0,"y":0}}],"edges":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSnapshot([]byte(tt.json))
			if err != nil {
				return
			}
			g, err := FromSnapshot(s, nil, nil)
			assert.Error(t, err)
			assert.Nil(t, g)
		})
	}
}

func TestFromSnapshot_BlankOwnerKeepsSentinelClean(t *testing.T) {
	s := EmptySnapshot("http://example.org/x", "X")
	s.Nodes = []entities.NodeRecord{{
		ID: valueobjects.MustElementID("d"), Type: entities.NodeKindDataProperty, OwnerID: "   ",
		Position: valueobjects.MustPosition(0, 0),
	}}

	for i := 0; i < 2; i++ {
		g, err := FromSnapshot(s, nil, nil)
		require.Error(t, err)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidOwner)
	}
	assert.Nil(t, pkgerrors.ErrInvalidOwner.Cause)
	assert.Empty(t, pkgerrors.ErrInvalidOwner.Details)
}
