// Package editor owns the live ontology graph and funnels every mutation
// through history, autosave and the rendering adapter.
package editor

import (
	"errors"
	"strings"
	"sync"

	"ontograph/application/history"
	"ontograph/application/ports"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/validators"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/events"
	"ontograph/domain/provenance"
	pkgerrors "ontograph/pkg/errors"

	"go.uber.org/zap"
)

// ErrNoActiveOntology is returned when an operation needs a loaded graph
var ErrNoActiveOntology = errors.New("no active ontology")

// Autosaver is told about every committed mutation
type Autosaver interface {
	Schedule(key valueobjects.OntologyIRI)
}

// Metrics receives editor measurements
type Metrics interface {
	ObserveMutation(operation string, accepted bool)
	SetGraphSize(nodes, edges int)
	ObserveHistory(operation string)
}

// Editor is the only writer of the graph. It is driven from the UI goroutine;
// the mutex exists for the autosave goroutine that reads snapshots.
type Editor struct {
	mu      sync.Mutex
	graph   *aggregates.OntologyGraph
	drag    *dragSession
	rules   *validators.ConnectionRules
	tracker *provenance.Tracker
	cfg     *config.EditorConfig

	history  *history.Manager
	autosave Autosaver
	renderer ports.RenderingAdapter
	states   *state.Manager
	metrics  Metrics
	logger   *zap.Logger
}

// Option customises an Editor
type Option func(*Editor)

// WithAutosave attaches the persistence coordinator
func WithAutosave(a Autosaver) Option {
	return func(e *Editor) { e.autosave = a }
}

// WithRenderer attaches the rendering adapter
func WithRenderer(r ports.RenderingAdapter) Option {
	return func(e *Editor) { e.renderer = r }
}

// WithMetrics attaches a metrics sink
func WithMetrics(m Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithTracker overrides the provenance tracker
func WithTracker(t *provenance.Tracker) Option {
	return func(e *Editor) { e.tracker = t }
}

// NewEditor creates an editor with no active ontology
func NewEditor(cfg *config.EditorConfig, hist *history.Manager, states *state.Manager, logger *zap.Logger, opts ...Option) *Editor {
	if cfg == nil {
		cfg = config.DefaultEditorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hist == nil {
		hist = history.NewManager(cfg.MaxUndoDepth, logger)
	}
	if states == nil {
		states = state.NewManager()
	}
	e := &Editor{
		rules:   validators.NewConnectionRules(cfg),
		cfg:     cfg,
		history: hist,
		states:  states,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracker == nil {
		e.tracker = provenance.NewTracker(nil, nil)
	}
	return e
}

// Config returns the editor configuration
func (e *Editor) Config() *config.EditorConfig {
	return e.cfg
}

// Rules returns the connection rules in force
func (e *Editor) Rules() *validators.ConnectionRules {
	return e.rules
}

// History exposes the undo/redo manager
func (e *Editor) History() *history.Manager {
	return e.history
}

// States exposes the shared UI state
func (e *Editor) States() *state.Manager {
	return e.states
}

// Capabilities reports what the attached renderer supports
func (e *Editor) Capabilities() ports.Capabilities {
	if e.renderer == nil {
		return ports.Capabilities{}
	}
	return e.renderer.Capabilities()
}

// Graph lifecycle

// Load replaces the graph with the snapshot's contents. Loading is never
// recorded in history and does not schedule an autosave. An invalid snapshot
// leaves an empty graph for the same ontology and returns the error.
func (e *Editor) Load(snapshot aggregates.Snapshot) error {
	g, err := aggregates.FromSnapshot(snapshot, e.rules, e.tracker)
	if err != nil {
		e.logger.Warn("Rejected snapshot, starting from an empty graph",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Error(err))
		g = aggregates.NewOntologyGraph(snapshot.OntologyIRI, snapshot.Label, e.rules, e.tracker)
	}
	g.MarkEventsAsCommitted()

	e.mu.Lock()
	previous := e.graph
	e.graph = g
	e.drag = nil
	nodes, edges := g.NodeList(), g.EdgeList()
	e.mu.Unlock()

	e.history.Clear()
	e.clearSelection()
	e.replaceRendered(previous, nodes, edges)
	e.observeSize(len(nodes), len(edges))

	e.logger.Info("Loaded ontology",
		zap.String("ontology", snapshot.OntologyIRI.String()),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Int64("revision", snapshot.Revision))
	return err
}

// LoadIfUnchanged replaces the graph with snapshot only while the same
// ontology is still loaded at version. It reports whether it did. A snapshot
// that fails to build leaves the current graph alone.
func (e *Editor) LoadIfUnchanged(snapshot aggregates.Snapshot, version int) (bool, error) {
	g, err := aggregates.FromSnapshot(snapshot, e.rules, e.tracker)
	if err != nil {
		e.logger.Warn("Rejected refreshed snapshot, keeping the current graph",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Error(err))
		return false, err
	}
	g.MarkEventsAsCommitted()

	e.mu.Lock()
	if e.graph == nil || e.graph.IRI() != snapshot.OntologyIRI || e.graph.Version() != version {
		e.mu.Unlock()
		return false, nil
	}
	previous := e.graph
	e.graph = g
	e.drag = nil
	nodes, edges := g.NodeList(), g.EdgeList()
	// cleared under e.mu so no edit lands between the swap and the clear
	e.history.Clear()
	e.mu.Unlock()

	e.clearSelection()
	e.replaceRendered(previous, nodes, edges)
	e.observeSize(len(nodes), len(edges))

	e.logger.Info("Refreshed ontology",
		zap.String("ontology", snapshot.OntologyIRI.String()),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Int64("revision", snapshot.Revision))
	return true, nil
}

// Teardown drops the graph. Afterwards there is no active ontology.
func (e *Editor) Teardown() {
	e.mu.Lock()
	previous := e.graph
	e.graph = nil
	e.drag = nil
	e.mu.Unlock()

	e.history.Clear()
	e.clearSelection()
	e.replaceRendered(previous, nil, nil)
	e.observeSize(0, 0)
}

// IsActive reports whether a graph is loaded
func (e *Editor) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph != nil
}

// ActiveIRI returns the IRI of the loaded graph
func (e *Editor) ActiveIRI() valueobjects.OntologyIRI {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return ""
	}
	return e.graph.IRI()
}

// Version returns the graph's mutation counter, or -1 with no graph
func (e *Editor) Version() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return -1
	}
	return e.graph.Version()
}

// Relabel renames the active ontology. It is not undoable but is saved.
func (e *Editor) Relabel(label string) bool {
	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return false
	}
	e.graph.SetLabel(label)
	iri := e.graph.IRI()
	e.mu.Unlock()

	e.schedule(iri)
	return true
}

// Snapshot returns the full current state
func (e *Editor) Snapshot() (aggregates.Snapshot, error) {
	s, ok := e.CurrentSnapshot()
	if !ok {
		return aggregates.Snapshot{}, ErrNoActiveOntology
	}
	return s, nil
}

// CurrentSnapshot serializes the live graph for the autosave writer
func (e *Editor) CurrentSnapshot() (aggregates.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return aggregates.Snapshot{}, false
	}
	return e.graph.Snapshot(), true
}

// Queries

// LookupNode returns a copy of the node with the id
func (e *Editor) LookupNode(id valueobjects.ElementID) (*entities.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil, false
	}
	return e.graph.Node(id)
}

// LookupEdge returns a copy of the edge with the id
func (e *Editor) LookupEdge(id valueobjects.ElementID) (*entities.Edge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil, false
	}
	return e.graph.Edge(id)
}

// IsImported reports whether the element exists and is imported
func (e *Editor) IsImported(id valueobjects.ElementID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph != nil && e.graph.IsImported(id)
}

// Nodes returns copies of every node
func (e *Editor) Nodes() []*entities.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil
	}
	return e.graph.NodeList()
}

// Edges returns copies of every edge
func (e *Editor) Edges() []*entities.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil
	}
	return e.graph.EdgeList()
}

// Mutations. Each returns false when the graph rejected the change; the
// reason is logged, never surfaced.

// AddNode inserts a node and returns its copy
func (e *Editor) AddNode(spec aggregates.NodeSpec) (*entities.Node, bool) {
	var added *entities.Node
	ok := e.commit("add "+spec.Kind.String(), func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		node, change, err := g.AddNode(spec)
		added = node
		return change, err
	})
	return added, ok
}

// AddClass inserts a class node at pos
func (e *Editor) AddClass(label string, pos valueobjects.Position) (*entities.Node, bool) {
	if label == "" {
		label = e.cfg.DefaultClassLabel
	}
	return e.AddNode(aggregates.NodeSpec{Kind: entities.NodeKindClass, Label: label, Position: e.snap(pos)})
}

// AddNote inserts a note node at pos
func (e *Editor) AddNote(content string, noteType valueobjects.NoteType, pos valueobjects.Position) (*entities.Node, bool) {
	if noteType == "" {
		noteType = valueobjects.NoteType(e.cfg.DefaultNoteType)
	}
	return e.AddNode(aggregates.NodeSpec{Kind: entities.NodeKindNote, Content: content, NoteType: noteType, Position: e.snap(pos)})
}

// AddDataProperty attaches a data property to a class. An empty label gets
// the numbered default and a nil position the configured offset from the owner.
func (e *Editor) AddDataProperty(ownerID valueobjects.ElementID, label string, pos *valueobjects.Position) (*entities.Node, bool) {
	owner, ok := e.LookupNode(ownerID)
	if !ok || !e.rules.CanOwnDataProperty(owner.Kind()) {
		e.logger.Debug("Rejecting data property without class owner", zap.String("owner", ownerID.String()))
		e.observeMutation("add dataProperty", false)
		return nil, false
	}
	if label == "" {
		label = e.cfg.DataPropertyLabel(e.countNodes(entities.NodeKindDataProperty) + 1)
	}
	at := owner.Position().Translate(e.cfg.DataPropertyDX, e.cfg.DataPropertyDY)
	if pos != nil {
		at = e.snap(*pos)
	}
	return e.AddNode(aggregates.NodeSpec{
		Kind:     entities.NodeKindDataProperty,
		Label:    label,
		Position: at,
		OwnerID:  ownerID,
	})
}

// AddNoteFor creates a note near target and links it with a note edge, as
// one undoable entry
func (e *Editor) AddNoteFor(targetID valueobjects.ElementID, content string) (*entities.Node, bool) {
	target, ok := e.LookupNode(targetID)
	if !ok {
		return nil, false
	}
	var note *entities.Node
	ok = e.commit("add note", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		n, nodeChange, err := g.AddNode(aggregates.NodeSpec{
			Kind:     entities.NodeKindNote,
			Content:  content,
			NoteType: valueobjects.NoteType(e.cfg.DefaultNoteType),
			Position: target.Position().Translate(e.cfg.NoteDX, e.cfg.NoteDY),
		})
		if err != nil {
			return aggregates.Change{}, err
		}
		_, edgeChange, err := g.AddEdge(aggregates.EdgeSpec{
			Kind:      entities.EdgeKindNote,
			SourceID:  n.ID(),
			TargetID:  targetID,
			Predicate: entities.NoteEdgePredicate,
		})
		if err != nil {
			// roll the node back so the graph is untouched
			_ = g.Apply(nodeChange, aggregates.Backward)
			g.MarkEventsAsCommitted()
			return aggregates.Change{}, err
		}
		note = n
		return nodeChange.Merge(edgeChange), nil
	})
	return note, ok
}

// AddEdge inserts an edge and returns its copy
func (e *Editor) AddEdge(spec aggregates.EdgeSpec) (*entities.Edge, bool) {
	var added *entities.Edge
	ok := e.commit("add "+spec.Kind.String(), func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		edge, change, err := g.AddEdge(spec)
		added = edge
		return change, err
	})
	return added, ok
}

// CommitEdge creates the edge a completed connection describes
func (e *Editor) CommitEdge(spec aggregates.EdgeSpec) bool {
	_, ok := e.AddEdge(spec)
	return ok
}

// Remove deletes an element with its cascade
func (e *Editor) Remove(id valueobjects.ElementID) bool {
	return e.commit("delete", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		return g.RemoveElement(id)
	})
}

// RemoveSelection deletes every selected element as one undoable entry.
// Imported elements in the selection are skipped.
func (e *Editor) RemoveSelection() bool {
	selection := e.states.Get().Selection
	if len(selection) == 0 {
		return false
	}
	return e.commit("delete selection", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		var all aggregates.Change
		for _, id := range selection {
			if !g.Contains(id) {
				// already gone with an earlier cascade
				continue
			}
			change, err := g.RemoveElement(id)
			if err != nil {
				e.logger.Debug("Skipping selected element", zap.String("id", id.String()), zap.Error(err))
				continue
			}
			all = all.Merge(change)
		}
		return all, nil
	})
}

// UpdateAttrs patches labels, predicate, note payload or equivalence
func (e *Editor) UpdateAttrs(id valueobjects.ElementID, patch aggregates.AttrPatch) bool {
	if patch.IsEmpty() {
		return true
	}
	return e.commit("edit", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		return g.UpdateAttrs(id, patch)
	})
}

// Rename sets the label of a node or edge. For notes it replaces the content.
// An object property is renamed as a relation: predicate and label change in
// one undoable step.
func (e *Editor) Rename(id valueobjects.ElementID, label string) bool {
	if n, ok := e.LookupNode(id); ok && n.Kind() == entities.NodeKindNote {
		return e.UpdateAttrs(id, aggregates.AttrPatch{Content: &label})
	}
	if ed, ok := e.LookupEdge(id); ok && ed.Kind() == entities.EdgeKindObjectProperty {
		predicate := strings.TrimSpace(label)
		if predicate != "" {
			return e.UpdateAttrs(id, aggregates.AttrPatch{Label: &predicate, Predicate: &predicate})
		}
	}
	return e.UpdateAttrs(id, aggregates.AttrPatch{Label: &label})
}

// SetNoteType restyles a note
func (e *Editor) SetNoteType(id valueobjects.ElementID, noteType valueobjects.NoteType) bool {
	return e.UpdateAttrs(id, aggregates.AttrPatch{NoteType: &noteType})
}

// ToggleEquivalence flips the equivalence marker
func (e *Editor) ToggleEquivalence(id valueobjects.ElementID) bool {
	var current bool
	if n, ok := e.LookupNode(id); ok {
		current = n.IsEquivalence()
	} else if ed, ok := e.LookupEdge(id); ok {
		current = ed.IsEquivalence()
	} else {
		return false
	}
	next := !current
	return e.UpdateAttrs(id, aggregates.AttrPatch{Equivalence: &next})
}

// SetMultiplicity changes an object property's cardinality
func (e *Editor) SetMultiplicity(edgeID valueobjects.ElementID, m valueobjects.Multiplicity) bool {
	return e.commit("set multiplicity", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		return g.SetMultiplicity(edgeID, m)
	})
}

// SetMultiplicityPreset applies one of the named presets
func (e *Editor) SetMultiplicityPreset(edgeID valueobjects.ElementID, preset valueobjects.MultiplicityPreset) bool {
	m, err := valueobjects.MultiplicityFromPreset(preset)
	if err != nil {
		e.logger.Debug("Rejecting multiplicity preset", zap.String("preset", string(preset)), zap.Error(err))
		return false
	}
	return e.SetMultiplicity(edgeID, m)
}

// SetMultiplicityText parses custom text such as "2..5" and applies it
func (e *Editor) SetMultiplicityText(edgeID valueobjects.ElementID, text string) bool {
	m, err := valueobjects.ParseMultiplicity(text)
	if err != nil {
		e.logger.Debug("Rejecting multiplicity text", zap.String("text", text), zap.Error(err))
		return false
	}
	return e.SetMultiplicity(edgeID, m)
}

// Reconnect moves an edge's endpoints
func (e *Editor) Reconnect(edgeID, source, target valueobjects.ElementID) bool {
	return e.commit("reconnect", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		return g.Reconnect(edgeID, source, target)
	})
}

// Move places a node at pos as one undoable entry, snapped when enabled
func (e *Editor) Move(id valueobjects.ElementID, pos valueobjects.Position) bool {
	pos = e.snap(pos)
	return e.commit("move", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		return g.MoveNode(id, pos)
	})
}

// History

// Undo reverts the newest entry
func (e *Editor) Undo() bool {
	return e.replay("undo", e.history.Undo)
}

// Redo re-applies the newest undone entry
func (e *Editor) Redo() bool {
	return e.replay("redo", e.history.Redo)
}

// CanUndo reports whether Undo would do anything
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo would do anything
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Selection

// Select replaces the selection
func (e *Editor) Select(ids ...valueobjects.ElementID) {
	selection := append([]valueobjects.ElementID(nil), ids...)
	e.states.Set(func(s *state.EditorState) { s.Selection = selection })
	if e.renderer != nil {
		e.renderer.OnSelectionChanged(selection)
	}
}

// Selection returns the selected ids
func (e *Editor) Selection() []valueobjects.ElementID {
	return e.states.Get().Selection
}

// internals

type mutation func(g *aggregates.OntologyGraph) (aggregates.Change, error)

// commit runs op against the graph, records the change and fans out the
// resulting notifications outside the lock
func (e *Editor) commit(label string, op mutation) bool {
	return e.run(label, op, true)
}

func (e *Editor) run(label string, op mutation, record bool) bool {
	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		e.logger.Debug("Ignoring mutation without active ontology", zap.String("operation", label))
		return false
	}
	change, err := op(e.graph)
	if err != nil {
		e.graph.MarkEventsAsCommitted()
		e.mu.Unlock()
		e.reject(label, err)
		return false
	}
	if change.IsEmpty() {
		e.mu.Unlock()
		return true
	}
	notes := e.collectNotifications()
	iri := e.graph.IRI()
	nodes, edges := e.graph.NodeCount(), e.graph.EdgeCount()
	e.mu.Unlock()

	if record {
		e.history.Record(history.Entry{Label: label, Change: change})
	}
	e.afterChange(iri, change, notes, nodes, edges)
	e.observeMutation(label, true)
	return true
}

func (e *Editor) replay(op string, step func(history.Applier) (history.Entry, error)) bool {
	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return false
	}
	entry, err := step(lockedApplier{graph: e.graph})
	if err != nil {
		e.graph.MarkEventsAsCommitted()
		e.mu.Unlock()
		if !errors.Is(err, history.ErrNothingToUndo) && !errors.Is(err, history.ErrNothingToRedo) {
			e.logger.Error("History replay failed", zap.String("operation", op), zap.Error(err))
		}
		return false
	}
	notes := e.collectNotifications()
	iri := e.graph.IRI()
	nodes, edges := e.graph.NodeCount(), e.graph.EdgeCount()
	e.mu.Unlock()

	e.logger.Debug("Replayed history entry", zap.String("operation", op), zap.String("label", entry.Label))
	e.afterChange(iri, entry.Change, notes, nodes, edges)
	if e.metrics != nil {
		e.metrics.ObserveHistory(op)
	}
	return true
}

// lockedApplier applies changes to a graph whose editor lock is already held
type lockedApplier struct {
	graph *aggregates.OntologyGraph
}

func (a lockedApplier) Apply(change aggregates.Change, dir aggregates.Direction) error {
	return a.graph.Apply(change, dir)
}

// Apply moves the graph to one side of a change without recording it
func (e *Editor) Apply(change aggregates.Change, dir aggregates.Direction) error {
	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return ErrNoActiveOntology
	}
	if err := e.graph.Apply(change, dir); err != nil {
		e.mu.Unlock()
		return err
	}
	notes := e.collectNotifications()
	iri := e.graph.IRI()
	nodes, edges := e.graph.NodeCount(), e.graph.EdgeCount()
	e.mu.Unlock()

	e.afterChange(iri, change, notes, nodes, edges)
	return nil
}

func (e *Editor) reject(label string, err error) {
	e.observeMutation(label, false)
	var domainErr *pkgerrors.DomainError
	switch {
	case errors.Is(err, pkgerrors.ErrImportedElement):
		e.logger.Debug("Ignoring edit of imported element", zap.String("operation", label), zap.Error(err))
	case errors.As(err, &domainErr), pkgerrors.IsValidation(err):
		e.logger.Debug("Mutation rejected", zap.String("operation", label), zap.Error(err))
	default:
		e.logger.Warn("Mutation failed", zap.String("operation", label), zap.Error(err))
	}
}

// notification is a deferred rendering callback
type notification func(r ports.RenderingAdapter)

// collectNotifications drains the graph's events into renderer calls; the
// caller holds mu
func (e *Editor) collectNotifications() []notification {
	pending := e.graph.GetUncommittedEvents()
	e.graph.MarkEventsAsCommitted()

	notes := make([]notification, 0, len(pending))
	for _, evt := range pending {
		switch ev := evt.(type) {
		case events.NodeAdded:
			if n, ok := e.graph.Node(ev.NodeID); ok {
				notes = append(notes, func(r ports.RenderingAdapter) { r.OnNodeAdded(n) })
			}
		case events.EdgeAdded:
			if ed, ok := e.graph.Edge(ev.EdgeID); ok {
				notes = append(notes, func(r ports.RenderingAdapter) { r.OnEdgeCreated(ed) })
			}
		case events.ElementRemoved:
			id := ev.ElementID
			notes = append(notes, func(r ports.RenderingAdapter) { r.OnElementRemoved(id) })
		case events.ElementUpdated:
			id := ev.ElementID
			notes = append(notes, func(r ports.RenderingAdapter) { r.OnElementChanged(id) })
		default:
			notes = append(notes, func(r ports.RenderingAdapter) { r.RequestRedraw() })
		}
	}
	return notes
}

func (e *Editor) afterChange(iri valueobjects.OntologyIRI, change aggregates.Change, notes []notification, nodes, edges int) {
	e.pruneSelection(change)
	if e.renderer != nil {
		for _, n := range notes {
			n(e.renderer)
		}
	}
	e.schedule(iri)
	e.observeSize(nodes, edges)
}

func (e *Editor) schedule(iri valueobjects.OntologyIRI) {
	if e.autosave != nil {
		e.autosave.Schedule(iri)
	}
}

// pruneSelection drops deleted elements from the selection
func (e *Editor) pruneSelection(change aggregates.Change) {
	current := e.states.Get().Selection
	if len(current) == 0 {
		return
	}
	deleted := make(map[valueobjects.ElementID]bool)
	for _, ec := range change.Elements {
		if ec.Deleted() {
			deleted[ec.ID] = true
		}
	}
	if len(deleted) == 0 {
		return
	}
	kept := make([]valueobjects.ElementID, 0, len(current))
	for _, id := range current {
		if !deleted[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(current) {
		return
	}
	e.Select(kept...)
}

func (e *Editor) clearSelection() {
	if len(e.states.Get().Selection) > 0 {
		e.Select()
	}
}

// replaceRendered tells the renderer to drop the previous graph and draw the new one
func (e *Editor) replaceRendered(previous *aggregates.OntologyGraph, nodes []*entities.Node, edges []*entities.Edge) {
	if e.renderer == nil {
		return
	}
	if previous != nil {
		for _, ed := range previous.EdgeList() {
			e.renderer.OnElementRemoved(ed.ID())
		}
		for _, n := range previous.NodeList() {
			e.renderer.OnElementRemoved(n.ID())
		}
	}
	for _, n := range nodes {
		e.renderer.OnNodeAdded(n)
	}
	for _, ed := range edges {
		e.renderer.OnEdgeCreated(ed)
	}
	e.renderer.RequestRedraw()
}

func (e *Editor) countNodes(kind entities.NodeKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return 0
	}
	return e.graph.CountNodes(kind)
}

func (e *Editor) snap(pos valueobjects.Position) valueobjects.Position {
	if !e.cfg.SnapToGrid || e.cfg.GridSize <= 0 {
		return pos
	}
	return pos.Snap(e.cfg.GridSize)
}

func (e *Editor) observeMutation(op string, accepted bool) {
	if e.metrics != nil {
		e.metrics.ObserveMutation(op, accepted)
	}
}

func (e *Editor) observeSize(nodes, edges int) {
	if e.metrics != nil {
		e.metrics.SetGraphSize(nodes, edges)
	}
}
