package aggregates

import (
	"sort"
	"strings"

	"ontograph/domain/core/entities"
	"ontograph/domain/core/validators"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/events"
	"ontograph/domain/provenance"
	pkgerrors "ontograph/pkg/errors"
)

// NodeSpec describes a node to add. A zero ID gets a fresh UUID.
type NodeSpec struct {
	ID       valueobjects.ElementID
	Kind     entities.NodeKind
	Label    string
	Position valueobjects.Position
	OwnerID  valueobjects.ElementID
	NoteType valueobjects.NoteType
	Content  string
}

// EdgeSpec describes an edge to add. A zero ID gets a fresh UUID.
type EdgeSpec struct {
	ID           valueobjects.ElementID
	Kind         entities.EdgeKind
	SourceID     valueobjects.ElementID
	TargetID     valueobjects.ElementID
	Predicate    string
	Multiplicity valueobjects.Multiplicity
}

// AttrPatch lists the attributes to change; nil fields are left alone
type AttrPatch struct {
	Label       *string
	Predicate   *string
	Content     *string
	NoteType    *valueobjects.NoteType
	Equivalence *bool
}

// IsEmpty reports whether the patch changes nothing
func (p AttrPatch) IsEmpty() bool {
	return p.Label == nil && p.Predicate == nil && p.Content == nil &&
		p.NoteType == nil && p.Equivalence == nil
}

// OntologyGraph is the aggregate root for one ontology's canvas.
// Every mutation checks the structural invariants before touching state and
// returns the Change it committed.
type OntologyGraph struct {
	iri     valueobjects.OntologyIRI
	label   string
	nodes   map[valueobjects.ElementID]*entities.Node
	edges   map[valueobjects.ElementID]*entities.Edge
	rules   *validators.ConnectionRules
	tracker *provenance.Tracker
	version int
	events  []events.DomainEvent
}

// NewOntologyGraph creates an empty graph
func NewOntologyGraph(iri valueobjects.OntologyIRI, label string, rules *validators.ConnectionRules, tracker *provenance.Tracker) *OntologyGraph {
	if rules == nil {
		rules = validators.NewConnectionRules(nil)
	}
	if tracker == nil {
		tracker = provenance.NewTracker(nil, nil)
	}
	return &OntologyGraph{
		iri:     iri,
		label:   label,
		nodes:   make(map[valueobjects.ElementID]*entities.Node),
		edges:   make(map[valueobjects.ElementID]*entities.Edge),
		rules:   rules,
		tracker: tracker,
		events:  []events.DomainEvent{},
	}
}

// IRI returns the ontology identifier
func (g *OntologyGraph) IRI() valueobjects.OntologyIRI {
	return g.iri
}

// Label returns the ontology display label
func (g *OntologyGraph) Label() string {
	return g.label
}

// SetLabel renames the ontology; it is not an undoable mutation
func (g *OntologyGraph) SetLabel(label string) {
	g.label = label
}

// Version increases on every committed mutation
func (g *OntologyGraph) Version() int {
	return g.version
}

// Rules returns the connection rules the graph enforces
func (g *OntologyGraph) Rules() *validators.ConnectionRules {
	return g.rules
}

// NodeCount returns the number of nodes
func (g *OntologyGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *OntologyGraph) EdgeCount() int {
	return len(g.edges)
}

// CountNodes returns the number of nodes of one kind
func (g *OntologyGraph) CountNodes(kind entities.NodeKind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind() == kind {
			n++
		}
	}
	return n
}

// Node returns a copy of the node
func (g *OntologyGraph) Node(id valueobjects.ElementID) (*entities.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Edge returns a copy of the edge
func (g *OntologyGraph) Edge(id valueobjects.ElementID) (*entities.Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Contains reports whether a node or edge has the id
func (g *OntologyGraph) Contains(id valueobjects.ElementID) bool {
	_, isNode := g.nodes[id]
	_, isEdge := g.edges[id]
	return isNode || isEdge
}

// IsImported reports whether the element exists and is imported
func (g *OntologyGraph) IsImported(id valueobjects.ElementID) bool {
	if n, ok := g.nodes[id]; ok {
		return n.IsImported()
	}
	if e, ok := g.edges[id]; ok {
		return e.IsImported()
	}
	return false
}

// NodeList returns copies of all nodes ordered by id
func (g *OntologyGraph) NodeList() []*entities.Node {
	out := make([]*entities.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

// EdgeList returns copies of all edges ordered by id
func (g *OntologyGraph) EdgeList() []*entities.Edge {
	out := make([]*entities.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

// AddNode validates and inserts a node
func (g *OntologyGraph) AddNode(spec NodeSpec) (*entities.Node, Change, error) {
	id := spec.ID
	if id.IsZero() {
		id = valueobjects.NewElementID()
	}
	if g.Contains(id) {
		return nil, Change{}, pkgerrors.ErrDuplicateID.WithDetail("id", id.String())
	}

	var node *entities.Node
	var err error
	switch spec.Kind {
	case entities.NodeKindClass:
		node, err = entities.NewClassNode(id, spec.Label, spec.Position)
	case entities.NodeKindDataProperty:
		owner, ok := g.nodes[spec.OwnerID]
		if !ok || !g.rules.CanOwnDataProperty(owner.Kind()) {
			return nil, Change{}, pkgerrors.ErrInvalidOwner.WithDetail("owner", spec.OwnerID.String())
		}
		node, err = entities.NewDataPropertyNode(id, spec.Label, spec.Position, spec.OwnerID)
	case entities.NodeKindNote:
		noteType := spec.NoteType
		if noteType == "" {
			noteType = valueobjects.NoteTypeComment
		}
		content := spec.Content
		if content == "" {
			content = spec.Label
		}
		node, err = entities.NewNoteNode(id, content, noteType, spec.Position)
	default:
		return nil, Change{}, pkgerrors.ErrInvalidNodeKind.WithDetail("kind", string(spec.Kind))
	}
	if err != nil {
		return nil, Change{}, err
	}

	node.Stamp(g.tracker.StampCreate(node.Provenance()))
	g.nodes[id] = node

	change := Change{Elements: []ElementChange{nodeChange(nil, node)}}
	g.committed()
	g.addEvent(events.NewNodeAdded(g.iri, id, node.Kind().String(), g.tracker.Now(), g.version))
	return node.Clone(), change, nil
}

// AddEdge validates and inserts an edge. On any violation the graph is untouched.
func (g *OntologyGraph) AddEdge(spec EdgeSpec) (*entities.Edge, Change, error) {
	id := spec.ID
	if id.IsZero() {
		id = valueobjects.NewElementID()
	}
	if g.Contains(id) {
		return nil, Change{}, pkgerrors.ErrDuplicateID.WithDetail("id", id.String())
	}

	source, target := g.nodes[spec.SourceID], g.nodes[spec.TargetID]
	if err := g.rules.CheckEndpoints(spec.Kind, source, target); err != nil {
		return nil, Change{}, err
	}

	var edge *entities.Edge
	var err error
	switch spec.Kind {
	case entities.EdgeKindObjectProperty:
		edge, err = entities.NewObjectPropertyEdge(id, spec.SourceID, spec.TargetID, spec.Predicate)
		if err == nil {
			err = edge.SetMultiplicity(spec.Multiplicity)
		}
	case entities.EdgeKindNote:
		edge, err = entities.NewNoteEdge(id, spec.SourceID, spec.TargetID)
	default:
		return nil, Change{}, pkgerrors.NewValidationError("unknown edge kind " + spec.Kind.String())
	}
	if err != nil {
		return nil, Change{}, err
	}

	edge.Stamp(g.tracker.StampCreate(edge.Provenance()))
	g.edges[id] = edge

	change := Change{Elements: []ElementChange{edgeChange(nil, edge)}}
	g.committed()
	g.addEvent(events.NewEdgeAdded(g.iri, id, edge.Kind().String(), edge.SourceID(), edge.TargetID(), g.tracker.Now(), g.version))
	return edge.Clone(), change, nil
}

// RemoveElement deletes a node or an edge. Removing a node also removes its
// incident edges and, for a class, the data properties it owns along with
// their edges. The whole cascade is one Change. If anything in the cascade
// is imported, nothing is removed.
func (g *OntologyGraph) RemoveElement(id valueobjects.ElementID) (Change, error) {
	if edge, ok := g.edges[id]; ok {
		if edge.IsImported() {
			return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", id.String())
		}
		delete(g.edges, id)
		g.committed()
		g.addEvent(events.NewElementRemoved(g.iri, id, true, g.tracker.Now(), g.version))
		return Change{Elements: []ElementChange{edgeChange(edge, nil)}}, nil
	}

	node, ok := g.nodes[id]
	if !ok {
		return Change{}, pkgerrors.ErrElementNotFound.WithDetail("id", id.String())
	}

	doomedNodes := []*entities.Node{node}
	if node.Kind() == entities.NodeKindClass {
		for _, n := range g.sortedNodes() {
			if n.Kind() == entities.NodeKindDataProperty && n.OwnerID().Equals(id) {
				doomedNodes = append(doomedNodes, n)
			}
		}
	}
	var doomedEdges []*entities.Edge
	for _, e := range g.sortedEdges() {
		for _, n := range doomedNodes {
			if e.Touches(n.ID()) {
				doomedEdges = append(doomedEdges, e)
				break
			}
		}
	}

	for _, n := range doomedNodes {
		if n.IsImported() {
			return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", n.ID().String())
		}
	}
	for _, e := range doomedEdges {
		if e.IsImported() {
			return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", e.ID().String())
		}
	}

	// edges leave first and nodes last so that a backward apply, which runs
	// in reverse, restores nodes before the edges that reference them
	change := Change{}
	g.committed()
	now := g.tracker.Now()
	for _, e := range doomedEdges {
		delete(g.edges, e.ID())
		change.Elements = append(change.Elements, edgeChange(e, nil))
		g.addEvent(events.NewElementRemoved(g.iri, e.ID(), true, now, g.version))
	}
	for i := len(doomedNodes) - 1; i >= 0; i-- {
		n := doomedNodes[i]
		delete(g.nodes, n.ID())
		change.Elements = append(change.Elements, nodeChange(n, nil))
		g.addEvent(events.NewElementRemoved(g.iri, n.ID(), false, now, g.version))
	}
	return change, nil
}

// UpdateAttrs applies a patch of labels, predicate, note payload or equivalence.
// The patch is applied to a copy and swapped in only if every field succeeds.
func (g *OntologyGraph) UpdateAttrs(id valueobjects.ElementID, patch AttrPatch) (Change, error) {
	if node, ok := g.nodes[id]; ok {
		if node.IsImported() {
			return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", id.String())
		}
		next := node.Clone()
		if err := patchNode(next, patch); err != nil {
			return Change{}, err
		}
		if next.Record() == node.Record() {
			return Change{}, nil
		}
		return g.replaceNode(node, next, patchField(patch)), nil
	}

	if edge, ok := g.edges[id]; ok {
		if edge.IsImported() {
			return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", id.String())
		}
		next := edge.Clone()
		if err := patchEdge(next, patch); err != nil {
			return Change{}, err
		}
		if sameEdge(next, edge) {
			return Change{}, nil
		}
		return g.replaceEdge(edge, next, patchField(patch)), nil
	}

	return Change{}, pkgerrors.ErrElementNotFound.WithDetail("id", id.String())
}

// MoveNode sets the node position
func (g *OntologyGraph) MoveNode(id valueobjects.ElementID, position valueobjects.Position) (Change, error) {
	node, ok := g.nodes[id]
	if !ok {
		return Change{}, pkgerrors.ErrElementNotFound.WithDetail("id", id.String())
	}
	if node.IsImported() {
		return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", id.String())
	}
	if node.Position().Equals(position) {
		return Change{}, nil
	}
	next := node.Clone()
	if err := next.MoveTo(position); err != nil {
		return Change{}, err
	}
	return g.replaceNode(node, next, "position"), nil
}

// SetMultiplicity changes the cardinality of an object property
func (g *OntologyGraph) SetMultiplicity(edgeID valueobjects.ElementID, m valueobjects.Multiplicity) (Change, error) {
	edge, ok := g.edges[edgeID]
	if !ok {
		return Change{}, pkgerrors.ErrElementNotFound.WithDetail("id", edgeID.String())
	}
	if edge.IsImported() {
		return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", edgeID.String())
	}
	if edge.Multiplicity().Equals(m) {
		return Change{}, nil
	}
	next := edge.Clone()
	if err := next.SetMultiplicity(m); err != nil {
		return Change{}, err
	}
	return g.replaceEdge(edge, next, "multiplicity"), nil
}

// Reconnect moves the ends of an edge under the same rules as AddEdge
func (g *OntologyGraph) Reconnect(edgeID, source, target valueobjects.ElementID) (Change, error) {
	edge, ok := g.edges[edgeID]
	if !ok {
		return Change{}, pkgerrors.ErrElementNotFound.WithDetail("id", edgeID.String())
	}
	if edge.IsImported() {
		return Change{}, pkgerrors.ErrImportedElement.WithDetail("id", edgeID.String())
	}
	if err := g.rules.CheckEndpoints(edge.Kind(), g.nodes[source], g.nodes[target]); err != nil {
		return Change{}, err
	}
	if edge.SourceID().Equals(source) && edge.TargetID().Equals(target) {
		return Change{}, nil
	}
	next := edge.Clone()
	if err := next.Reconnect(source, target); err != nil {
		return Change{}, err
	}
	return g.replaceEdge(edge, next, "endpoints"), nil
}

// Apply moves the graph to one side of a committed Change. It restores the
// exact recorded element states and stamps nothing.
func (g *OntologyGraph) Apply(change Change, dir Direction) error {
	elements := change.Elements
	if dir == Backward {
		elements = make([]ElementChange, len(change.Elements))
		for i, ec := range change.Elements {
			elements[len(elements)-1-i] = ec
		}
	}

	now := g.tracker.Now()
	g.committed()
	for _, ec := range elements {
		nodeRec, edgeRec := ec.NodeAfter, ec.EdgeAfter
		if dir == Backward {
			nodeRec, edgeRec = ec.NodeBefore, ec.EdgeBefore
		}

		if ec.IsEdge() {
			_, existed := g.edges[ec.ID]
			if edgeRec == nil {
				delete(g.edges, ec.ID)
				g.addEvent(events.NewElementRemoved(g.iri, ec.ID, true, now, g.version))
				continue
			}
			e, err := entities.ReconstructEdge(*edgeRec)
			if err != nil {
				return err
			}
			g.edges[ec.ID] = e
			if existed {
				g.addEvent(events.NewElementUpdated(g.iri, ec.ID, true, "restore", now, g.version))
			} else {
				g.addEvent(events.NewEdgeAdded(g.iri, ec.ID, e.Kind().String(), e.SourceID(), e.TargetID(), now, g.version))
			}
			continue
		}

		_, existed := g.nodes[ec.ID]
		if nodeRec == nil {
			delete(g.nodes, ec.ID)
			g.addEvent(events.NewElementRemoved(g.iri, ec.ID, false, now, g.version))
			continue
		}
		n, err := entities.ReconstructNode(*nodeRec)
		if err != nil {
			return err
		}
		g.nodes[ec.ID] = n
		if existed {
			g.addEvent(events.NewElementUpdated(g.iri, ec.ID, false, "restore", now, g.version))
		} else {
			g.addEvent(events.NewNodeAdded(g.iri, ec.ID, n.Kind().String(), now, g.version))
		}
	}
	return nil
}

// Validate checks every invariant over the whole graph
func (g *OntologyGraph) Validate() error {
	return validators.NewGraphValidator(g.rules).Validate(g)
}

// GetUncommittedEvents returns all uncommitted domain events
func (g *OntologyGraph) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(g.events))
	copy(out, g.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (g *OntologyGraph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
}

// Private helper methods

func (g *OntologyGraph) replaceNode(before, after *entities.Node, field string) Change {
	after.Stamp(g.tracker.StampModify(after.Provenance()))
	g.nodes[after.ID()] = after
	g.committed()
	g.addEvent(events.NewElementUpdated(g.iri, after.ID(), false, field, g.tracker.Now(), g.version))
	return Change{Elements: []ElementChange{nodeChange(before, after)}}
}

func (g *OntologyGraph) replaceEdge(before, after *entities.Edge, field string) Change {
	after.Stamp(g.tracker.StampModify(after.Provenance()))
	g.edges[after.ID()] = after
	g.committed()
	g.addEvent(events.NewElementUpdated(g.iri, after.ID(), true, field, g.tracker.Now(), g.version))
	return Change{Elements: []ElementChange{edgeChange(before, after)}}
}

func (g *OntologyGraph) committed() {
	g.version++
}

func (g *OntologyGraph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}

func (g *OntologyGraph) sortedNodes() []*entities.Node {
	out := make([]*entities.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

func (g *OntologyGraph) sortedEdges() []*entities.Edge {
	out := make([]*entities.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

func patchNode(n *entities.Node, p AttrPatch) error {
	if p.Predicate != nil {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "predicate")
	}
	if p.Label != nil {
		if err := n.Relabel(*p.Label); err != nil {
			return err
		}
	}
	if p.Content != nil {
		if err := n.SetContent(*p.Content); err != nil {
			return err
		}
	}
	if p.NoteType != nil {
		if err := n.SetNoteType(*p.NoteType); err != nil {
			return err
		}
	}
	if p.Equivalence != nil {
		if err := n.SetEquivalence(*p.Equivalence); err != nil {
			return err
		}
	}
	return nil
}

func patchEdge(e *entities.Edge, p AttrPatch) error {
	if p.Content != nil {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "content")
	}
	if p.NoteType != nil {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "noteType")
	}
	if p.Predicate != nil {
		if err := e.SetPredicate(*p.Predicate); err != nil {
			return err
		}
	}
	if p.Label != nil {
		if err := e.Relabel(*p.Label); err != nil {
			return err
		}
	}
	if p.Equivalence != nil {
		if err := e.SetEquivalence(*p.Equivalence); err != nil {
			return err
		}
	}
	return nil
}

func sameEdge(a, b *entities.Edge) bool {
	return a.Label() == b.Label() &&
		a.Predicate() == b.Predicate() &&
		a.IsEquivalence() == b.IsEquivalence()
}

func patchField(p AttrPatch) string {
	var fields []string
	if p.Label != nil {
		fields = append(fields, "label")
	}
	if p.Predicate != nil {
		fields = append(fields, "predicate")
	}
	if p.Content != nil {
		fields = append(fields, "content")
	}
	if p.NoteType != nil {
		fields = append(fields, "noteType")
	}
	if p.Equivalence != nil {
		fields = append(fields, "equivalence")
	}
	return strings.Join(fields, ",")
}
