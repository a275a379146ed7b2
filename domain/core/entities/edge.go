package entities

import (
	"strings"

	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// EdgeKind tags the edge variant
type EdgeKind string

const (
	// EdgeKindObjectProperty relates two classes
	EdgeKindObjectProperty EdgeKind = "objectProperty"

	// EdgeKindNote attaches a note to a class or data property
	EdgeKindNote EdgeKind = "note"
)

// NoteEdgePredicate is the fixed predicate of note edges
const NoteEdgePredicate = "note_for"

// IsValid checks if the edge kind is valid
func (k EdgeKind) IsValid() bool {
	switch k {
	case EdgeKindObjectProperty, EdgeKindNote:
		return true
	default:
		return false
	}
}

// String returns the string representation of the edge kind
func (k EdgeKind) String() string {
	return string(k)
}

// Edge is a directed connection between two nodes
type Edge struct {
	id           valueobjects.ElementID
	kind         EdgeKind
	label        string
	sourceID     valueobjects.ElementID
	targetID     valueobjects.ElementID
	predicate    string
	multiplicity valueobjects.Multiplicity
	imported     bool
	equivalence  bool
	provenance   valueobjects.Provenance
}

// NewObjectPropertyEdge creates an object property between two classes.
// Endpoint kinds are checked by the graph, which can resolve them.
func NewObjectPropertyEdge(id, source, target valueobjects.ElementID, predicate string) (*Edge, error) {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return nil, pkgerrors.NewValidationError("object property predicate cannot be empty")
	}
	return newEdge(id, EdgeKindObjectProperty, source, target, predicate)
}

// NewNoteEdge creates the link from a note to what it annotates
func NewNoteEdge(id, note, target valueobjects.ElementID) (*Edge, error) {
	return newEdge(id, EdgeKindNote, note, target, NoteEdgePredicate)
}

func newEdge(id valueobjects.ElementID, kind EdgeKind, source, target valueobjects.ElementID, predicate string) (*Edge, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("edge id cannot be empty")
	}
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.ErrInvalidEndpoint.WithDetail("reason", "missing endpoint")
	}
	return &Edge{
		id:        id,
		kind:      kind,
		label:     predicate,
		sourceID:  source,
		targetID:  target,
		predicate: predicate,
	}, nil
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.ElementID { return e.id }

// Kind returns the edge variant
func (e *Edge) Kind() EdgeKind { return e.kind }

// Label returns the display label; it defaults to the predicate
func (e *Edge) Label() string { return e.label }

// SourceID returns the source node id
func (e *Edge) SourceID() valueobjects.ElementID { return e.sourceID }

// TargetID returns the target node id
func (e *Edge) TargetID() valueobjects.ElementID { return e.targetID }

// Predicate returns the relation name
func (e *Edge) Predicate() string { return e.predicate }

// Multiplicity returns the cardinality of an object property
func (e *Edge) Multiplicity() valueobjects.Multiplicity { return e.multiplicity }

// IsImported reports whether the edge comes from an imported ontology
func (e *Edge) IsImported() bool { return e.imported }

// IsEquivalence reports whether the edge is marked equivalent to an imported counterpart
func (e *Edge) IsEquivalence() bool { return e.equivalence }

// Provenance returns the creation and modification stamps
func (e *Edge) Provenance() valueobjects.Provenance { return e.provenance }

// Touches reports whether the node is either endpoint
func (e *Edge) Touches(nodeID valueobjects.ElementID) bool {
	return e.sourceID.Equals(nodeID) || e.targetID.Equals(nodeID)
}

// MarkImported flags the edge as foreign. Only loaders call this.
func (e *Edge) MarkImported() {
	e.imported = true
}

// Relabel changes the display label
func (e *Edge) Relabel(label string) error {
	if e.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", e.id.String())
	}
	e.label = strings.TrimSpace(label)
	if e.label == "" {
		e.label = e.predicate
	}
	return nil
}

// SetPredicate renames the relation. A label that was tracking the old
// predicate follows the new one.
func (e *Edge) SetPredicate(predicate string) error {
	if e.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", e.id.String())
	}
	if e.kind != EdgeKindObjectProperty {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "predicate")
	}
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return pkgerrors.NewValidationError("object property predicate cannot be empty")
	}
	if e.label == "" || e.label == e.predicate {
		e.label = predicate
	}
	e.predicate = predicate
	return nil
}

// SetMultiplicity changes the cardinality of an object property
func (e *Edge) SetMultiplicity(m valueobjects.Multiplicity) error {
	if e.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", e.id.String())
	}
	if e.kind != EdgeKindObjectProperty {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "multiplicity")
	}
	e.multiplicity = m
	return nil
}

// Reconnect moves the edge ends
func (e *Edge) Reconnect(source, target valueobjects.ElementID) error {
	if e.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", e.id.String())
	}
	if source.IsZero() || target.IsZero() {
		return pkgerrors.ErrInvalidEndpoint.WithDetail("reason", "missing endpoint")
	}
	e.sourceID = source
	e.targetID = target
	return nil
}

// SetEquivalence toggles the equivalence marker
func (e *Edge) SetEquivalence(equivalence bool) error {
	if e.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", e.id.String())
	}
	e.equivalence = equivalence
	return nil
}

// Stamp replaces the provenance block
func (e *Edge) Stamp(p valueobjects.Provenance) {
	if e.imported {
		return
	}
	e.provenance = p
}

// Clone returns an independent copy
func (e *Edge) Clone() *Edge {
	c := *e
	return &c
}
