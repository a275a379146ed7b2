package entities

import (
	"fmt"

	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// NodeAttrs carries provenance plus the note payload
type NodeAttrs struct {
	valueobjects.Provenance
	NoteType valueobjects.NoteType `json:"noteType,omitempty"`
	Content  string                `json:"content,omitempty"`
}

// NodeRecord is the persisted shape of a node
type NodeRecord struct {
	ID          valueobjects.ElementID `json:"id"`
	Type        NodeKind               `json:"type"`
	Label       string                 `json:"label"`
	Position    valueobjects.Position  `json:"position"`
	Imported    bool                   `json:"imported"`
	Equivalence bool                   `json:"equivalence"`
	OwnerID     string                 `json:"ownerId,omitempty"`
	Attrs       NodeAttrs              `json:"attrs"`
}

// EdgeRecord is the persisted shape of an edge
type EdgeRecord struct {
	ID          valueobjects.ElementID  `json:"id"`
	Type        EdgeKind                `json:"type"`
	Label       string                  `json:"label"`
	Source      valueobjects.ElementID  `json:"source"`
	Target      valueobjects.ElementID  `json:"target"`
	Predicate   string                  `json:"predicate"`
	MinCount    *int                    `json:"minCount"`
	MaxCount    *int                    `json:"maxCount"`
	Imported    bool                    `json:"imported"`
	Equivalence bool                    `json:"equivalence"`
	Attrs       valueobjects.Provenance `json:"attrs"`
}

// Record returns the persisted shape of the node
func (n *Node) Record() NodeRecord {
	r := NodeRecord{
		ID:          n.id,
		Type:        n.kind,
		Label:       n.label,
		Position:    n.position,
		Imported:    n.imported,
		Equivalence: n.equivalence,
		Attrs:       NodeAttrs{Provenance: n.provenance},
	}
	switch n.kind {
	case NodeKindClass:
	case NodeKindDataProperty:
		r.OwnerID = n.ownerID.String()
	case NodeKindNote:
		r.Attrs.NoteType = n.noteType
		r.Attrs.Content = n.content
	}
	return r
}

// ReconstructNode rebuilds a node from its record with provenance preserved
func ReconstructNode(r NodeRecord) (*Node, error) {
	if r.ID.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	n := &Node{
		id:          r.ID,
		kind:        r.Type,
		label:       r.Label,
		position:    r.Position,
		imported:    r.Imported,
		equivalence: r.Equivalence,
		provenance:  r.Attrs.Provenance,
	}
	switch r.Type {
	case NodeKindClass:
	case NodeKindDataProperty:
		if r.OwnerID != "" {
			owner, err := valueobjects.NewElementIDFromString(r.OwnerID)
			if err != nil {
				return nil, pkgerrors.ErrInvalidOwner.WithDetail("owner", r.OwnerID).WithCause(err)
			}
			n.ownerID = owner
		}
	case NodeKindNote:
		nt := r.Attrs.NoteType
		if nt == "" {
			nt = valueobjects.NoteTypeComment
		}
		if !nt.IsValid() {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("node %s: invalid note type %q", r.ID, nt))
		}
		n.noteType = nt
		n.content = r.Attrs.Content
	default:
		return nil, pkgerrors.ErrInvalidNodeKind.WithDetail("kind", string(r.Type))
	}
	return n, nil
}

// Record returns the persisted shape of the edge
func (e *Edge) Record() EdgeRecord {
	r := EdgeRecord{
		ID:          e.id,
		Type:        e.kind,
		Label:       e.label,
		Source:      e.sourceID,
		Target:      e.targetID,
		Predicate:   e.predicate,
		Imported:    e.imported,
		Equivalence: e.equivalence,
		Attrs:       e.provenance,
	}
	switch e.kind {
	case EdgeKindObjectProperty:
		r.MinCount = e.multiplicity.Min()
		r.MaxCount = e.multiplicity.Max()
	case EdgeKindNote:
	}
	return r
}

// ReconstructEdge rebuilds an edge from its record. Endpoint kinds are
// checked by the graph once all nodes are known.
func ReconstructEdge(r EdgeRecord) (*Edge, error) {
	if r.ID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge id cannot be empty")
	}
	if r.Source.IsZero() || r.Target.IsZero() {
		return nil, pkgerrors.ErrInvalidEndpoint.WithDetail("edge", r.ID.String())
	}
	e := &Edge{
		id:          r.ID,
		kind:        r.Type,
		label:       r.Label,
		sourceID:    r.Source,
		targetID:    r.Target,
		predicate:   r.Predicate,
		imported:    r.Imported,
		equivalence: r.Equivalence,
		provenance:  r.Attrs,
	}
	switch r.Type {
	case EdgeKindObjectProperty:
		m, err := valueobjects.NewMultiplicity(r.MinCount, r.MaxCount)
		if err != nil {
			return nil, err
		}
		e.multiplicity = m
	case EdgeKindNote:
		e.predicate = NoteEdgePredicate
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("edge %s: unknown edge type %q", r.ID, r.Type))
	}
	if e.label == "" {
		e.label = e.predicate
	}
	return e, nil
}
