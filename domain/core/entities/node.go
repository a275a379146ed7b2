package entities

import (
	"strings"

	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// NodeKind tags the node variant
type NodeKind string

const (
	NodeKindClass        NodeKind = "class"
	NodeKindDataProperty NodeKind = "dataProperty"
	NodeKindNote         NodeKind = "note"
)

// IsValid checks if the node kind is known
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindClass, NodeKindDataProperty, NodeKindNote:
		return true
	default:
		return false
	}
}

// String returns the string representation of the node kind
func (k NodeKind) String() string {
	return string(k)
}

// Node is a class, data property or note on the canvas.
// Variant-specific fields are only meaningful for their kind:
// ownerID for data properties, noteType and content for notes.
type Node struct {
	id          valueobjects.ElementID
	kind        NodeKind
	label       string
	position    valueobjects.Position
	imported    bool
	equivalence bool
	provenance  valueobjects.Provenance

	ownerID  valueobjects.ElementID
	noteType valueobjects.NoteType
	content  string
}

// NewClassNode creates a class node
func NewClassNode(id valueobjects.ElementID, label string, position valueobjects.Position) (*Node, error) {
	return newNode(id, NodeKindClass, label, position)
}

// NewDataPropertyNode creates a data property attached to its owning class
func NewDataPropertyNode(id valueobjects.ElementID, label string, position valueobjects.Position, owner valueobjects.ElementID) (*Node, error) {
	n, err := newNode(id, NodeKindDataProperty, label, position)
	if err != nil {
		return nil, err
	}
	n.ownerID = owner
	return n, nil
}

// NewNoteNode creates a note. The label mirrors the first line of content.
func NewNoteNode(id valueobjects.ElementID, content string, noteType valueobjects.NoteType, position valueobjects.Position) (*Node, error) {
	if !noteType.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid note type")
	}
	n, err := newNode(id, NodeKindNote, noteLabel(content), position)
	if err != nil {
		return nil, err
	}
	n.noteType = noteType
	n.content = content
	return n, nil
}

func newNode(id valueobjects.ElementID, kind NodeKind, label string, position valueobjects.Position) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.ErrInvalidNodeKind.WithDetail("kind", string(kind))
	}
	return &Node{
		id:       id,
		kind:     kind,
		label:    strings.TrimSpace(label),
		position: position,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.ElementID {
	return n.id
}

// Kind returns the node variant
func (n *Node) Kind() NodeKind {
	return n.kind
}

// Label returns the display label
func (n *Node) Label() string {
	return n.label
}

// Position returns the node's position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// IsImported reports whether the node comes from an imported ontology
func (n *Node) IsImported() bool {
	return n.imported
}

// IsEquivalence reports whether the node is marked equivalent to an imported counterpart
func (n *Node) IsEquivalence() bool {
	return n.equivalence
}

// Provenance returns the creation and modification stamps
func (n *Node) Provenance() valueobjects.Provenance {
	return n.provenance
}

// OwnerID returns the owning class of a data property
func (n *Node) OwnerID() valueobjects.ElementID {
	return n.ownerID
}

// NoteType returns the style of a note
func (n *Node) NoteType() valueobjects.NoteType {
	return n.noteType
}

// Content returns the text of a note
func (n *Node) Content() string {
	return n.content
}

// MarkImported flags the node as foreign. Only loaders call this.
func (n *Node) MarkImported() {
	n.imported = true
}

// MoveTo moves the node to a new position
func (n *Node) MoveTo(position valueobjects.Position) error {
	if n.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", n.id.String())
	}
	n.position = position
	return nil
}

// Relabel changes the display label. For notes the label is derived from content.
func (n *Node) Relabel(label string) error {
	if n.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", n.id.String())
	}
	if n.kind == NodeKindNote {
		return n.SetContent(label)
	}
	n.label = strings.TrimSpace(label)
	return nil
}

// SetContent replaces the text of a note
func (n *Node) SetContent(content string) error {
	if n.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", n.id.String())
	}
	if n.kind != NodeKindNote {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "content")
	}
	n.content = content
	n.label = noteLabel(content)
	return nil
}

// SetNoteType changes the style of a note
func (n *Node) SetNoteType(noteType valueobjects.NoteType) error {
	if n.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", n.id.String())
	}
	if n.kind != NodeKindNote {
		return pkgerrors.ErrInvalidPatch.WithDetail("field", "noteType")
	}
	if !noteType.IsValid() {
		return pkgerrors.NewValidationError("invalid note type")
	}
	n.noteType = noteType
	return nil
}

// SetEquivalence toggles the equivalence marker
func (n *Node) SetEquivalence(equivalence bool) error {
	if n.imported {
		return pkgerrors.ErrImportedElement.WithDetail("id", n.id.String())
	}
	n.equivalence = equivalence
	return nil
}

// Stamp replaces the provenance block
func (n *Node) Stamp(p valueobjects.Provenance) {
	if n.imported {
		return
	}
	n.provenance = p
}

// Clone returns an independent copy
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// noteLabel is the first line of a note, trimmed
func noteLabel(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return strings.TrimSpace(line)
}
