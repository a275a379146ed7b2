// Package commands defines the editor intents dispatched on the command bus.
package commands

import (
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func requireID(id valueobjects.ElementID, field string) error {
	if id.IsZero() {
		return pkgerrors.NewValidationError(field + " is required")
	}
	return nil
}

// AddClassCommand creates a class node
type AddClassCommand struct {
	Label    string `validate:"max=200"`
	Position valueobjects.Position
}

func (c AddClassCommand) Validate() error {
	return validate.Struct(c)
}

// AddDataPropertyCommand attaches a data property to a class. A nil
// Position places it at the configured offset from the owner.
type AddDataPropertyCommand struct {
	OwnerID  valueobjects.ElementID
	Label    string `validate:"max=200"`
	Position *valueobjects.Position
}

func (c AddDataPropertyCommand) Validate() error {
	if err := requireID(c.OwnerID, "owner"); err != nil {
		return err
	}
	return validate.Struct(c)
}

// AddNoteCommand creates a note. With a TargetID the note is linked to it.
type AddNoteCommand struct {
	Content  string `validate:"max=10000"`
	NoteType valueobjects.NoteType
	Position valueobjects.Position
	TargetID valueobjects.ElementID
}

func (c AddNoteCommand) Validate() error {
	if c.NoteType != "" && !c.NoteType.IsValid() {
		return pkgerrors.NewValidationError("unknown note type " + string(c.NoteType))
	}
	return validate.Struct(c)
}

// CreateEdgeCommand creates the edge a completed connection describes
type CreateEdgeCommand struct {
	Spec aggregates.EdgeSpec
}

func (c CreateEdgeCommand) Validate() error {
	if err := requireID(c.Spec.SourceID, "source"); err != nil {
		return err
	}
	if err := requireID(c.Spec.TargetID, "target"); err != nil {
		return err
	}
	if !c.Spec.Kind.IsValid() {
		return pkgerrors.NewValidationError("unknown edge kind " + c.Spec.Kind.String())
	}
	return nil
}

// DeleteElementsCommand removes elements with their cascades as one entry
type DeleteElementsCommand struct {
	IDs []valueobjects.ElementID `validate:"min=1"`
}

func (c DeleteElementsCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, id := range c.IDs {
		if err := requireID(id, "id"); err != nil {
			return err
		}
	}
	return nil
}

// RenameElementCommand sets a node or edge label; for notes the content
type RenameElementCommand struct {
	ID    valueobjects.ElementID
	Label string `validate:"max=10000"`
}

func (c RenameElementCommand) Validate() error {
	return requireID(c.ID, "id")
}

// SetPredicateCommand changes an object property's predicate
type SetPredicateCommand struct {
	EdgeID    valueobjects.ElementID
	Predicate string `validate:"required,max=200"`
}

func (c SetPredicateCommand) Validate() error {
	if err := requireID(c.EdgeID, "edge"); err != nil {
		return err
	}
	return validate.Struct(c)
}

// SetNoteTypeCommand restyles a note
type SetNoteTypeCommand struct {
	ID       valueobjects.ElementID
	NoteType valueobjects.NoteType
}

func (c SetNoteTypeCommand) Validate() error {
	if err := requireID(c.ID, "id"); err != nil {
		return err
	}
	if !c.NoteType.IsValid() {
		return pkgerrors.NewValidationError("unknown note type " + string(c.NoteType))
	}
	return nil
}

// ToggleEquivalenceCommand flips an element's equivalence marker
type ToggleEquivalenceCommand struct {
	ID valueobjects.ElementID
}

func (c ToggleEquivalenceCommand) Validate() error {
	return requireID(c.ID, "id")
}

// SetMultiplicityCommand applies a preset, or custom text when Preset is custom
type SetMultiplicityCommand struct {
	EdgeID valueobjects.ElementID
	Preset valueobjects.MultiplicityPreset `validate:"required,oneof=none exactly-one zero-or-one many one-or-many custom"`
	Text   string                          `validate:"required_if=Preset custom"`
}

func (c SetMultiplicityCommand) Validate() error {
	if err := requireID(c.EdgeID, "edge"); err != nil {
		return err
	}
	return validate.Struct(c)
}

// MoveNodeCommand places a node as one undoable move
type MoveNodeCommand struct {
	ID       valueobjects.ElementID
	Position valueobjects.Position
}

func (c MoveNodeCommand) Validate() error {
	return requireID(c.ID, "id")
}

// ReconnectEdgeCommand moves an edge's endpoints
type ReconnectEdgeCommand struct {
	EdgeID   valueobjects.ElementID
	SourceID valueobjects.ElementID
	TargetID valueobjects.ElementID
}

func (c ReconnectEdgeCommand) Validate() error {
	for field, id := range map[string]valueobjects.ElementID{"edge": c.EdgeID, "source": c.SourceID, "target": c.TargetID} {
		if err := requireID(id, field); err != nil {
			return err
		}
	}
	return nil
}

// UndoCommand reverts the newest history entry
type UndoCommand struct{}

func (UndoCommand) Validate() error { return nil }

// RedoCommand re-applies the newest undone entry
type RedoCommand struct{}

func (RedoCommand) Validate() error { return nil }

// NodeKindFor maps a palette kind name to a node kind
func NodeKindFor(kind string) (entities.NodeKind, bool) {
	k := entities.NodeKind(kind)
	return k, k.IsValid()
}
