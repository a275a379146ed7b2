// Package handlers executes editor commands against the editor facade.
package handlers

import (
	"context"
	"fmt"

	"ontograph/application/commands"
	"ontograph/application/commands/bus"
	"ontograph/application/editor"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// EditorHandlers routes every editor command to the editor
type EditorHandlers struct {
	editor *editor.Editor
	logger *zap.Logger
}

// NewEditorHandlers creates the handler set
func NewEditorHandlers(ed *editor.Editor, logger *zap.Logger) *EditorHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditorHandlers{editor: ed, logger: logger}
}

// Register wires every command type onto the bus
func (h *EditorHandlers) Register(b *bus.CommandBus) error {
	registrations := []bus.Command{
		commands.AddClassCommand{},
		commands.AddDataPropertyCommand{},
		commands.AddNoteCommand{},
		commands.CreateEdgeCommand{},
		commands.DeleteElementsCommand{},
		commands.RenameElementCommand{},
		commands.SetPredicateCommand{},
		commands.SetNoteTypeCommand{},
		commands.ToggleEquivalenceCommand{},
		commands.SetMultiplicityCommand{},
		commands.MoveNodeCommand{},
		commands.ReconnectEdgeCommand{},
		commands.UndoCommand{},
		commands.RedoCommand{},
	}
	for _, cmd := range registrations {
		if err := b.Register(cmd, bus.CommandHandlerFunc(h.Handle)); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes one command. A false result from the editor becomes bus.ErrRejected.
func (h *EditorHandlers) Handle(_ context.Context, cmd bus.Command) error {
	var ok bool
	switch c := cmd.(type) {
	case commands.AddClassCommand:
		_, ok = h.editor.AddClass(c.Label, c.Position)
	case commands.AddDataPropertyCommand:
		_, ok = h.editor.AddDataProperty(c.OwnerID, c.Label, c.Position)
	case commands.AddNoteCommand:
		if c.TargetID.IsZero() {
			_, ok = h.editor.AddNote(c.Content, c.NoteType, c.Position)
		} else {
			_, ok = h.editor.AddNoteFor(c.TargetID, c.Content)
		}
	case commands.CreateEdgeCommand:
		ok = h.editor.CommitEdge(c.Spec)
	case commands.DeleteElementsCommand:
		ok = h.delete(c.IDs)
	case commands.RenameElementCommand:
		ok = h.editor.Rename(c.ID, c.Label)
	case commands.SetPredicateCommand:
		predicate := c.Predicate
		ok = h.editor.UpdateAttrs(c.EdgeID, aggregates.AttrPatch{Predicate: &predicate})
	case commands.SetNoteTypeCommand:
		ok = h.editor.SetNoteType(c.ID, c.NoteType)
	case commands.ToggleEquivalenceCommand:
		ok = h.editor.ToggleEquivalence(c.ID)
	case commands.SetMultiplicityCommand:
		if c.Preset == valueobjects.PresetCustom {
			ok = h.editor.SetMultiplicityText(c.EdgeID, c.Text)
		} else {
			ok = h.editor.SetMultiplicityPreset(c.EdgeID, c.Preset)
		}
	case commands.MoveNodeCommand:
		ok = h.editor.Move(c.ID, c.Position)
	case commands.ReconnectEdgeCommand:
		ok = h.editor.Reconnect(c.EdgeID, c.SourceID, c.TargetID)
	case commands.UndoCommand:
		ok = h.editor.Undo()
	case commands.RedoCommand:
		ok = h.editor.Redo()
	default:
		return fmt.Errorf("%w: %T", bus.ErrHandlerNotFound, cmd)
	}
	if !ok {
		return bus.ErrRejected
	}
	return nil
}

func (h *EditorHandlers) delete(ids []valueobjects.ElementID) bool {
	if len(ids) == 1 {
		return h.editor.Remove(ids[0])
	}
	h.editor.Select(ids...)
	return h.editor.RemoveSelection()
}
