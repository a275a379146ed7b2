package interaction

import (
	"ontograph/application/commands"
	"ontograph/application/state"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// EditMode says which attribute the inline editor is changing
type EditMode int

const (
	EditNone EditMode = iota
	EditLabel
	EditNoteContent
	EditMultiplicity
)

// InlineEditor edits one attribute in place. Begin opens it with the current
// value as draft; Commit applies the draft as one undoable change; Cancel
// leaves the graph untouched.
type InlineEditor struct {
	model    Model
	dispatch Dispatcher
	states   *state.Manager
	logger   *zap.Logger

	mode     EditMode
	target   valueobjects.ElementID
	original string
	draft    string
}

// NewInlineEditor creates a closed inline editor
func NewInlineEditor(model Model, dispatch Dispatcher, states *state.Manager, logger *zap.Logger) *InlineEditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InlineEditor{model: model, dispatch: dispatch, states: states, logger: logger}
}

// IsActive reports whether an edit is open
func (e *InlineEditor) IsActive() bool {
	return e.mode != EditNone
}

// Mode returns the open edit mode
func (e *InlineEditor) Mode() EditMode {
	return e.mode
}

// Target returns the element being edited
func (e *InlineEditor) Target() valueobjects.ElementID {
	return e.target
}

// Draft returns the text being edited
func (e *InlineEditor) Draft() string {
	return e.draft
}

// Begin opens a label edit, or a content edit for notes. Imported elements
// and note edges cannot be edited.
func (e *InlineEditor) Begin(id valueobjects.ElementID) bool {
	if n, ok := e.model.LookupNode(id); ok {
		if n.IsImported() {
			return false
		}
		if n.Kind() == entities.NodeKindNote {
			e.open(EditNoteContent, id, n.Content())
		} else {
			e.open(EditLabel, id, n.Label())
		}
		return true
	}
	if ed, ok := e.model.LookupEdge(id); ok {
		if ed.IsImported() || ed.Kind() != entities.EdgeKindObjectProperty {
			return false
		}
		e.open(EditLabel, id, ed.Label())
		return true
	}
	return false
}

// BeginMultiplicity opens the custom multiplicity text entry for an object property
func (e *InlineEditor) BeginMultiplicity(edgeID valueobjects.ElementID) bool {
	ed, ok := e.model.LookupEdge(edgeID)
	if !ok || ed.IsImported() || ed.Kind() != entities.EdgeKindObjectProperty {
		return false
	}
	e.open(EditMultiplicity, edgeID, ed.Multiplicity().Label())
	return true
}

// SetDraft replaces the draft text
func (e *InlineEditor) SetDraft(text string) {
	if e.IsActive() {
		e.draft = text
	}
}

// Commit applies the draft and closes the editor. An unchanged draft closes
// without a mutation.
func (e *InlineEditor) Commit() bool {
	if !e.IsActive() {
		return false
	}
	mode, target, draft, original := e.mode, e.target, e.draft, e.original
	e.close()

	if draft == original {
		return true
	}
	switch mode {
	case EditLabel, EditNoteContent:
		return send(e.dispatch, e.logger, commands.RenameElementCommand{ID: target, Label: draft})
	case EditMultiplicity:
		if draft == "" {
			return send(e.dispatch, e.logger, commands.SetMultiplicityCommand{EdgeID: target, Preset: valueobjects.PresetNone})
		}
		return send(e.dispatch, e.logger, commands.SetMultiplicityCommand{
			EdgeID: target,
			Preset: valueobjects.PresetCustom,
			Text:   draft,
		})
	}
	return false
}

// Cancel closes the editor without changing anything
func (e *InlineEditor) Cancel() bool {
	if !e.IsActive() {
		return false
	}
	e.close()
	return true
}

func (e *InlineEditor) open(mode EditMode, id valueobjects.ElementID, value string) {
	e.mode = mode
	e.target = id
	e.original = value
	e.draft = value
	setState(e.states, func(s *state.EditorState) { s.EditTarget = id })
}

func (e *InlineEditor) close() {
	e.mode = EditNone
	e.target = valueobjects.ElementID{}
	e.original = ""
	e.draft = ""
	setState(e.states, func(s *state.EditorState) { s.EditTarget = valueobjects.ElementID{} })
}
