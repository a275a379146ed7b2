package interaction

import (
	"errors"
	"fmt"

	"ontograph/application/commands"
	"ontograph/application/connection"
	"ontograph/application/state"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// MenuAction identifies a context menu entry
type MenuAction string

const (
	ActionAddClass           MenuAction = "add_class"
	ActionAddNote            MenuAction = "add_note"
	ActionAddDataProperty    MenuAction = "add_data_property"
	ActionConnect            MenuAction = "connect"
	ActionRename             MenuAction = "rename"
	ActionEditNote           MenuAction = "edit_note"
	ActionSetNoteType        MenuAction = "set_note_type"
	ActionSetMultiplicity    MenuAction = "set_multiplicity"
	ActionCustomMultiplicity MenuAction = "custom_multiplicity"
	ActionToggleEquivalence  MenuAction = "toggle_equivalence"
	ActionDelete             MenuAction = "delete"
)

// MenuItem is one entry. Arg carries the preset or note type for
// parameterised actions.
type MenuItem struct {
	Action MenuAction
	Label  string
	Arg    string
}

var (
	// ErrMenuHidden is returned by Choose when no menu is open
	ErrMenuHidden = errors.New("context menu is not open")
	// ErrNoSuchItem is returned when the chosen item is not on the menu
	ErrNoSuchItem = errors.New("menu item not available")
)

// ContextMenu is the Hidden / Visible state machine behind right-clicks
type ContextMenu struct {
	model    Model
	dispatch Dispatcher
	machine  *connection.Machine
	inline   *InlineEditor
	states   *state.Manager
	logger   *zap.Logger

	visible bool
	target  Target
	at      valueobjects.Position
	items   []MenuItem
}

// NewContextMenu creates a hidden menu. machine and inline may be nil, in
// which case their items are left out.
func NewContextMenu(model Model, dispatch Dispatcher, machine *connection.Machine, inline *InlineEditor, states *state.Manager, logger *zap.Logger) *ContextMenu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextMenu{model: model, dispatch: dispatch, machine: machine, inline: inline, states: states, logger: logger}
}

// IsVisible reports whether the menu is open
func (m *ContextMenu) IsVisible() bool {
	return m.visible
}

// Target returns what the open menu belongs to
func (m *ContextMenu) Target() Target {
	return m.target
}

// Open shows the menu for the element under the pointer, or for the canvas
// when id is zero. at is the canvas point of the click.
func (m *ContextMenu) Open(id valueobjects.ElementID, at valueobjects.Position) []MenuItem {
	m.target = resolve(m.model, id)
	m.at = at
	m.items = m.itemsFor(m.target)
	m.visible = true
	target := m.target.ID
	setState(m.states, func(s *state.EditorState) { s.MenuTarget = target })
	return m.Items()
}

// Items returns the entries of the open menu
func (m *ContextMenu) Items() []MenuItem {
	if !m.visible {
		return nil
	}
	return append([]MenuItem(nil), m.items...)
}

// Close hides the menu
func (m *ContextMenu) Close() {
	if !m.visible {
		return
	}
	m.visible = false
	m.items = nil
	setState(m.states, func(s *state.EditorState) { s.MenuTarget = valueobjects.ElementID{} })
}

// Choose runs an entry and closes the menu. It reports whether the action
// took effect.
func (m *ContextMenu) Choose(item MenuItem) (bool, error) {
	if !m.visible {
		return false, ErrMenuHidden
	}
	if !m.has(item) {
		return false, fmt.Errorf("%w: %s", ErrNoSuchItem, item.Action)
	}
	target, at := m.target, m.at
	m.Close()

	switch item.Action {
	case ActionAddClass:
		return send(m.dispatch, m.logger, commands.AddClassCommand{Position: at}), nil
	case ActionAddNote:
		if target.Kind == TargetCanvas {
			return send(m.dispatch, m.logger, commands.AddNoteCommand{Position: at}), nil
		}
		return send(m.dispatch, m.logger, commands.AddNoteCommand{TargetID: target.ID}), nil
	case ActionAddDataProperty:
		return send(m.dispatch, m.logger, commands.AddDataPropertyCommand{OwnerID: target.ID}), nil
	case ActionConnect:
		return m.machine.Arm(target.ID), nil
	case ActionRename, ActionEditNote:
		return m.inline.Begin(target.ID), nil
	case ActionCustomMultiplicity:
		return m.inline.BeginMultiplicity(target.ID), nil
	case ActionSetNoteType:
		return send(m.dispatch, m.logger, commands.SetNoteTypeCommand{ID: target.ID, NoteType: valueobjects.NoteType(item.Arg)}), nil
	case ActionSetMultiplicity:
		return send(m.dispatch, m.logger, commands.SetMultiplicityCommand{EdgeID: target.ID, Preset: valueobjects.MultiplicityPreset(item.Arg)}), nil
	case ActionToggleEquivalence:
		return send(m.dispatch, m.logger, commands.ToggleEquivalenceCommand{ID: target.ID}), nil
	case ActionDelete:
		return send(m.dispatch, m.logger, commands.DeleteElementsCommand{IDs: []valueobjects.ElementID{target.ID}}), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrNoSuchItem, item.Action)
	}
}

func (m *ContextMenu) has(item MenuItem) bool {
	for _, it := range m.items {
		if it.Action == item.Action && it.Arg == item.Arg {
			return true
		}
	}
	return false
}

// itemsFor builds the type-aware entry list. Imported targets only get
// entries that leave them untouched.
func (m *ContextMenu) itemsFor(t Target) []MenuItem {
	var items []MenuItem
	add := func(action MenuAction, label, arg string) {
		items = append(items, MenuItem{Action: action, Label: label, Arg: arg})
	}
	canConnect := m.machine != nil
	canEdit := m.inline != nil

	switch t.Kind {
	case TargetCanvas:
		add(ActionAddClass, "Add Class", "")
		add(ActionAddNote, "Add Note", "")

	case TargetNode:
		switch t.NodeKind {
		case entities.NodeKindClass:
			if canConnect {
				add(ActionConnect, "Connect to...", "")
			}
			add(ActionAddNote, "Add Note", "")
			if t.Imported {
				break
			}
			add(ActionAddDataProperty, "Add Data Property", "")
			if canEdit {
				add(ActionRename, "Rename", "")
			}
			add(ActionToggleEquivalence, "Toggle Equivalence", "")
			add(ActionDelete, "Delete", "")
		case entities.NodeKindDataProperty:
			add(ActionAddNote, "Add Note", "")
			if t.Imported {
				break
			}
			if canEdit {
				add(ActionRename, "Rename", "")
			}
			add(ActionToggleEquivalence, "Toggle Equivalence", "")
			add(ActionDelete, "Delete", "")
		case entities.NodeKindNote:
			if canConnect {
				add(ActionConnect, "Attach to...", "")
			}
			if t.Imported {
				break
			}
			if canEdit {
				add(ActionEditNote, "Edit Note", "")
			}
			for _, nt := range valueobjects.NoteTypes {
				add(ActionSetNoteType, "Mark as "+string(nt), string(nt))
			}
			add(ActionDelete, "Delete", "")
		}

	case TargetEdge:
		if t.Imported {
			break
		}
		switch t.EdgeKind {
		case entities.EdgeKindObjectProperty:
			if canEdit {
				add(ActionRename, "Rename", "")
			}
			for _, p := range valueobjects.Presets {
				add(ActionSetMultiplicity, presetLabel(p), string(p))
			}
			if canEdit {
				add(ActionCustomMultiplicity, "Custom Multiplicity...", "")
			}
			add(ActionToggleEquivalence, "Toggle Equivalence", "")
			add(ActionDelete, "Delete", "")
		case entities.EdgeKindNote:
			add(ActionDelete, "Delete", "")
		}
	}
	return items
}

func presetLabel(p valueobjects.MultiplicityPreset) string {
	m, err := valueobjects.MultiplicityFromPreset(p)
	if err != nil || m.Label() == "" {
		return "No Multiplicity"
	}
	return "Multiplicity " + m.Label()
}
