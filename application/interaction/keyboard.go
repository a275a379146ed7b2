package interaction

import (
	"strings"

	"ontograph/application/commands"
	"ontograph/application/connection"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Key is a key press with its modifiers. Key uses DOM key names.
type Key struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool
}

func (k Key) command() bool {
	return k.Ctrl || k.Meta
}

// Keyboard maps shortcuts onto editor commands
type Keyboard struct {
	model    Model
	dispatch Dispatcher
	machine  *connection.Machine
	menu     *ContextMenu
	inline   *InlineEditor
	logger   *zap.Logger
}

// NewKeyboard creates the shortcut handler. machine, menu and inline may be nil.
func NewKeyboard(model Model, dispatch Dispatcher, machine *connection.Machine, menu *ContextMenu, inline *InlineEditor, logger *zap.Logger) *Keyboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keyboard{model: model, dispatch: dispatch, machine: machine, menu: menu, inline: inline, logger: logger}
}

// Press handles a key and reports whether it was consumed. While an inline
// edit is open only Enter and Escape are handled so text entry keeps working.
func (k *Keyboard) Press(key Key) bool {
	if k.inline != nil && k.inline.IsActive() {
		switch key.Key {
		case "Enter":
			k.inline.Commit()
			return true
		case "Escape":
			k.inline.Cancel()
			return true
		}
		return false
	}

	switch {
	case key.Key == "Escape":
		return k.escape()
	case key.Key == "Delete" || key.Key == "Backspace":
		return k.deleteSelection()
	case key.Key == "F2":
		return k.rename()
	case key.command() && strings.EqualFold(key.Key, "z") && key.Shift:
		return send(k.dispatch, k.logger, commands.RedoCommand{})
	case key.command() && strings.EqualFold(key.Key, "z"):
		return send(k.dispatch, k.logger, commands.UndoCommand{})
	case key.Ctrl && strings.EqualFold(key.Key, "y"):
		return send(k.dispatch, k.logger, commands.RedoCommand{})
	}
	return false
}

func (k *Keyboard) escape() bool {
	consumed := false
	if k.machine != nil && k.machine.IsArmed() {
		k.machine.Cancel()
		consumed = true
	}
	if k.menu != nil && k.menu.IsVisible() {
		k.menu.Close()
		consumed = true
	}
	return consumed
}

// deleteSelection removes the selected elements that are not imported
func (k *Keyboard) deleteSelection() bool {
	var ids []valueobjects.ElementID
	for _, id := range k.model.Selection() {
		if !k.model.IsImported(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return false
	}
	return send(k.dispatch, k.logger, commands.DeleteElementsCommand{IDs: ids})
}

func (k *Keyboard) rename() bool {
	sel := k.model.Selection()
	if k.inline == nil || len(sel) != 1 {
		return false
	}
	return k.inline.Begin(sel[0])
}
