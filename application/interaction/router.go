package interaction

import (
	"ontograph/application/connection"
	"ontograph/application/state"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// EventKind names a raw input event from the canvas
type EventKind string

const (
	EventClick        EventKind = "click"
	EventDoubleClick  EventKind = "dblclick"
	EventContextClick EventKind = "contextmenu"
	EventHandleDown   EventKind = "handle_down"
	EventHandleUp     EventKind = "handle_up"
	EventDragStart    EventKind = "drag_start"
	EventDragMove     EventKind = "drag_move"
	EventDragEnd      EventKind = "drag_end"
	EventDrop         EventKind = "drop"
	EventKey          EventKind = "key"
)

// Event is one pointer or key event. Target is the element under the
// pointer, zero over empty canvas. Additive is a shift or ctrl click.
type Event struct {
	Kind     EventKind
	Target   valueobjects.ElementID
	ScreenX  float64
	ScreenY  float64
	Additive bool
	Key      Key
	Data     []byte
}

// Surface wires the interaction controllers to one editor
type Surface struct {
	model   Model
	driver  connection.Driver
	machine *connection.Machine

	Menu     *ContextMenu
	Inline   *InlineEditor
	Palette  *Palette
	Keyboard *Keyboard
	Drag     *DragController

	viewport Viewport
	logger   *zap.Logger
}

// NewSurface builds the controllers around model. The driver is picked by
// the caller from the renderer capabilities.
func NewSurface(model Model, dispatch Dispatcher, machine *connection.Machine, driver connection.Driver, states *state.Manager, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	inline := NewInlineEditor(model, dispatch, states, logger)
	menu := NewContextMenu(model, dispatch, machine, inline, states, logger)
	return &Surface{
		model:    model,
		driver:   driver,
		machine:  machine,
		Menu:     menu,
		Inline:   inline,
		Palette:  NewPalette(model, dispatch, logger),
		Keyboard: NewKeyboard(model, dispatch, machine, menu, inline, logger),
		Drag:     NewDragController(model),
		viewport: Viewport{Zoom: 1},
		logger:   logger,
	}
}

// SetViewport updates pan and zoom
func (s *Surface) SetViewport(v Viewport) {
	s.viewport = v
	s.Drag.SetViewport(v)
}

// ConnectionMode returns the gesture mode of the connection driver
func (s *Surface) ConnectionMode() connection.Mode {
	return s.driver.Mode()
}

// Handle routes an event and reports whether it changed anything
func (s *Surface) Handle(ev Event) bool {
	switch ev.Kind {
	case EventClick:
		return s.click(ev)
	case EventDoubleClick:
		s.Menu.Close()
		return s.Inline.Begin(ev.Target)
	case EventContextClick:
		s.commitInline()
		at, err := s.viewport.ToCanvas(ev.ScreenX, ev.ScreenY)
		if err != nil {
			return false
		}
		s.Menu.Open(ev.Target, at)
		return true
	case EventHandleDown:
		s.Menu.Close()
		s.driver.PointerDown(ev.Target)
		return s.machine.IsArmed()
	case EventHandleUp:
		armed := s.machine.IsArmed()
		s.driver.PointerUp(ev.Target)
		return armed
	case EventDragStart:
		s.Menu.Close()
		s.commitInline()
		return s.Drag.Start(ev.Target, ev.ScreenX, ev.ScreenY)
	case EventDragMove:
		return s.Drag.Move(ev.ScreenX, ev.ScreenY)
	case EventDragEnd:
		return s.Drag.End()
	case EventDrop:
		return s.Palette.Drop(ev.Data, ev.ScreenX, ev.ScreenY, s.viewport, ev.Target)
	case EventKey:
		if ev.Key.Key == "Escape" && s.Drag.IsActive() {
			return s.Drag.Cancel()
		}
		return s.Keyboard.Press(ev.Key)
	}
	s.logger.Debug("Unhandled canvas event", zap.String("kind", string(ev.Kind)))
	return false
}

func (s *Surface) click(ev Event) bool {
	if s.Menu.IsVisible() {
		s.Menu.Close()
		return true
	}
	s.commitInline()
	wasArmed := s.machine.IsArmed()
	if s.driver.Click(ev.Target) && wasArmed {
		return true
	}

	if ev.Target.IsZero() {
		s.model.Select()
		return true
	}
	if ev.Additive {
		s.model.Select(toggle(s.model.Selection(), ev.Target)...)
		return true
	}
	s.model.Select(ev.Target)
	return true
}

// commitInline applies an open edit when focus moves away
func (s *Surface) commitInline() {
	if s.Inline.IsActive() {
		s.Inline.Commit()
	}
}

func toggle(sel []valueobjects.ElementID, id valueobjects.ElementID) []valueobjects.ElementID {
	out := make([]valueobjects.ElementID, 0, len(sel)+1)
	found := false
	for _, s := range sel {
		if s.Equals(id) {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, id)
	}
	return out
}
