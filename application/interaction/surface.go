// Package interaction turns raw canvas input into editor commands: context
// menus, inline editing, palette drops, keyboard shortcuts and drags.
package interaction

import (
	"context"
	"errors"

	"ontograph/application/commands/bus"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Model is the read side of the editor plus the drag session
type Model interface {
	LookupNode(id valueobjects.ElementID) (*entities.Node, bool)
	LookupEdge(id valueobjects.ElementID) (*entities.Edge, bool)
	IsImported(id valueobjects.ElementID) bool
	Selection() []valueobjects.ElementID
	Select(ids ...valueobjects.ElementID)
	Config() *config.EditorConfig

	BeginDrag(id valueobjects.ElementID) bool
	DragTo(pos valueobjects.Position) bool
	EndDrag() bool
	CancelDrag() bool
}

// Dispatcher sends commands; *bus.CommandBus implements it
type Dispatcher interface {
	Send(ctx context.Context, cmd bus.Command) error
}

// send dispatches cmd and reports whether it was applied. Rejections are
// expected and stay silent.
func send(d Dispatcher, logger *zap.Logger, cmd bus.Command) bool {
	err := d.Send(context.Background(), cmd)
	if err == nil {
		return true
	}
	if !errors.Is(err, bus.ErrRejected) {
		logger.Debug("Interaction command not applied", zap.Error(err))
	}
	return false
}

// TargetKind classifies what a pointer event landed on
type TargetKind int

const (
	TargetCanvas TargetKind = iota
	TargetNode
	TargetEdge
)

// Target is a resolved pointer target
type Target struct {
	Kind     TargetKind
	ID       valueobjects.ElementID
	NodeKind entities.NodeKind
	EdgeKind entities.EdgeKind
	Imported bool
}

// resolve looks the id up in the model. Zero or unknown ids are the canvas.
func resolve(m Model, id valueobjects.ElementID) Target {
	if id.IsZero() {
		return Target{Kind: TargetCanvas}
	}
	if n, ok := m.LookupNode(id); ok {
		return Target{Kind: TargetNode, ID: id, NodeKind: n.Kind(), Imported: n.IsImported()}
	}
	if e, ok := m.LookupEdge(id); ok {
		return Target{Kind: TargetEdge, ID: id, EdgeKind: e.Kind(), Imported: e.IsImported()}
	}
	return Target{Kind: TargetCanvas}
}

// Viewport maps screen coordinates to canvas coordinates
type Viewport struct {
	PanX float64
	PanY float64
	Zoom float64
}

// ToCanvas converts a screen point
func (v Viewport) ToCanvas(screenX, screenY float64) (valueobjects.Position, error) {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return valueobjects.ToCanvas(screenX, screenY, v.PanX, v.PanY, zoom)
}

func setState(states *state.Manager, fn func(*state.EditorState)) {
	if states != nil {
		states.Set(fn)
	}
}
