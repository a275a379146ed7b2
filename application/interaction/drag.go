package interaction

import (
	"ontograph/domain/core/valueobjects"
)

// DragController moves a node with the pointer. The grab offset is kept so
// the node does not jump to the pointer; the editor records the whole
// gesture as one snapped move.
type DragController struct {
	model    Model
	viewport Viewport

	active bool
	dx, dy float64
}

// NewDragController creates an idle drag controller
func NewDragController(model Model) *DragController {
	return &DragController{model: model}
}

// SetViewport updates the pan and zoom used to convert pointer positions
func (d *DragController) SetViewport(v Viewport) {
	d.viewport = v
}

// IsActive reports whether a drag is running
func (d *DragController) IsActive() bool {
	return d.active
}

// Start begins dragging id from the screen point. Imported nodes do not move.
func (d *DragController) Start(id valueobjects.ElementID, screenX, screenY float64) bool {
	node, ok := d.model.LookupNode(id)
	if !ok {
		return false
	}
	at, err := d.viewport.ToCanvas(screenX, screenY)
	if err != nil {
		return false
	}
	if !d.model.BeginDrag(id) {
		return false
	}
	d.active = true
	d.dx = node.Position().X() - at.X()
	d.dy = node.Position().Y() - at.Y()
	return true
}

// Move follows the pointer
func (d *DragController) Move(screenX, screenY float64) bool {
	if !d.active {
		return false
	}
	at, err := d.viewport.ToCanvas(screenX, screenY)
	if err != nil {
		return false
	}
	pos, err := valueobjects.NewPosition(at.X()+d.dx, at.Y()+d.dy)
	if err != nil {
		return false
	}
	return d.model.DragTo(pos)
}

// End drops the node and records the move
func (d *DragController) End() bool {
	if !d.active {
		return false
	}
	d.active = false
	return d.model.EndDrag()
}

// Cancel puts the node back where the drag started
func (d *DragController) Cancel() bool {
	if !d.active {
		return false
	}
	d.active = false
	return d.model.CancelDrag()
}
