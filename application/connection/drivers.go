package connection

import (
	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
)

// Mode names the gesture that drives the machine
type Mode string

const (
	ModeDragHandle     Mode = "drag_handle"
	ModeClickToConnect Mode = "click_to_connect"
)

// Committer creates the edge a completed connection describes
type Committer interface {
	CommitEdge(spec aggregates.EdgeSpec) bool
}

// Driver turns pointer gestures into machine transitions.
// A zero target id means the gesture ended over empty canvas.
type Driver interface {
	Mode() Mode
	PointerDown(handleOwner valueobjects.ElementID)
	PointerUp(target valueobjects.ElementID)
	// Click reports whether the click was part of a connection gesture
	Click(target valueobjects.ElementID) bool
}

// SelectDriver picks drag-handle mode when the renderer exposes handles and
// falls back to click-to-connect otherwise
func SelectDriver(caps ports.Capabilities, m *Machine, committer Committer) Driver {
	if caps.ConnectionHandles {
		return &DragDriver{machine: m, committer: committer}
	}
	return &ClickDriver{machine: m, committer: committer}
}

// DragDriver arms on pointer-down over a handle and completes on pointer-up
type DragDriver struct {
	machine   *Machine
	committer Committer
}

func (d *DragDriver) Mode() Mode { return ModeDragHandle }

func (d *DragDriver) PointerDown(handleOwner valueobjects.ElementID) {
	d.machine.Arm(handleOwner)
}

func (d *DragDriver) PointerUp(target valueobjects.ElementID) {
	if !d.machine.IsArmed() {
		return
	}
	if target.IsZero() {
		d.machine.Cancel()
		return
	}
	if spec, ok := d.machine.Complete(target); ok {
		d.committer.CommitEdge(spec)
	}
}

// Click completes a connection armed elsewhere, for example from the context menu
func (d *DragDriver) Click(target valueobjects.ElementID) bool {
	if !d.machine.IsArmed() {
		return false
	}
	d.PointerUp(target)
	return true
}

// ClickDriver arms on the first node click and completes on the second
type ClickDriver struct {
	machine   *Machine
	committer Committer
}

func (d *ClickDriver) Mode() Mode { return ModeClickToConnect }

func (d *ClickDriver) PointerDown(valueobjects.ElementID) {}

func (d *ClickDriver) PointerUp(valueobjects.ElementID) {}

func (d *ClickDriver) Click(target valueobjects.ElementID) bool {
	state := d.machine.State()
	if state.Kind == Idle {
		if target.IsZero() {
			return false
		}
		return d.machine.Arm(target)
	}

	if target.IsZero() || target.Equals(state.SourceID) {
		d.machine.Cancel()
		return true
	}
	if spec, ok := d.machine.Complete(target); ok {
		d.committer.CommitEdge(spec)
	}
	return true
}
