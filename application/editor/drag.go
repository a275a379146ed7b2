package editor

import (
	"ontograph/application/history"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// dragSession accumulates the unrecorded moves of one drag gesture
type dragSession struct {
	nodeID valueobjects.ElementID
	start  valueobjects.Position
	moves  aggregates.Change
}

// BeginDrag starts moving a node. Imported nodes cannot be dragged.
func (e *Editor) BeginDrag(id valueobjects.ElementID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return false
	}
	node, ok := e.graph.Node(id)
	if !ok || node.IsImported() {
		return false
	}
	e.drag = &dragSession{nodeID: id, start: node.Position()}
	return true
}

// IsDragging reports whether a drag session is open
func (e *Editor) IsDragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}

// DragTo moves the dragged node without recording history
func (e *Editor) DragTo(pos valueobjects.Position) bool {
	e.mu.Lock()
	session := e.drag
	e.mu.Unlock()
	if session == nil {
		return false
	}
	return e.run("drag", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		change, err := g.MoveNode(session.nodeID, pos)
		if err == nil {
			session.moves = session.moves.Merge(change)
		}
		return change, err
	}, false)
}

// EndDrag snaps the node into place and records the whole gesture as one
// undoable move from its start position
func (e *Editor) EndDrag() bool {
	e.mu.Lock()
	session := e.drag
	e.drag = nil
	var final valueobjects.Position
	if session != nil && e.graph != nil {
		if node, ok := e.graph.Node(session.nodeID); ok {
			final = e.snap(node.Position())
		}
	}
	e.mu.Unlock()
	if session == nil {
		return false
	}

	e.run("drag", func(g *aggregates.OntologyGraph) (aggregates.Change, error) {
		change, err := g.MoveNode(session.nodeID, final)
		if err == nil {
			session.moves = session.moves.Merge(change)
		}
		return change, err
	}, false)

	gesture := session.moves.Squash()
	if gesture.IsEmpty() {
		return true
	}
	if final.Equals(session.start) {
		// dropped where it started; restore the original stamps too
		if err := e.Apply(gesture, aggregates.Backward); err != nil {
			e.logger.Warn("Failed to restore dragged node", zap.Error(err))
		}
		return true
	}
	e.history.Record(history.Entry{Label: "move", Change: gesture})
	e.observeMutation("move", true)
	return true
}

// CancelDrag puts the node back where the drag started
func (e *Editor) CancelDrag() bool {
	e.mu.Lock()
	session := e.drag
	e.drag = nil
	e.mu.Unlock()
	if session == nil {
		return false
	}
	gesture := session.moves.Squash()
	if gesture.IsEmpty() {
		return true
	}
	if err := e.Apply(gesture, aggregates.Backward); err != nil {
		e.logger.Warn("Failed to cancel drag", zap.Error(err))
		return false
	}
	return true
}
