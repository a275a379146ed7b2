package aggregates

import (
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
)

// Direction selects which side of a Change is applied
type Direction int

const (
	// Forward applies the after-states (redo)
	Forward Direction = iota
	// Backward applies the before-states (undo)
	Backward
)

// ElementChange holds the full state of one element before and after a
// mutation. A nil side means the element did not exist on that side.
// Exactly one of the node pair or the edge pair is used.
type ElementChange struct {
	ID         valueobjects.ElementID
	NodeBefore *entities.NodeRecord
	NodeAfter  *entities.NodeRecord
	EdgeBefore *entities.EdgeRecord
	EdgeAfter  *entities.EdgeRecord
}

// IsEdge reports whether the change concerns an edge
func (c ElementChange) IsEdge() bool {
	return c.EdgeBefore != nil || c.EdgeAfter != nil
}

// Created reports whether the element did not exist before
func (c ElementChange) Created() bool {
	return c.NodeBefore == nil && c.EdgeBefore == nil
}

// Deleted reports whether the element no longer exists after
func (c ElementChange) Deleted() bool {
	return c.NodeAfter == nil && c.EdgeAfter == nil
}

// Change is the set of element transitions committed by one mutation.
// It is its own inverse descriptor: applying it Backward restores the
// exact prior state, provenance included.
type Change struct {
	Elements []ElementChange
}

// IsEmpty reports whether the mutation had no effect
func (c Change) IsEmpty() bool {
	return len(c.Elements) == 0
}

// Merge concatenates two changes into one entry. The first change is applied first.
func (c Change) Merge(other Change) Change {
	out := make([]ElementChange, 0, len(c.Elements)+len(other.Elements))
	out = append(out, c.Elements...)
	out = append(out, other.Elements...)
	return Change{Elements: out}
}

// Squash collapses repeated transitions of the same element so that only the
// first before-state and the last after-state remain. Drag sessions use it.
func (c Change) Squash() Change {
	index := make(map[valueobjects.ElementID]int)
	out := make([]ElementChange, 0, len(c.Elements))
	for _, ec := range c.Elements {
		if i, ok := index[ec.ID]; ok {
			out[i].NodeAfter = ec.NodeAfter
			out[i].EdgeAfter = ec.EdgeAfter
			continue
		}
		index[ec.ID] = len(out)
		out = append(out, ec)
	}
	return Change{Elements: out}
}

// Touches reports whether the change involves the element
func (c Change) Touches(id valueobjects.ElementID) bool {
	for _, ec := range c.Elements {
		if ec.ID.Equals(id) {
			return true
		}
	}
	return false
}

func nodeChange(before, after *entities.Node) ElementChange {
	ec := ElementChange{}
	if before != nil {
		r := before.Record()
		ec.ID = r.ID
		ec.NodeBefore = &r
	}
	if after != nil {
		r := after.Record()
		ec.ID = r.ID
		ec.NodeAfter = &r
	}
	return ec
}

func edgeChange(before, after *entities.Edge) ElementChange {
	ec := ElementChange{}
	if before != nil {
		r := before.Record()
		ec.ID = r.ID
		ec.EdgeBefore = &r
	}
	if after != nil {
		r := after.Record()
		ec.ID = r.ID
		ec.EdgeAfter = &r
	}
	return ec
}
