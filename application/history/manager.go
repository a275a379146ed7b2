// Package history keeps the bounded linear undo/redo stacks.
package history

import (
	"errors"
	"sync"

	"ontograph/domain/core/aggregates"

	"go.uber.org/zap"
)

// DefaultMaxDepth is the undo depth used when none is configured
const DefaultMaxDepth = 50

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Entry is one undoable user action
type Entry struct {
	Label  string
	Change aggregates.Change
}

// Applier moves the model to one side of a change
type Applier interface {
	Apply(change aggregates.Change, dir aggregates.Direction) error
}

// Manager records committed changes and replays them in either direction.
// Recording a new entry clears the redo stack. When the undo stack exceeds
// its bound the oldest entry is dropped.
type Manager struct {
	mu        sync.Mutex
	undo      []Entry
	redo      []Entry
	maxDepth  int
	suspended int
	logger    *zap.Logger
}

// NewManager creates a history bounded to maxDepth entries
func NewManager(maxDepth int, logger *zap.Logger) *Manager {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		undo:     make([]Entry, 0, maxDepth),
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Record pushes an entry. Empty changes and changes made while suspended are ignored.
func (m *Manager) Record(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.suspended > 0 || entry.Change.IsEmpty() {
		return
	}

	m.undo = append(m.undo, entry)
	if len(m.undo) > m.maxDepth {
		evicted := len(m.undo) - m.maxDepth
		m.logger.Debug("Evicting oldest undo entries",
			zap.Int("count", evicted),
			zap.String("label", m.undo[0].Label))
		// copy down so the backing array does not grow without bound
		m.undo = append(m.undo[:0], m.undo[evicted:]...)
	}
	m.redo = m.redo[:0]
}

// Undo applies the newest entry backward and moves it to the redo stack.
// If the applier fails the entry stays where it was.
func (m *Manager) Undo(applier Applier) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undo) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	entry := m.undo[len(m.undo)-1]
	if err := applier.Apply(entry.Change, aggregates.Backward); err != nil {
		return Entry{}, err
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, entry)
	return entry, nil
}

// Redo applies the newest undone entry forward and moves it back to the undo stack
func (m *Manager) Redo(applier Applier) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return Entry{}, ErrNothingToRedo
	}
	entry := m.redo[len(m.redo)-1]
	if err := applier.Apply(entry.Change, aggregates.Forward); err != nil {
		return Entry{}, err
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, entry)
	return entry, nil
}

// CanUndo reports whether Undo has an entry to apply
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether Redo has an entry to apply
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// UndoDepth returns the number of undoable entries
func (m *Manager) UndoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// PeekUndo returns the label of the entry Undo would apply
func (m *Manager) PeekUndo() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return "", false
	}
	return m.undo[len(m.undo)-1].Label, true
}

// Clear drops both stacks
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = m.undo[:0]
	m.redo = m.redo[:0]
}

// Suspend stops recording until the matching Resume. Calls nest.
func (m *Manager) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended++
}

// Resume undoes one Suspend
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suspended > 0 {
		m.suspended--
	}
}

// IsSuspended reports whether recording is off
func (m *Manager) IsSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended > 0
}
