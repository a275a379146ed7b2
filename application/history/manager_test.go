package history

import (
	"errors"
	"fmt"
	"testing"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockApplier struct {
	mock.Mock
}

func (m *mockApplier) Apply(change aggregates.Change, dir aggregates.Direction) error {
	args := m.Called(change, dir)
	return args.Error(0)
}

func entry(label string) Entry {
	return Entry{
		Label: label,
		Change: aggregates.Change{Elements: []aggregates.ElementChange{
			{ID: valueobjects.MustElementID(label)},
		}},
	}
}

func TestManager_UndoRedo(t *testing.T) {
	// Arrange
	h := NewManager(10, zap.NewNop())
	applier := new(mockApplier)
	e := entry("move")
	applier.On("Apply", e.Change, aggregates.Backward).Return(nil).Once()
	applier.On("Apply", e.Change, aggregates.Forward).Return(nil).Once()
	h.Record(e)

	// Act
	undone, err := h.Undo(applier)
	require.NoError(t, err)
	redone, err := h.Redo(applier)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "move", undone.Label)
	assert.Equal(t, "move", redone.Label)
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	applier.AssertExpectations(t)
}

func TestManager_RecordClearsRedo(t *testing.T) {
	h := NewManager(10, zap.NewNop())
	applier := new(mockApplier)
	applier.On("Apply", mock.Anything, mock.Anything).Return(nil)

	h.Record(entry("a"))
	_, err := h.Undo(applier)
	require.NoError(t, err)
	assert.True(t, h.CanRedo())

	h.Record(entry("b"))

	assert.False(t, h.CanRedo())
	_, err = h.Redo(applier)
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestManager_EvictsOldestBeyondBound(t *testing.T) {
	h := NewManager(50, zap.NewNop())
	for i := 0; i < 51; i++ {
		h.Record(entry(fmt.Sprintf("op-%d", i)))
	}

	assert.Equal(t, 50, h.UndoDepth())

	applier := new(mockApplier)
	applier.On("Apply", mock.Anything, aggregates.Backward).Return(nil)
	var last Entry
	for h.CanUndo() {
		e, err := h.Undo(applier)
		require.NoError(t, err)
		last = e
	}
	// op-0 was evicted, so the oldest reachable entry is op-1
	assert.Equal(t, "op-1", last.Label)
}

func TestManager_SuspendIgnoresRecords(t *testing.T) {
	h := NewManager(10, zap.NewNop())

	h.Suspend()
	h.Suspend()
	h.Record(entry("load"))
	h.Resume()
	h.Record(entry("still suspended"))
	h.Resume()
	h.Record(entry("edit"))

	assert.Equal(t, 1, h.UndoDepth())
	label, ok := h.PeekUndo()
	assert.True(t, ok)
	assert.Equal(t, "edit", label)
}

func TestManager_EmptyChangeNotRecorded(t *testing.T) {
	h := NewManager(10, zap.NewNop())
	h.Record(Entry{Label: "noop"})
	assert.False(t, h.CanUndo())
}

func TestManager_FailedApplyKeepsEntry(t *testing.T) {
	h := NewManager(10, zap.NewNop())
	applier := new(mockApplier)
	applier.On("Apply", mock.Anything, aggregates.Backward).Return(errors.New("boom"))
	h.Record(entry("a"))

	_, err := h.Undo(applier)

	assert.Error(t, err)
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestManager_UndoOnEmpty(t *testing.T) {
	h := NewManager(0, nil)
	_, err := h.Undo(new(mockApplier))
	assert.ErrorIs(t, err, ErrNothingToUndo)
}
