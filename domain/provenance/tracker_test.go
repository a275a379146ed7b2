package provenance

import (
	"testing"
	"time"

	"ontograph/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
)

type steppingClock struct {
	t time.Time
}

func (c *steppingClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func TestTracker_StampCreate(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(FixedClock{At: at}, StaticIdentity("alice"))

	p := tracker.StampCreate(valueobjects.Provenance{})

	assert.Equal(t, at, p.CreatedAt)
	assert.Equal(t, "alice", p.CreatedBy)
	assert.Equal(t, at, p.ModifiedAt)
	assert.Equal(t, "alice", p.ModifiedBy)
}

func TestTracker_StampModifyKeepsCreation(t *testing.T) {
	// Arrange
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppingClock{t: start}
	created := NewTracker(clock, StaticIdentity("alice")).StampCreate(valueobjects.Provenance{})

	// Act
	modified := NewTracker(clock, StaticIdentity("bob")).StampModify(created)

	// Assert
	assert.Equal(t, created.CreatedAt, modified.CreatedAt)
	assert.Equal(t, "alice", modified.CreatedBy)
	assert.Equal(t, "bob", modified.ModifiedBy)
	assert.True(t, modified.ModifiedAt.After(created.ModifiedAt))
}

func TestTracker_StampModifyOnUnstampedElement(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(FixedClock{At: at}, StaticIdentity("carol"))

	p := tracker.StampModify(valueobjects.Provenance{})

	assert.Equal(t, "carol", p.CreatedBy)
	assert.Equal(t, at, p.CreatedAt)
}

func TestTracker_IsPure(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(FixedClock{At: at}, StaticIdentity("alice"))
	in := valueobjects.Provenance{}

	_ = tracker.StampCreate(in)

	assert.True(t, in.IsZero())
}
