// Package provenance stamps creation and modification metadata on graph elements.
package provenance

import (
	"time"

	"ontograph/domain/core/valueobjects"
)

// Clock supplies the wall-clock time used for stamps
type Clock interface {
	Now() time.Time
}

// IdentityProvider supplies the id of the user making the change
type IdentityProvider interface {
	CurrentUser() string
}

// SystemClock reads the real clock in UTC, truncated to milliseconds so
// stamps survive a JSON round trip unchanged.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FixedClock always returns the same instant
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// StaticIdentity always reports the same user
type StaticIdentity string

func (s StaticIdentity) CurrentUser() string {
	return string(s)
}

// Tracker produces stamped copies of provenance blocks
type Tracker struct {
	clock    Clock
	identity IdentityProvider
}

// NewTracker creates a tracker
func NewTracker(clock Clock, identity IdentityProvider) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if identity == nil {
		identity = StaticIdentity("")
	}
	return &Tracker{clock: clock, identity: identity}
}

// Now reads the tracker's clock
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// StampCreate sets all four fields to the current time and user
func (t *Tracker) StampCreate(p valueobjects.Provenance) valueobjects.Provenance {
	now := t.clock.Now()
	user := t.identity.CurrentUser()
	p.CreatedAt = now
	p.CreatedBy = user
	p.ModifiedAt = now
	p.ModifiedBy = user
	return p
}

// StampModify updates the modification fields. An element that was never
// stamped gets creation fields as well.
func (t *Tracker) StampModify(p valueobjects.Provenance) valueobjects.Provenance {
	if p.CreatedAt.IsZero() {
		return t.StampCreate(p)
	}
	p.ModifiedAt = t.clock.Now()
	p.ModifiedBy = t.identity.CurrentUser()
	return p
}
