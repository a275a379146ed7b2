package valueobjects

import "time"

// Provenance records who created and last modified an element, and when.
// Fields are exported because the block travels verbatim inside snapshots.
type Provenance struct {
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	ModifiedAt time.Time `json:"modifiedAt"`
	ModifiedBy string    `json:"modifiedBy"`
}

// IsZero reports whether the element was never stamped
func (p Provenance) IsZero() bool {
	return p.CreatedAt.IsZero() && p.CreatedBy == "" &&
		p.ModifiedAt.IsZero() && p.ModifiedBy == ""
}

// Equals compares all four fields; times are compared with time.Equal
func (p Provenance) Equals(other Provenance) bool {
	return p.CreatedAt.Equal(other.CreatedAt) &&
		p.CreatedBy == other.CreatedBy &&
		p.ModifiedAt.Equal(other.ModifiedAt) &&
		p.ModifiedBy == other.ModifiedBy
}
