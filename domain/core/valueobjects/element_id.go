package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ElementID identifies a node or an edge. Nodes and edges share one id namespace.
// Value objects are immutable and have no identity beyond their value
type ElementID struct {
	value string
}

// NewElementID creates a new random ElementID
func NewElementID() ElementID {
	return ElementID{value: uuid.New().String()}
}

// NewElementIDFromString creates an ElementID from an existing string.
// Loaded graphs may carry ids minted by other tools, so any non-blank string is accepted.
func NewElementIDFromString(id string) (ElementID, error) {
	if strings.TrimSpace(id) == "" {
		return ElementID{}, errors.New("element ID cannot be empty")
	}
	return ElementID{value: id}, nil
}

// MustElementID is NewElementIDFromString for literals in tests and fixtures.
func MustElementID(id string) ElementID {
	eid, err := NewElementIDFromString(id)
	if err != nil {
		panic(err)
	}
	return eid
}

// String returns the string representation of the ElementID
func (id ElementID) String() string {
	return id.value
}

// Equals checks if two ElementIDs are equal
func (id ElementID) Equals(other ElementID) bool {
	return id.value == other.value
}

// IsZero checks if the ElementID is the zero value
func (id ElementID) IsZero() bool {
	return id.value == ""
}

// IsUUID reports whether the id was minted by this editor
func (id ElementID) IsUUID() bool {
	_, err := uuid.Parse(id.value)
	return err == nil
}

// MarshalJSON implements json.Marshaler
func (id ElementID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ElementID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("ElementID must be a string")
	}
	id.value = s
	return nil
}
