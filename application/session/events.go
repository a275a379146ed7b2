package session

import (
	"encoding/json"
	"fmt"

	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Envelope type names accepted by DecodeEvent
const (
	TypeSelected = "ontology:selected"
	TypeReset    = "ontology:reset"
	TypeRenamed  = "ontology:renamed"
	TypeDeleted  = "ontology:deleted"
)

// Event is one inbound ontology lifecycle event
type Event interface {
	eventType() string
}

// Selected makes an ontology the active one
type Selected struct {
	IRI       valueobjects.OntologyIRI `json:"iri" validate:"required"`
	Label     string                   `json:"label"`
	ProjectID string                   `json:"projectId"`
}

// Reset leaves no ontology active
type Reset struct{}

// Renamed changes an ontology's display label
type Renamed struct {
	IRI   valueobjects.OntologyIRI `json:"iri" validate:"required"`
	Label string                   `json:"label" validate:"required"`
}

// Deleted reports that an ontology no longer exists
type Deleted struct {
	IRI valueobjects.OntologyIRI `json:"iri" validate:"required"`
}

func (Selected) eventType() string { return TypeSelected }
func (Reset) eventType() string    { return TypeReset }
func (Renamed) eventType() string  { return TypeRenamed }
func (Deleted) eventType() string  { return TypeDeleted }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var validate = validator.New()

// DecodeEvent parses {"type": "...", "payload": {...}} into a typed event
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, pkgerrors.NewValidationError("malformed event envelope").WithCause(err)
	}

	var ev Event
	switch env.Type {
	case TypeSelected:
		var p Selected
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		ev = p
	case TypeReset:
		ev = Reset{}
	case TypeRenamed:
		var p Renamed
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		ev = p
	case TypeDeleted:
		var p Deleted
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		ev = p
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown event type %q", env.Type))
	}
	return ev, nil
}

// EncodeEvent wraps an event in its envelope
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: ev.eventType(), Payload: payload})
}

func decodePayload(raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 {
		return pkgerrors.NewValidationError("event payload is required")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return pkgerrors.NewValidationError("malformed event payload").WithCause(err)
	}
	if err := validate.Struct(target); err != nil {
		return pkgerrors.NewValidationError("invalid event payload").WithCause(err)
	}
	return nil
}
