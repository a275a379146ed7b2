package events

import (
	"time"

	"ontograph/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names
const (
	TypeNodeAdded       = "ontology.node_added"
	TypeEdgeAdded       = "ontology.edge_added"
	TypeElementRemoved  = "ontology.element_removed"
	TypeElementUpdated  = "ontology.element_updated"
	TypeGraphReplaced   = "ontology.graph_replaced"
	TypeSnapshotSaved   = "ontology.snapshot_saved"
	TypeOntologyRenamed = "ontology.renamed"
	TypeOntologyDeleted = "ontology.deleted"
)

func newBase(aggregateID, eventType string, timestamp time.Time, version int) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     version,
	}
}

// Graph events

// NodeAdded is raised when a node enters the graph
type NodeAdded struct {
	BaseEvent
	NodeID valueobjects.ElementID `json:"node_id"`
	Kind   string                 `json:"kind"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(iri valueobjects.OntologyIRI, nodeID valueobjects.ElementID, kind string, timestamp time.Time, version int) NodeAdded {
	return NodeAdded{
		BaseEvent: newBase(iri.String(), TypeNodeAdded, timestamp, version),
		NodeID:    nodeID,
		Kind:      kind,
	}
}

// EdgeAdded is raised when an edge enters the graph
type EdgeAdded struct {
	BaseEvent
	EdgeID   valueobjects.ElementID `json:"edge_id"`
	Kind     string                 `json:"kind"`
	SourceID valueobjects.ElementID `json:"source_id"`
	TargetID valueobjects.ElementID `json:"target_id"`
}

// NewEdgeAdded creates an EdgeAdded event
func NewEdgeAdded(iri valueobjects.OntologyIRI, edgeID valueobjects.ElementID, kind string, source, target valueobjects.ElementID, timestamp time.Time, version int) EdgeAdded {
	return EdgeAdded{
		BaseEvent: newBase(iri.String(), TypeEdgeAdded, timestamp, version),
		EdgeID:    edgeID,
		Kind:      kind,
		SourceID:  source,
		TargetID:  target,
	}
}

// ElementRemoved is raised for each node or edge leaving the graph
type ElementRemoved struct {
	BaseEvent
	ElementID valueobjects.ElementID `json:"element_id"`
	IsEdge    bool                   `json:"is_edge"`
}

// NewElementRemoved creates an ElementRemoved event
func NewElementRemoved(iri valueobjects.OntologyIRI, id valueobjects.ElementID, isEdge bool, timestamp time.Time, version int) ElementRemoved {
	return ElementRemoved{
		BaseEvent: newBase(iri.String(), TypeElementRemoved, timestamp, version),
		ElementID: id,
		IsEdge:    isEdge,
	}
}

// ElementUpdated is raised when an element changes in place
type ElementUpdated struct {
	BaseEvent
	ElementID valueobjects.ElementID `json:"element_id"`
	IsEdge    bool                   `json:"is_edge"`
	Field     string                 `json:"field"`
}

// NewElementUpdated creates an ElementUpdated event
func NewElementUpdated(iri valueobjects.OntologyIRI, id valueobjects.ElementID, isEdge bool, field string, timestamp time.Time, version int) ElementUpdated {
	return ElementUpdated{
		BaseEvent: newBase(iri.String(), TypeElementUpdated, timestamp, version),
		ElementID: id,
		IsEdge:    isEdge,
		Field:     field,
	}
}

// GraphReplaced is raised when the whole graph is rebuilt from a snapshot
type GraphReplaced struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewGraphReplaced creates a GraphReplaced event
func NewGraphReplaced(iri valueobjects.OntologyIRI, nodes, edges int, timestamp time.Time, version int) GraphReplaced {
	return GraphReplaced{
		BaseEvent: newBase(iri.String(), TypeGraphReplaced, timestamp, version),
		NodeCount: nodes,
		EdgeCount: edges,
	}
}

// Store events

// SnapshotSaved is raised by the snapshot store after a successful write
type SnapshotSaved struct {
	BaseEvent
	Revision  int64  `json:"revision"`
	SavedBy   string `json:"saved_by"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Conflict  bool   `json:"conflict"`
}

// NewSnapshotSaved creates a SnapshotSaved event
func NewSnapshotSaved(iri valueobjects.OntologyIRI, revision int64, savedBy string, nodes, edges int, conflict bool, timestamp time.Time) SnapshotSaved {
	return SnapshotSaved{
		BaseEvent: newBase(iri.String(), TypeSnapshotSaved, timestamp, int(revision)),
		Revision:  revision,
		SavedBy:   savedBy,
		NodeCount: nodes,
		EdgeCount: edges,
		Conflict:  conflict,
	}
}

// OntologyRenamed is raised when an ontology label changes
type OntologyRenamed struct {
	BaseEvent
	Label string `json:"label"`
}

// NewOntologyRenamed creates an OntologyRenamed event
func NewOntologyRenamed(iri valueobjects.OntologyIRI, label string, timestamp time.Time) OntologyRenamed {
	return OntologyRenamed{
		BaseEvent: newBase(iri.String(), TypeOntologyRenamed, timestamp, 1),
		Label:     label,
	}
}

// OntologyDeleted is raised when an ontology snapshot is removed
type OntologyDeleted struct {
	BaseEvent
}

// NewOntologyDeleted creates an OntologyDeleted event
func NewOntologyDeleted(iri valueobjects.OntologyIRI, timestamp time.Time) OntologyDeleted {
	return OntologyDeleted{
		BaseEvent: newBase(iri.String(), TypeOntologyDeleted, timestamp, 1),
	}
}
