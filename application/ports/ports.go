package ports

import (
	"context"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/events"
)

// SaveResult is the backend's answer to a snapshot write
type SaveResult struct {
	Revision int64 `json:"revision"`
	// Conflict is set when the stored revision moved since the caller last
	// loaded. The write is still applied; last writer wins.
	Conflict bool `json:"conflict"`
}

// SnapshotStore defines the interface for the backend ontology store
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SnapshotStore interface {
	// Save stores a full snapshot. snapshot.Revision carries the revision the
	// caller last saw, used only to detect conflicts.
	Save(ctx context.Context, snapshot aggregates.Snapshot) (SaveResult, error)

	// Load retrieves the latest snapshot; a missing ontology is a NotFound AppError
	Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error)

	// Rename changes the stored label without touching nodes or edges
	Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error

	// Delete removes the snapshot
	Delete(ctx context.Context, iri valueobjects.OntologyIRI) error
}

// LocalCache keeps the last snapshot per ontology for instant reloads
type LocalCache interface {
	Get(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, bool, error)
	Put(ctx context.Context, snapshot aggregates.Snapshot) error
	Delete(ctx context.Context, iri valueobjects.OntologyIRI) error
}

// CacheLister is implemented by caches that can enumerate their keys
type CacheLister interface {
	List(ctx context.Context) ([]CacheEntry, error)
}

// CacheEntry summarises one cached snapshot
type CacheEntry struct {
	IRI       valueobjects.OntologyIRI
	Label     string
	Revision  int64
	NodeCount int
	EdgeCount int
}

// Capabilities describes what the external renderer supports
type Capabilities struct {
	// ConnectionHandles is set when nodes expose draggable connection handles
	ConnectionHandles bool
}

// RenderingAdapter is the narrow surface between the engine and the
// external graph renderer. The adapter observes; it never mutates the model.
type RenderingAdapter interface {
	Capabilities() Capabilities
	OnNodeAdded(node *entities.Node)
	OnEdgeCreated(edge *entities.Edge)
	OnElementRemoved(id valueobjects.ElementID)
	OnElementChanged(id valueobjects.ElementID)
	OnSelectionChanged(selected []valueobjects.ElementID)
	RequestRedraw()
}

// Severity grades a user-facing notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier raises transient, non-blocking messages to the user
type Notifier interface {
	Notify(severity Severity, message string)
}

// EventPublisher publishes domain events to other services
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}
