// Package services holds the snapshot backend's application service. It sits
// between the HTTP API and whatever SnapshotStore the deployment uses.
package services

import (
	"context"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/validators"
	"ontograph/domain/core/valueobjects"
	"ontograph/domain/events"
	"ontograph/infrastructure/observability"
	pkgerrors "ontograph/pkg/errors"

	"go.uber.org/zap"
)

// StoreObserver receives one call per store operation
type StoreObserver interface {
	RecordStoreOperation(operation string, err error)
}

// SnapshotService validates snapshots before they reach the store and
// announces every successful write.
type SnapshotService struct {
	store     ports.SnapshotStore
	publisher ports.EventPublisher
	rules     *validators.ConnectionRules
	observer  StoreObserver
	now       func() time.Time
	logger    *zap.Logger
}

// NewSnapshotService creates the service. publisher and observer may be nil.
func NewSnapshotService(
	store ports.SnapshotStore,
	publisher ports.EventPublisher,
	rules *validators.ConnectionRules,
	observer StoreObserver,
	logger *zap.Logger,
) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules == nil {
		rules = validators.NewConnectionRules(nil)
	}
	return &SnapshotService{
		store:     store,
		publisher: publisher,
		rules:     rules,
		observer:  observer,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Get loads the latest snapshot
func (s *SnapshotService) Get(ctx context.Context, iri valueobjects.OntologyIRI) (snapshot aggregates.Snapshot, err error) {
	ctx, span := observability.StartSpan(ctx, "snapshot.get", iri.String())
	defer func() { observability.EndSpan(span, err) }()
	defer s.record("load", &err)

	if iri.IsZero() {
		return aggregates.Snapshot{}, pkgerrors.NewValidationError("ontology IRI is required")
	}
	return s.store.Load(ctx, iri)
}

// Save checks the snapshot's invariants and stores it. baseRevision is the
// revision the writer last saw; a moved revision is reported, not refused.
func (s *SnapshotService) Save(ctx context.Context, snapshot aggregates.Snapshot, baseRevision int64, savedBy string) (result ports.SaveResult, err error) {
	ctx, span := observability.StartSpan(ctx, "snapshot.save", snapshot.OntologyIRI.String())
	defer func() { observability.EndSpan(span, err) }()
	defer s.record("save", &err)

	if snapshot.OntologyIRI.IsZero() {
		return ports.SaveResult{}, pkgerrors.NewValidationError("ontology IRI is required")
	}
	if _, verr := aggregates.FromSnapshot(snapshot, s.rules, nil); verr != nil {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot violates graph invariants").
			WithCause(verr).
			WithDetails(map[string]interface{}{"violations": validators.DescribeErrors(verr)})
	}

	snapshot.Revision = baseRevision
	snapshot.SavedBy = savedBy
	snapshot.SavedAt = s.now()

	result, err = s.store.Save(ctx, snapshot)
	if err != nil {
		return ports.SaveResult{}, err
	}
	if result.Conflict {
		s.logger.Warn("Snapshot overwrote a newer revision",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Int64("base_revision", baseRevision),
			zap.Int64("revision", result.Revision),
			zap.String("saved_by", savedBy),
		)
	}

	s.publish(ctx, events.NewSnapshotSaved(snapshot.OntologyIRI, result.Revision, savedBy,
		len(snapshot.Nodes), len(snapshot.Edges), result.Conflict, snapshot.SavedAt))
	return result, nil
}

// Rename changes the stored label
func (s *SnapshotService) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) (err error) {
	ctx, span := observability.StartSpan(ctx, "snapshot.rename", iri.String())
	defer func() { observability.EndSpan(span, err) }()
	defer s.record("rename", &err)

	if iri.IsZero() {
		return pkgerrors.NewValidationError("ontology IRI is required")
	}
	if err = s.store.Rename(ctx, iri, label); err != nil {
		return err
	}
	s.publish(ctx, events.NewOntologyRenamed(iri, label, s.now()))
	return nil
}

// Delete removes the ontology
func (s *SnapshotService) Delete(ctx context.Context, iri valueobjects.OntologyIRI) (err error) {
	ctx, span := observability.StartSpan(ctx, "snapshot.delete", iri.String())
	defer func() { observability.EndSpan(span, err) }()
	defer s.record("delete", &err)

	if iri.IsZero() {
		return pkgerrors.NewValidationError("ontology IRI is required")
	}
	if err = s.store.Delete(ctx, iri); err != nil {
		return err
	}
	s.publish(ctx, events.NewOntologyDeleted(iri, s.now()))
	return nil
}

// publish never fails the caller; the write already happened
func (s *SnapshotService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, []events.DomainEvent{event}); err != nil {
		s.logger.Error("Failed to publish store event",
			zap.String("event_type", event.GetEventType()),
			zap.String("ontology", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func (s *SnapshotService) record(op string, err *error) {
	if s.observer != nil {
		s.observer.RecordStoreOperation(op, *err)
	}
}
