// Package persistence debounces graph mutations into full-snapshot writes to
// the local cache and the backend store.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed coordinator
var ErrClosed = errors.New("persistence coordinator closed")

// SnapshotSource yields the live graph state. ok is false when no ontology is active.
type SnapshotSource interface {
	CurrentSnapshot() (snapshot aggregates.Snapshot, ok bool)
}

// Metrics receives persistence measurements
type Metrics interface {
	ObserveSave(duration time.Duration, err error, conflict bool)
	ObserveWindow(coalesced int)
}

// Settings holds the tunable thresholds
type Settings struct {
	Window              time.Duration
	MaxRetries          int
	NotifyAfterFailures int
	WriteTimeout        time.Duration
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		Window:              150 * time.Millisecond,
		MaxRetries:          5,
		NotifyAfterFailures: 3,
		WriteTimeout:        10 * time.Second,
	}
}

type writeJob struct {
	snapshot aggregates.Snapshot
	epoch    uint64
	barrier  chan struct{}
}

// Coordinator schedules saves. Mutations call Schedule; when the debounce
// window closes a full snapshot is written to the local cache and queued
// for the backend. A single writer goroutine sends queued snapshots in the
// order their windows closed and never cancels one in flight.
//
// A failed write stays dirty: its snapshot is kept per ontology until a
// later write of that ontology succeeds or the ontology is forgotten, and
// is resent when the next window closes, even after the ontology stopped
// being the active one.
type Coordinator struct {
	source    SnapshotSource
	cache     ports.LocalCache
	store     ports.SnapshotStore
	scheduler Scheduler
	notifier  ports.Notifier
	metrics   Metrics
	logger    *zap.Logger

	mu           sync.Mutex
	settings     Settings
	suspended    int
	pendingKey   valueobjects.OntologyIRI
	coalesced    int
	failures     int
	notified     bool
	baseRevision map[valueobjects.OntologyIRI]int64
	failed       map[valueobjects.OntologyIRI]aggregates.Snapshot
	epochs       map[valueobjects.OntologyIRI]uint64
	closed       bool

	sendMu sync.RWMutex
	queue  chan writeJob
	done   chan struct{}
}

// NewCoordinator creates a coordinator and starts its writer goroutine.
// cache, notifier and metrics may be nil.
func NewCoordinator(
	source SnapshotSource,
	cache ports.LocalCache,
	store ports.SnapshotStore,
	scheduler Scheduler,
	notifier ports.Notifier,
	metrics Metrics,
	settings Settings,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	if settings.NotifyAfterFailures <= 0 {
		settings.NotifyAfterFailures = 1
	}
	if settings.WriteTimeout <= 0 {
		settings.WriteTimeout = DefaultSettings().WriteTimeout
	}

	c := &Coordinator{
		source:       source,
		cache:        cache,
		store:        store,
		scheduler:    scheduler,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		settings:     settings,
		baseRevision: make(map[valueobjects.OntologyIRI]int64),
		failed:       make(map[valueobjects.OntologyIRI]aggregates.Snapshot),
		epochs:       make(map[valueobjects.OntologyIRI]uint64),
		queue:        make(chan writeJob, 64),
		done:         make(chan struct{}),
	}
	go c.writer()
	return c
}

// Schedule opens or extends the debounce window for key
func (c *Coordinator) Schedule(key valueobjects.OntologyIRI) {
	c.mu.Lock()
	if c.suspended > 0 || c.closed || key.IsZero() {
		c.mu.Unlock()
		return
	}
	if !c.pendingKey.IsZero() && c.pendingKey != key {
		c.logger.Warn("Debounce key changed without flush",
			zap.String("pending", c.pendingKey.String()),
			zap.String("key", key.String()))
	}
	c.pendingKey = key
	c.coalesced++
	window := c.settings.Window
	c.mu.Unlock()

	c.scheduler.Schedule(window, c.windowClosed)
}

// Suspend ignores Schedule until the matching Resume. Calls nest.
func (c *Coordinator) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended++
}

// Resume undoes one Suspend. Writes that failed while suspended are
// retried once autosave is back on.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	if c.suspended > 0 {
		c.suspended--
	}
	c.mu.Unlock()
	c.armRetry()
}

// armRetry opens a window for dirty snapshots left by failed writes
func (c *Coordinator) armRetry() {
	c.mu.Lock()
	arm := c.suspended == 0 && !c.closed && len(c.failed) > 0
	window := c.settings.Window
	c.mu.Unlock()
	if arm && !c.scheduler.Pending() {
		c.scheduler.Schedule(window, c.windowClosed)
	}
}

// HasDirty reports whether a failed write is waiting to be retried
func (c *Coordinator) HasDirty(iri valueobjects.OntologyIRI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[iri]
	return ok
}

// IsSuspended reports whether autosave is off
func (c *Coordinator) IsSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended > 0
}

// HasPending reports whether a debounce window is open
func (c *Coordinator) HasPending() bool {
	return c.scheduler.Pending()
}

// Discard drops the open window without writing anything
func (c *Coordinator) Discard() {
	c.scheduler.Cancel()
	c.mu.Lock()
	if !c.pendingKey.IsZero() {
		c.logger.Info("Discarded pending autosave", zap.String("ontology", c.pendingKey.String()))
	}
	c.pendingKey = ""
	c.coalesced = 0
	c.mu.Unlock()
	c.armRetry()
}

// FlushAndWait closes the open window now and waits until every queued
// write, including that one, has been attempted
func (c *Coordinator) FlushAndWait(ctx context.Context) error {
	c.scheduler.Flush()
	return c.Drain(ctx)
}

// Drain waits for the writer queue to empty without closing an open window
func (c *Coordinator) Drain(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := c.enqueue(ctx, writeJob{barrier: barrier}); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetBaseRevision records the revision last loaded for an ontology
func (c *Coordinator) SetBaseRevision(iri valueobjects.OntologyIRI, revision int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseRevision[iri] = revision
}

// BaseRevision returns the revision last loaded or saved for an ontology
func (c *Coordinator) BaseRevision(iri valueobjects.OntologyIRI) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseRevision[iri]
}

// Forget drops all per-ontology state, used when an ontology is deleted.
// Writes of iri already queued or in flight still reach the store but no
// longer touch the local cache or the revision table.
func (c *Coordinator) Forget(iri valueobjects.OntologyIRI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.baseRevision, iri)
	delete(c.failed, iri)
	c.epochs[iri]++
	if c.pendingKey == iri {
		c.pendingKey = ""
		c.coalesced = 0
	}
}

// ConsecutiveFailures returns the length of the current failure streak
func (c *Coordinator) ConsecutiveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// UpdateSettings swaps the thresholds; the next window uses them
func (c *Coordinator) UpdateSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.NotifyAfterFailures <= 0 {
		s.NotifyAfterFailures = 1
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = c.settings.WriteTimeout
	}
	c.settings = s
	c.logger.Info("Autosave settings updated",
		zap.Duration("window", s.Window),
		zap.Int("max_retries", s.MaxRetries),
		zap.Int("notify_after", s.NotifyAfterFailures))
}

// Close drains the queue and stops the writer
func (c *Coordinator) Close(ctx context.Context) error {
	if err := c.Drain(ctx); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	c.sendMu.Lock()
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()
	if !wasClosed {
		close(c.queue)
	}
	c.sendMu.Unlock()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// windowClosed runs on the scheduler's goroutine, or the caller's on Flush
func (c *Coordinator) windowClosed() {
	current, active := c.source.CurrentSnapshot()

	c.mu.Lock()
	key := c.pendingKey
	coalesced := c.coalesced
	c.pendingKey = ""
	c.coalesced = 0
	// dirty snapshots of inactive ontologies are resent as they were; the
	// active one is superseded by the live graph
	var resend []writeJob
	for iri, snap := range c.failed {
		delete(c.failed, iri)
		if active && iri == current.OntologyIRI {
			if key != iri && !key.IsZero() {
				c.logger.Info("Dropping autosave for inactive ontology",
					zap.String("ontology", key.String()))
			}
			key = iri
			continue
		}
		snap.Revision = c.baseRevision[iri]
		resend = append(resend, writeJob{snapshot: snap, epoch: c.epochs[iri]})
	}
	c.mu.Unlock()

	ctx := context.Background()
	for _, job := range resend {
		c.logger.Info("Retrying failed save of inactive ontology",
			zap.String("ontology", job.snapshot.OntologyIRI.String()))
		if err := c.enqueue(ctx, job); err != nil {
			c.logger.Error("Failed to queue backend write", zap.Error(err))
		}
	}

	if key.IsZero() {
		return
	}
	if c.metrics != nil && coalesced > 0 {
		c.metrics.ObserveWindow(coalesced)
	}
	if !active || current.OntologyIRI != key {
		c.logger.Info("Dropping autosave for inactive ontology",
			zap.String("ontology", key.String()))
		return
	}

	c.mu.Lock()
	current.Revision = c.baseRevision[key]
	epoch := c.epochs[key]
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.Put(ctx, current); err != nil {
			c.logger.Warn("Local cache write failed",
				zap.String("ontology", key.String()),
				zap.Error(err))
		}
	}

	if err := c.enqueue(ctx, writeJob{snapshot: current, epoch: epoch}); err != nil {
		c.logger.Error("Failed to queue backend write", zap.Error(err))
	}
}

func (c *Coordinator) enqueue(ctx context.Context, job writeJob) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case c.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) writer() {
	defer close(c.done)
	for job := range c.queue {
		if job.barrier != nil {
			close(job.barrier)
			continue
		}
		c.write(job)
	}
}

func (c *Coordinator) write(job writeJob) {
	snapshot := job.snapshot
	c.mu.Lock()
	timeout := c.settings.WriteTimeout
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := otel.Tracer("ontograph/persistence").Start(ctx, "persistence.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("ontology.iri", snapshot.OntologyIRI.String()),
		attribute.Int("ontology.nodes", len(snapshot.Nodes)),
		attribute.Int("ontology.edges", len(snapshot.Edges)),
	)

	start := time.Now()
	result, err := c.store.Save(ctx, snapshot)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveSave(elapsed, err, err == nil && result.Conflict)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		c.onFailure(job, err)
		return
	}

	span.SetAttributes(attribute.Int64("ontology.revision", result.Revision))
	c.onSuccess(job, result, elapsed)
}

func (c *Coordinator) onSuccess(job writeJob, result ports.SaveResult, elapsed time.Duration) {
	snapshot := job.snapshot
	c.mu.Lock()
	c.failures = 0
	c.notified = false
	forgotten := c.epochs[snapshot.OntologyIRI] != job.epoch
	if !forgotten {
		c.baseRevision[snapshot.OntologyIRI] = result.Revision
		// writes are ordered, so a success supersedes any older failure
		delete(c.failed, snapshot.OntologyIRI)
	}
	c.mu.Unlock()

	if forgotten {
		c.logger.Info("Saved an ontology deleted while the write was in flight",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Int64("revision", result.Revision))
		return
	}

	if result.Conflict {
		// another writer saved in between; ours replaced it
		c.logger.Warn("Snapshot overwrote a newer revision",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Int64("base_revision", snapshot.Revision),
			zap.Int64("revision", result.Revision))
	} else {
		c.logger.Debug("Snapshot saved",
			zap.String("ontology", snapshot.OntologyIRI.String()),
			zap.Int64("revision", result.Revision),
			zap.Duration("duration", elapsed))
	}

	if c.cache != nil {
		snapshot.Revision = result.Revision
		if err := c.cache.Put(context.Background(), snapshot); err != nil {
			c.logger.Warn("Local cache revision update failed", zap.Error(err))
		}
	}
}

func (c *Coordinator) onFailure(job writeJob, err error) {
	iri := job.snapshot.OntologyIRI
	c.mu.Lock()
	if c.epochs[iri] != job.epoch {
		c.mu.Unlock()
		c.logger.Info("Dropping failed save of a deleted ontology",
			zap.String("ontology", iri.String()), zap.Error(err))
		return
	}
	c.failures++
	failures := c.failures
	notify := failures >= c.settings.NotifyAfterFailures && !c.notified
	if notify {
		c.notified = true
	}
	retryable := pkgerrors.IsRetryable(err)
	if retryable {
		c.failed[iri] = job.snapshot
	} else {
		delete(c.failed, iri)
	}
	retry := retryable && failures <= c.settings.MaxRetries
	c.mu.Unlock()

	c.logger.Warn("Snapshot save failed",
		zap.String("ontology", iri.String()),
		zap.Int("consecutive_failures", failures),
		zap.Bool("retry", retry),
		zap.Error(err))

	if notify && c.notifier != nil {
		c.notifier.Notify(ports.SeverityWarning,
			fmt.Sprintf("Changes could not be saved to the server (%d attempts). They are kept locally and will be retried.", failures))
	}

	// past MaxRetries the snapshot stays dirty and goes out with the next window
	if retry {
		c.armRetry()
	}
}
