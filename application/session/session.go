// Package session reacts to ontology lifecycle events: it switches the
// editor between ontologies, loading from the local cache first and then
// from the backend.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ontograph/application/editor"
	"ontograph/application/ports"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Autosave is the part of the persistence coordinator a session drives
type Autosave interface {
	Suspend()
	Resume()
	FlushAndWait(ctx context.Context) error
	Discard()
	SetBaseRevision(iri valueobjects.OntologyIRI, revision int64)
	Forget(iri valueobjects.OntologyIRI)
}

// Session applies lifecycle events to one editor
type Session struct {
	editor   *editor.Editor
	autosave Autosave
	store    ports.SnapshotStore
	cache    ports.LocalCache
	states   *state.Manager
	notifier ports.Notifier
	cfg      *config.EditorConfig
	logger   *zap.Logger

	post func(func())

	mu         sync.Mutex
	generation uint64
	refreshes  sync.WaitGroup
}

// Option configures a Session
type Option func(*Session)

// WithDispatcher routes background refresh results through post, which
// should run the function on the goroutine that owns the editor. By default
// results are applied on the refresh goroutine.
func WithDispatcher(post func(func())) Option {
	return func(s *Session) {
		if post != nil {
			s.post = post
		}
	}
}

// NewSession creates a session. cache and notifier may be nil.
func NewSession(
	ed *editor.Editor,
	autosave Autosave,
	store ports.SnapshotStore,
	cache ports.LocalCache,
	notifier ports.Notifier,
	cfg *config.EditorConfig,
	logger *zap.Logger,
	opts ...Option,
) *Session {
	if cfg == nil {
		cfg = config.DefaultEditorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		editor:   ed,
		autosave: autosave,
		store:    store,
		cache:    cache,
		states:   ed.States(),
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		post:     func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle dispatches one event
func (s *Session) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case Selected:
		return s.Select(ctx, e)
	case Reset:
		return s.Reset(ctx)
	case Renamed:
		return s.Rename(ctx, e)
	case Deleted:
		return s.Delete(ctx, e)
	default:
		return pkgerrors.NewValidationError(fmt.Sprintf("unhandled event %T", ev))
	}
}

// HandleJSON decodes an envelope and dispatches it
func (s *Session) HandleJSON(ctx context.Context, data []byte) error {
	ev, err := DecodeEvent(data)
	if err != nil {
		s.logger.Warn("Dropping malformed lifecycle event", zap.Error(err))
		return err
	}
	return s.Handle(ctx, ev)
}

// Select makes ev.IRI the active ontology. The cached snapshot is shown
// first; the backend copy replaces it afterwards unless the user has edited
// in between.
func (s *Session) Select(ctx context.Context, ev Selected) error {
	ctx, span := otel.Tracer("ontograph/session").Start(ctx, "session.select")
	defer span.End()
	span.SetAttributes(attribute.String("ontology.iri", ev.IRI.String()))

	if ev.IRI.IsZero() {
		return pkgerrors.NewValidationError("ontology iri is required")
	}

	if s.editor.IsActive() && s.editor.ActiveIRI() == ev.IRI {
		s.states.Set(func(st *state.EditorState) {
			if ev.Label != "" {
				st.ActiveLabel = ev.Label
			}
			st.ProjectID = ev.ProjectID
		})
		return nil
	}

	gen := s.nextGeneration()
	s.suspend()
	defer s.resume()

	s.leaveActive(ctx)

	cached, hit := s.readCache(ctx, ev.IRI)
	if hit {
		s.load(ev, cached)
	} else {
		s.load(ev, aggregates.EmptySnapshot(ev.IRI, ev.Label))
	}
	s.states.Set(func(st *state.EditorState) {
		st.ActiveIRI = ev.IRI
		st.ActiveLabel = ev.Label
		st.ProjectID = ev.ProjectID
	})

	version := s.editor.Version()
	if !hit {
		// nothing on screen worth keeping, so wait for the backend
		if snap, ok := s.fetch(ctx, ev, nil); ok {
			s.apply(ctx, gen, ev, version, snap, false)
		}
		return nil
	}

	// the cached copy stays editable while the backend copy is fetched;
	// autosave and history keep running
	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		bg, cancel := context.WithTimeout(context.Background(), s.loadTimeout())
		snap, ok := s.fetch(bg, ev, &cached)
		cancel()
		if !ok {
			return
		}
		s.post(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.flushTimeout())
			defer cancel()
			s.apply(ctx, gen, ev, version, snap, true)
		})
	}()
	return nil
}

// Reset flushes pending work and leaves no ontology active
func (s *Session) Reset(ctx context.Context) error {
	s.nextGeneration()
	s.suspend()
	defer s.resume()

	s.leaveActive(ctx)
	s.states.Set(func(st *state.EditorState) {
		st.ActiveIRI = ""
		st.ActiveLabel = ""
		st.ProjectID = ""
		st.Banner = nil
	})
	return nil
}

// Rename relabels an ontology without reloading it
func (s *Session) Rename(ctx context.Context, ev Renamed) error {
	if ev.IRI.IsZero() || ev.Label == "" {
		return pkgerrors.NewValidationError("rename needs an iri and a label")
	}

	if s.editor.IsActive() && s.editor.ActiveIRI() == ev.IRI {
		s.editor.Relabel(ev.Label)
		s.states.Set(func(st *state.EditorState) { st.ActiveLabel = ev.Label })
	}

	if s.cache != nil {
		if snap, ok, err := s.cache.Get(ctx, ev.IRI); err == nil && ok {
			snap.Label = ev.Label
			if err := s.cache.Put(ctx, snap); err != nil {
				s.logger.Warn("Failed to relabel cached snapshot", zap.Error(err))
			}
		}
	}

	if err := s.store.Rename(ctx, ev.IRI, ev.Label); err != nil {
		if pkgerrors.IsNotFound(err) {
			// never saved; the next autosave carries the label
			return nil
		}
		s.logger.Warn("Backend rename failed",
			zap.String("ontology", ev.IRI.String()),
			zap.Error(err))
		s.notify(ports.SeverityWarning, "The new name could not be saved to the server yet.")
		return err
	}
	return nil
}

// Delete forgets an ontology. If it is active its pending write is
// discarded and the canvas cleared.
func (s *Session) Delete(ctx context.Context, ev Deleted) error {
	if ev.IRI.IsZero() {
		return pkgerrors.NewValidationError("ontology iri is required")
	}

	if s.editor.IsActive() && s.editor.ActiveIRI() == ev.IRI {
		s.nextGeneration()
		s.autosave.Discard()
		s.editor.Teardown()
		s.states.Set(func(st *state.EditorState) {
			st.ActiveIRI = ""
			st.ActiveLabel = ""
			st.Banner = nil
		})
	}
	s.autosave.Forget(ev.IRI)

	if s.cache != nil {
		if err := s.cache.Delete(ctx, ev.IRI); err != nil {
			s.logger.Warn("Failed to evict cached snapshot",
				zap.String("ontology", ev.IRI.String()),
				zap.Error(err))
		}
	}
	s.logger.Info("Ontology deleted", zap.String("ontology", ev.IRI.String()))
	return nil
}

// Wait blocks until background refreshes finish
func (s *Session) Wait() {
	s.refreshes.Wait()
}

// leaveActive settles the pending write of the current ontology according
// to the switch policy and tears the canvas down
func (s *Session) leaveActive(ctx context.Context) {
	if !s.editor.IsActive() {
		return
	}
	previous := s.editor.ActiveIRI()

	switch s.cfg.SwitchPolicy {
	case config.SwitchPolicyDiscard:
		s.autosave.Discard()
	default:
		flushCtx, cancel := context.WithTimeout(ctx, s.flushTimeout())
		if err := s.autosave.FlushAndWait(flushCtx); err != nil {
			s.logger.Warn("Flush before switching ontology did not finish",
				zap.String("ontology", previous.String()),
				zap.Error(err))
		}
		cancel()
	}
	s.editor.Teardown()
}

func (s *Session) readCache(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, bool) {
	if s.cache == nil {
		return aggregates.Snapshot{}, false
	}
	snap, ok, err := s.cache.Get(ctx, iri)
	if err != nil {
		s.logger.Warn("Local cache read failed", zap.String("ontology", iri.String()), zap.Error(err))
		return aggregates.Snapshot{}, false
	}
	return snap, ok
}

// load puts a snapshot on the canvas; a rejected snapshot leaves an empty
// graph and raises the banner
func (s *Session) load(ev Selected, snap aggregates.Snapshot) {
	snap.OntologyIRI = ev.IRI
	if ev.Label != "" {
		snap.Label = ev.Label
	}
	s.autosave.SetBaseRevision(ev.IRI, snap.Revision)

	if err := s.editor.Load(snap); err != nil {
		banner := &state.Banner{
			Severity: ports.SeverityError,
			Message:  "This ontology could not be loaded and was opened empty.",
		}
		s.states.Set(func(st *state.EditorState) { st.Banner = banner })
		s.notify(banner.Severity, banner.Message)
		return
	}
	s.states.Set(func(st *state.EditorState) { st.Banner = nil })
}

// fetch loads the backend copy. ok is false when there is nothing newer
// than cached to show.
func (s *Session) fetch(ctx context.Context, ev Selected, cached *aggregates.Snapshot) (aggregates.Snapshot, bool) {
	snap, err := s.store.Load(ctx, ev.IRI)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.logger.Debug("Ontology not on backend yet", zap.String("ontology", ev.IRI.String()))
			return aggregates.Snapshot{}, false
		}
		s.logger.Warn("Backend load failed, keeping local copy",
			zap.String("ontology", ev.IRI.String()),
			zap.Error(err))
		s.notify(ports.SeverityInfo, "Working from the local copy; the server could not be reached.")
		return aggregates.Snapshot{}, false
	}
	if cached != nil && cached.Revision == snap.Revision {
		return aggregates.Snapshot{}, false
	}
	return snap, true
}

// apply shows the backend copy if the same ontology is still active at the
// version it had when the fetch started. The check and the swap happen in
// one step inside the editor, so an edit made meanwhile always wins.
func (s *Session) apply(ctx context.Context, gen uint64, ev Selected, version int, snap aggregates.Snapshot, keepOnReject bool) {
	if !s.isCurrent(gen) {
		s.logger.Info("Discarding backend snapshot, another ontology was selected",
			zap.String("ontology", ev.IRI.String()))
		return
	}
	snap.OntologyIRI = ev.IRI
	if ev.Label != "" {
		snap.Label = ev.Label
	}

	applied, err := s.editor.LoadIfUnchanged(snap, version)
	if err != nil {
		if keepOnReject {
			s.notify(ports.SeverityWarning, "The server copy of this ontology could not be read; showing the local copy.")
			return
		}
		banner := &state.Banner{
			Severity: ports.SeverityError,
			Message:  "This ontology could not be loaded and was opened empty.",
		}
		s.states.Set(func(st *state.EditorState) { st.Banner = banner })
		s.notify(banner.Severity, banner.Message)
		return
	}
	if !applied {
		s.logger.Info("Discarding backend snapshot, graph changed since it was requested",
			zap.String("ontology", ev.IRI.String()))
		return
	}

	s.autosave.SetBaseRevision(ev.IRI, snap.Revision)
	s.states.Set(func(st *state.EditorState) { st.Banner = nil })

	if s.cache != nil {
		if err := s.cache.Put(ctx, snap); err != nil {
			s.logger.Warn("Local cache write failed", zap.Error(err))
		}
	}
}

func (s *Session) suspend() {
	s.autosave.Suspend()
	s.editor.History().Suspend()
	s.states.Set(func(st *state.EditorState) {
		st.AutosaveSuspended = true
		st.HistorySuspended = true
	})
}

func (s *Session) resume() {
	s.autosave.Resume()
	s.editor.History().Resume()
	suspended := s.editor.History().IsSuspended()
	s.states.Set(func(st *state.EditorState) {
		st.AutosaveSuspended = suspended
		st.HistorySuspended = suspended
	})
}

func (s *Session) nextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

func (s *Session) flushTimeout() time.Duration {
	if s.cfg.FlushTimeout > 0 {
		return s.cfg.FlushTimeout
	}
	return 5 * time.Second
}

func (s *Session) loadTimeout() time.Duration {
	return 2 * s.flushTimeout()
}

func (s *Session) notify(severity ports.Severity, message string) {
	if s.notifier != nil {
		s.notifier.Notify(severity, message)
	}
}
