// Package workbench assembles one editing surface: editor, command bus,
// autosave coordinator, lifecycle session and interaction controllers.
package workbench

import (
	"context"
	"errors"

	"ontograph/application/commands"
	"ontograph/application/commands/bus"
	"ontograph/application/commands/handlers"
	"ontograph/application/connection"
	"ontograph/application/editor"
	"ontograph/application/history"
	"ontograph/application/interaction"
	"ontograph/application/persistence"
	"ontograph/application/ports"
	"ontograph/application/session"
	"ontograph/application/state"
	"ontograph/domain/config"
	"ontograph/domain/core/aggregates"

	"go.uber.org/zap"
)

// Metrics is everything the workbench reports to
type Metrics interface {
	editor.Metrics
	persistence.Metrics
	bus.Observer
}

// Deps are the adapters a workbench runs against. Store is required; the
// rest may be nil.
type Deps struct {
	Store     ports.SnapshotStore
	Cache     ports.LocalCache
	Renderer  ports.RenderingAdapter
	Notifier  ports.Notifier
	Metrics   Metrics
	Scheduler persistence.Scheduler
	// Dispatch runs a function on the goroutine that owns the editor.
	// Background refresh results go through it.
	Dispatch func(func())
}

// Workbench owns one editor and everything that drives it
type Workbench struct {
	Editor      *editor.Editor
	Bus         *bus.CommandBus
	Coordinator *persistence.Coordinator
	Session     *session.Session
	Surface     *interaction.Surface
	States      *state.Manager

	logger *zap.Logger
}

// editorSource breaks the construction cycle: the coordinator needs the
// editor as its source and the editor needs the coordinator as autosaver.
type editorSource struct {
	editor *editor.Editor
}

func (s *editorSource) CurrentSnapshot() (aggregates.Snapshot, bool) {
	if s.editor == nil {
		return aggregates.Snapshot{}, false
	}
	return s.editor.CurrentSnapshot()
}

// New builds a workbench with no active ontology
func New(cfg *config.EditorConfig, deps Deps, logger *zap.Logger) (*Workbench, error) {
	if deps.Store == nil {
		return nil, errors.New("workbench needs a snapshot store")
	}
	if cfg == nil {
		cfg = config.DefaultEditorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var persistMetrics persistence.Metrics
	editorOpts := []editor.Option{}
	middlewares := []bus.Middleware{bus.RecoveryMiddleware(logger), bus.LoggingMiddleware(logger)}
	if deps.Metrics != nil {
		persistMetrics = deps.Metrics
		editorOpts = append(editorOpts, editor.WithMetrics(deps.Metrics))
		middlewares = append(middlewares, bus.MetricsMiddleware(deps.Metrics))
	}
	if deps.Renderer != nil {
		editorOpts = append(editorOpts, editor.WithRenderer(deps.Renderer))
	}

	states := state.NewManager()
	source := &editorSource{}
	coord := persistence.NewCoordinator(source, deps.Cache, deps.Store, deps.Scheduler,
		deps.Notifier, persistMetrics, SettingsFrom(cfg), logger)

	editorOpts = append(editorOpts, editor.WithAutosave(coord))
	ed := editor.NewEditor(cfg, history.NewManager(cfg.MaxUndoDepth, logger), states, logger, editorOpts...)
	source.editor = ed

	b := bus.NewCommandBus(middlewares...)
	if err := handlers.NewEditorHandlers(ed, logger).Register(b); err != nil {
		_ = coord.Close(context.Background())
		return nil, err
	}

	machine := connection.NewMachine(ed, ed.Rules(), cfg.DefaultPredicate, states, logger)
	driver := connection.SelectDriver(ed.Capabilities(), machine, commands.NewBusCommitter(b, logger))

	return &Workbench{
		Editor:      ed,
		Bus:         b,
		Coordinator: coord,
		Session:     session.NewSession(ed, coord, deps.Store, deps.Cache, deps.Notifier, cfg, logger, session.WithDispatcher(deps.Dispatch)),
		Surface:     interaction.NewSurface(ed, b, machine, driver, states, logger),
		States:      states,
		logger:      logger,
	}, nil
}

// SettingsFrom maps the editor configuration onto autosave thresholds
func SettingsFrom(cfg *config.EditorConfig) persistence.Settings {
	s := persistence.DefaultSettings()
	s.Window = cfg.DebounceWindow
	s.MaxRetries = cfg.MaxSaveRetries
	s.NotifyAfterFailures = cfg.NotifyAfterFailures
	return s
}

// ApplyConfig hands reloaded autosave thresholds to the coordinator.
// Canvas and history settings take effect on the next workbench.
func (w *Workbench) ApplyConfig(cfg *config.EditorConfig) {
	if cfg == nil {
		return
	}
	w.Coordinator.UpdateSettings(SettingsFrom(cfg))
}

// Close waits for background refreshes, then drains pending writes
func (w *Workbench) Close(ctx context.Context) error {
	w.Session.Wait()
	return w.Coordinator.Close(ctx)
}
