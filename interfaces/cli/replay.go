package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"ontograph/application/ports"
	"ontograph/application/workbench"
	"ontograph/infrastructure/config"
	"ontograph/infrastructure/di"
	"ontograph/infrastructure/observability"
	"ontograph/infrastructure/persistence/sqlite"
	"ontograph/infrastructure/rendering/headless"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ReplayResult is the output of ontoctl replay
type ReplayResult struct {
	Steps     int               `json:"steps" yaml:"steps"`
	Applied   int               `json:"applied" yaml:"applied"`
	Rejected  int               `json:"rejected" yaml:"rejected"`
	Active    string            `json:"active,omitempty" yaml:"active,omitempty"`
	Drawn     int               `json:"drawn" yaml:"drawn"`
	Names     map[string]string `json:"names,omitempty" yaml:"names,omitempty"`
	Notices   []string          `json:"notices,omitempty" yaml:"notices,omitempty"`
	Revisions map[string]int64  `json:"revisions,omitempty" yaml:"revisions,omitempty"`
}

// noticeLog collects user-facing notifications for the report
type noticeLog struct {
	logger  *zap.Logger
	notices []string
}

func (n *noticeLog) Notify(severity ports.Severity, message string) {
	n.logger.Info("Notification", zap.String("severity", string(severity)), zap.String("message", message))
	n.notices = append(n.notices, fmt.Sprintf("%s: %s", severity, message))
}

func (a *app) replayCommand() *cobra.Command {
	var (
		configFile string
		cachePath  string
		handles    bool
		watch      bool
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay <script.jsonl | ->",
		Short: "Drive a headless editor from a JSON-lines script",
		Long: `Replay editing steps against a headless editor wired to the configured
store and local cache, then wait for autosave to settle.

Each line is one step, for example:
  {"op":"event","event":{"type":"ontology:selected","payload":{"iri":"http://example.org/v"}}}
  {"op":"add_class","label":"Vehicle","x":100,"y":100,"as":"vehicle"}
  {"op":"connect","source":"vehicle","target":"engine","predicate":"hasEngine"}
  {"op":"undo"}

With --watch the autosave settings follow edits to the config file while
the script runs, which is useful when reading steps from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			if cachePath != "" {
				cfg.CachePath = cachePath
			}
			ctx := cmd.Context()

			store, closeStore, err := di.OpenStore(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			db, err := sqlite.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer db.Close()

			notices := &noticeLog{logger: a.logger}
			renderer := headless.NewRenderer(ports.Capabilities{ConnectionHandles: handles}, a.logger)
			bench, err := workbench.New(cfg.Editor, workbench.Deps{
				Store:    store,
				Cache:    sqlite.NewCache(db, a.logger),
				Renderer: renderer,
				Notifier: notices,
				Metrics:  observability.NewCollector("ontoctl"),
			}, a.logger)
			if err != nil {
				return err
			}

			if watch {
				watcher, err := config.NewConfigWatcher(cfg, a.logger)
				if err != nil {
					return err
				}
				defer watcher.Stop()
				watcher.OnChange(func(next *config.Config) { bench.ApplyConfig(next.Editor) })
			}

			input, closeInput, err := openScript(args[0])
			if err != nil {
				return err
			}
			defer closeInput()

			report, replayErr := bench.Replay(ctx, input)

			closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := bench.Close(closeCtx); err != nil {
				a.logger.Warn("Autosave did not settle", zap.Error(err))
			}
			if replayErr != nil {
				return replayErr
			}

			result := ReplayResult{
				Steps:    report.Steps,
				Applied:  report.Applied,
				Rejected: report.Rejected,
				Active:   bench.Editor.ActiveIRI().String(),
				Drawn:    len(renderer.Drawn()),
				Notices:  notices.notices,
				Names:    make(map[string]string, len(report.Names)),
			}
			for name, id := range report.Names {
				result.Names[name] = id.String()
			}
			if result.Active != "" {
				if saved, err := store.Load(closeCtx, bench.Editor.ActiveIRI()); err == nil {
					result.Revisions = map[string]int64{result.Active: saved.Revision}
				}
			}
			return a.print(result)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file")
	cmd.Flags().StringVar(&cachePath, "cache", "", "Override the local cache path")
	cmd.Flags().BoolVar(&handles, "handles", false, "Pretend the renderer exposes connection handles")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload autosave settings when the config file changes")
	cmd.Flags().DurationVar(&timeout, "settle", 10*time.Second, "How long to wait for autosave on exit")
	return cmd
}

func openScript(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

