// Package cli implements ontoctl, the operator tool for ontology snapshots.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"ontograph/domain/core/aggregates"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Version is stamped at build time
var Version = "dev"

// app carries the global flags shared by every subcommand
type app struct {
	out     io.Writer
	format  string
	verbose bool
	logger  *zap.Logger
}

// NewRootCommand builds the ontoctl command tree writing to out
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "ontoctl",
		Short: "Inspect, validate and move ontology snapshots",
		Long: `ontoctl works with the snapshot files the editor saves.

Examples:
  ontoctl validate vehicles.json         # Check graph invariants
  ontoctl inspect vehicles.json          # Element counts and multiplicities
  ontoctl cache ls                       # Snapshots in the local cache
  ontoctl push vehicles.json --backend http://localhost:8080
  ontoctl replay session.jsonl           # Drive the editor from a script`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !a.verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.format, "format", "yaml", "Output format: yaml | json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		a.validateCommand(),
		a.inspectCommand(),
		a.cacheCommand(),
		a.pushCommand(),
		a.tokenCommand(),
		a.replayCommand(),
	)
	return root
}

// Execute runs ontoctl against os.Args
func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) print(v interface{}) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", a.format)
	}
}

func readSnapshot(path string) (aggregates.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return aggregates.Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}
	return aggregates.DecodeSnapshot(data)
}
