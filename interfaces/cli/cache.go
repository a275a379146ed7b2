package cli

import (
	"database/sql"
	"fmt"
	"os"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	"ontograph/infrastructure/persistence/sqlite"

	"github.com/spf13/cobra"
)

// CacheLine is one row of ontoctl cache ls
type CacheLine struct {
	IRI      string `json:"iri" yaml:"iri"`
	Label    string `json:"label" yaml:"label"`
	Revision int64  `json:"revision" yaml:"revision"`
	Nodes    int    `json:"nodes" yaml:"nodes"`
	Edges    int    `json:"edges" yaml:"edges"`
}

func (a *app) cacheCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local snapshot cache",
	}
	cmd.PersistentFlags().StringVar(&path, "cache", defaultCachePath(), "Path to the SQLite cache")

	withCache := func(fn func(*sqlite.Cache) error) error {
		db, err := openExisting(path)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(sqlite.NewCache(db, a.logger))
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List cached snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(c *sqlite.Cache) error {
				entries, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				lines := make([]CacheLine, 0, len(entries))
				for _, e := range entries {
					lines = append(lines, CacheLine{
						IRI: e.IRI.String(), Label: e.Label, Revision: e.Revision,
						Nodes: e.NodeCount, Edges: e.EdgeCount,
					})
				}
				return a.print(lines)
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <iri>",
		Short: "Print a cached snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(c *sqlite.Cache) error {
				snapshot, ok, err := c.Get(cmd.Context(), valueobjects.OntologyIRI(args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not cached", args[0])
				}
				return writeSnapshot(cmd, snapshot)
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <iri>...",
		Short: "Drop snapshots from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(c *sqlite.Cache) error {
				for _, iri := range args {
					if err := c.Delete(cmd.Context(), valueobjects.OntologyIRI(iri)); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", iri)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(ls, get, rm)
	return cmd
}

func defaultCachePath() string {
	if p := os.Getenv("CACHE_PATH"); p != "" {
		return p
	}
	return "ontograph-cache.db"
}

// openExisting refuses to create a cache file as a side effect of reading it
func openExisting(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cache %s: %w", path, err)
		}
	}
	return sqlite.Open(path)
}

func writeSnapshot(cmd *cobra.Command, snapshot aggregates.Snapshot) error {
	body, err := snapshot.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(body); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
