package cli

import (
	"sort"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

// Summary is the output of ontoctl inspect
type Summary struct {
	IRI            string             `json:"iri" yaml:"iri"`
	Label          string             `json:"label" yaml:"label"`
	Revision       int64              `json:"revision" yaml:"revision"`
	SavedBy        string             `json:"savedBy,omitempty" yaml:"saved_by,omitempty"`
	Nodes          map[string]int     `json:"nodes" yaml:"nodes"`
	Edges          map[string]int     `json:"edges" yaml:"edges"`
	Imported       int                `json:"imported" yaml:"imported"`
	Multiplicities []MultiplicityLine `json:"multiplicities,omitempty" yaml:"multiplicities,omitempty"`
}

// MultiplicityLine describes one constrained object property
type MultiplicityLine struct {
	Edge      string `json:"edge" yaml:"edge"`
	Predicate string `json:"predicate" yaml:"predicate"`
	Label     string `json:"label" yaml:"label"`
}

func (a *app) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarise a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			summary, err := Summarize(snapshot)
			if err != nil {
				return err
			}
			return a.print(summary)
		},
	}
}

// Summarize counts elements per kind and lists multiplicity labels
func Summarize(s aggregates.Snapshot) (Summary, error) {
	out := Summary{
		IRI:      s.OntologyIRI.String(),
		Label:    s.Label,
		Revision: s.Revision,
		SavedBy:  s.SavedBy,
		Nodes:    map[string]int{},
		Edges:    map[string]int{},
	}
	for _, n := range s.Nodes {
		out.Nodes[string(n.Type)]++
		if n.Imported {
			out.Imported++
		}
	}
	for _, e := range s.Edges {
		out.Edges[string(e.Type)]++
		if e.Imported {
			out.Imported++
		}
		if e.Type != entities.EdgeKindObjectProperty {
			continue
		}
		m, err := valueobjects.NewMultiplicity(e.MinCount, e.MaxCount)
		if err != nil {
			return Summary{}, err
		}
		if m.IsUnbounded() {
			continue
		}
		out.Multiplicities = append(out.Multiplicities, MultiplicityLine{
			Edge: e.ID.String(), Predicate: e.Predicate, Label: m.Label(),
		})
	}
	sort.Slice(out.Multiplicities, func(i, j int) bool {
		return out.Multiplicities[i].Edge < out.Multiplicities[j].Edge
	})
	return out, nil
}
