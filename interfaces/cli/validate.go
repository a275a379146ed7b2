package cli

import (
	"fmt"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/validators"

	"github.com/spf13/cobra"
)

// ValidationReport is the output of ontoctl validate
type ValidationReport struct {
	IRI        string   `json:"iri" yaml:"iri"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Violations []string `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a snapshot against the graph invariants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			report := ValidationReport{IRI: snapshot.OntologyIRI.String(), Valid: true}
			if _, err := aggregates.FromSnapshot(snapshot, nil, nil); err != nil {
				report.Valid = false
				report.Violations = validators.DescribeErrors(err)
			}
			if err := a.print(report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("%s: %d violation(s)", args[0], len(report.Violations))
			}
			return nil
		},
	}
}
