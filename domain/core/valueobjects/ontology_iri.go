package valueobjects

import (
	"strings"
	"unicode"

	pkgerrors "ontograph/pkg/errors"
)

// OntologyIRI identifies an ontology; it is the key of every snapshot
type OntologyIRI string

// NewOntologyIRI trims and validates an ontology identifier
func NewOntologyIRI(s string) (OntologyIRI, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", pkgerrors.NewValidationError("ontology IRI cannot be empty")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", pkgerrors.NewValidationError("ontology IRI must not contain whitespace")
	}
	return OntologyIRI(s), nil
}

// String returns the IRI text
func (i OntologyIRI) String() string {
	return string(i)
}

// IsZero reports whether no ontology is identified
func (i OntologyIRI) IsZero() bool {
	return i == ""
}
