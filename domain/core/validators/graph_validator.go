package validators

import (
	"fmt"

	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// GraphView is the read-only surface the validator needs
type GraphView interface {
	NodeList() []*entities.Node
	EdgeList() []*entities.Edge
}

// GraphValidator checks every structural invariant of a whole graph.
// It is used on load and after Apply, where single-operation checks do not run.
type GraphValidator struct {
	rules *ConnectionRules
}

// NewGraphValidator creates a validator using the given connection rules
func NewGraphValidator(rules *ConnectionRules) *GraphValidator {
	return &GraphValidator{rules: rules}
}

// Validate returns nil or a *ValidationErrors listing every violation
func (v *GraphValidator) Validate(g GraphView) error {
	errs := pkgerrors.NewValidationErrors()

	seen := make(map[valueobjects.ElementID]struct{})
	nodes := make(map[valueobjects.ElementID]*entities.Node)

	for _, n := range g.NodeList() {
		if _, dup := seen[n.ID()]; dup {
			errs.AddError(pkgerrors.ErrDuplicateID.WithDetail("id", n.ID().String()))
			continue
		}
		seen[n.ID()] = struct{}{}
		nodes[n.ID()] = n
		if !n.Kind().IsValid() {
			errs.AddError(pkgerrors.ErrInvalidNodeKind.WithDetail("id", n.ID().String()))
		}
	}

	for _, n := range nodes {
		if n.Kind() != entities.NodeKindDataProperty || n.OwnerID().IsZero() {
			continue
		}
		owner, ok := nodes[n.OwnerID()]
		if !ok || !v.rules.CanOwnDataProperty(owner.Kind()) {
			errs.AddError(pkgerrors.ErrInvalidOwner.
				WithDetail("id", n.ID().String()).
				WithDetail("owner", n.OwnerID().String()))
		}
	}

	for _, e := range g.EdgeList() {
		if _, dup := seen[e.ID()]; dup {
			errs.AddError(pkgerrors.ErrDuplicateID.WithDetail("id", e.ID().String()))
			continue
		}
		seen[e.ID()] = struct{}{}

		if err := v.checkEdge(e, nodes); err != nil {
			errs.AddError(err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (v *GraphValidator) checkEdge(e *entities.Edge, nodes map[valueobjects.ElementID]*entities.Node) *pkgerrors.DomainError {
	source := nodes[e.SourceID()]
	target := nodes[e.TargetID()]
	if err := v.rules.CheckEndpoints(e.Kind(), source, target); err != nil {
		// imported statements were authored elsewhere, only kinds are enforced
		if e.IsImported() && source != nil && target != nil &&
			source.Kind() == entities.NodeKindClass && target.Kind() == entities.NodeKindClass {
			return nil
		}
		if de, ok := err.(*pkgerrors.DomainError); ok {
			return de.WithDetail("edge", e.ID().String())
		}
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "INVALID_EDGE", err.Error()).
			WithDetail("edge", e.ID().String())
	}

	if e.Kind() == entities.EdgeKindObjectProperty {
		m := e.Multiplicity()
		if _, err := valueobjects.NewMultiplicity(m.Min(), m.Max()); err != nil {
			return pkgerrors.ErrInvalidMultiplicity.WithDetail("edge", e.ID().String())
		}
	}
	return nil
}

// DescribeErrors flattens a validation result into readable lines
func DescribeErrors(err error) []string {
	if err == nil {
		return nil
	}
	ve, ok := err.(*pkgerrors.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(ve.Errors))
	for _, de := range ve.Errors {
		line := de.Message
		if id, ok := de.Details["edge"]; ok {
			line = fmt.Sprintf("edge %v: %s", id, line)
		} else if id, ok := de.Details["id"]; ok {
			line = fmt.Sprintf("element %v: %s", id, line)
		}
		lines = append(lines, line)
	}
	return lines
}
