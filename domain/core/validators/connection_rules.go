package validators

import (
	"ontograph/domain/config"
	"ontograph/domain/core/entities"
	pkgerrors "ontograph/pkg/errors"
)

// Resolution is the edge a pair of node kinds produces when connected
type Resolution struct {
	Kind entities.EdgeKind
	// Swap is set when the second node must become the source, as when a
	// class is connected to a note.
	Swap bool
}

// ConnectionRules centralises which node kinds may be joined by which edge kinds.
// The graph, the connection state machine and the palette all consult it.
type ConnectionRules struct {
	allowImportedObjectProperties bool
}

// NewConnectionRules creates rules from the editor configuration
func NewConnectionRules(cfg *config.EditorConfig) *ConnectionRules {
	if cfg == nil {
		cfg = config.DefaultEditorConfig()
	}
	return &ConnectionRules{
		allowImportedObjectProperties: cfg.AllowImportedObjectProperties,
	}
}

// Resolve returns the edge produced by connecting a node of kind first to a
// node of kind second, in that gesture order. ok is false for any pairing
// that has no edge type.
func (r *ConnectionRules) Resolve(first, second entities.NodeKind) (Resolution, bool) {
	switch first {
	case entities.NodeKindClass:
		switch second {
		case entities.NodeKindClass:
			return Resolution{Kind: entities.EdgeKindObjectProperty}, true
		case entities.NodeKindNote:
			return Resolution{Kind: entities.EdgeKindNote, Swap: true}, true
		case entities.NodeKindDataProperty:
			return Resolution{}, false
		}
	case entities.NodeKindDataProperty:
		switch second {
		case entities.NodeKindNote:
			return Resolution{Kind: entities.EdgeKindNote, Swap: true}, true
		case entities.NodeKindClass, entities.NodeKindDataProperty:
			return Resolution{}, false
		}
	case entities.NodeKindNote:
		switch second {
		case entities.NodeKindClass, entities.NodeKindDataProperty:
			return Resolution{Kind: entities.EdgeKindNote}, true
		case entities.NodeKindNote:
			return Resolution{}, false
		}
	}
	return Resolution{}, false
}

// CanConnect reports whether any edge joins the two kinds
func (r *ConnectionRules) CanConnect(first, second entities.NodeKind) bool {
	_, ok := r.Resolve(first, second)
	return ok
}

// CheckEndpoints verifies that source and target are legal for an edge of the given kind.
func (r *ConnectionRules) CheckEndpoints(kind entities.EdgeKind, source, target *entities.Node) error {
	if source == nil || target == nil {
		return pkgerrors.ErrInvalidEndpoint.WithDetail("reason", "endpoint does not resolve to a node")
	}

	switch kind {
	case entities.EdgeKindObjectProperty:
		if source.Kind() != entities.NodeKindClass || target.Kind() != entities.NodeKindClass {
			return pkgerrors.ErrInvalidEndpoint.
				WithDetail("edge", kind.String()).
				WithDetail("source", source.Kind().String()).
				WithDetail("target", target.Kind().String())
		}
		if !r.allowImportedObjectProperties && source.IsImported() && target.IsImported() {
			return pkgerrors.ErrInvalidEndpoint.
				WithDetail("edge", kind.String()).
				WithDetail("reason", "both classes are imported")
		}
	case entities.EdgeKindNote:
		if source.Kind() != entities.NodeKindNote {
			return pkgerrors.ErrInvalidEndpoint.
				WithDetail("edge", kind.String()).
				WithDetail("source", source.Kind().String())
		}
		switch target.Kind() {
		case entities.NodeKindClass, entities.NodeKindDataProperty:
		case entities.NodeKindNote:
			return pkgerrors.ErrInvalidEndpoint.
				WithDetail("edge", kind.String()).
				WithDetail("target", target.Kind().String())
		}
	default:
		return pkgerrors.NewValidationError("unknown edge kind " + kind.String())
	}
	return nil
}

// CanOwnDataProperty reports whether a node of this kind may own data properties
func (r *ConnectionRules) CanOwnDataProperty(kind entities.NodeKind) bool {
	return kind == entities.NodeKindClass
}
