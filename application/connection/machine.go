// Package connection implements the edge-creation state machine and the two
// gesture drivers that feed it.
package connection

import (
	"sync"

	"ontograph/application/state"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/validators"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// StateKind names the machine state
type StateKind int

const (
	Idle StateKind = iota
	SourceArmed
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case SourceArmed:
		return "source_armed"
	default:
		return "unknown"
	}
}

// State is the current machine state. Source fields are set only when armed.
type State struct {
	Kind       StateKind
	SourceID   valueobjects.ElementID
	SourceKind entities.NodeKind
}

// NodeLookup resolves element ids to nodes
type NodeLookup interface {
	LookupNode(id valueobjects.ElementID) (*entities.Node, bool)
}

// Machine is the Idle / SourceArmed state machine. Completion synthesizes an
// edge spec; committing it is left to the caller. Every completion attempt,
// successful or not, returns the machine to Idle.
type Machine struct {
	mu               sync.Mutex
	current          State
	lookup           NodeLookup
	rules            *validators.ConnectionRules
	defaultPredicate string
	states           *state.Manager
	logger           *zap.Logger
}

// NewMachine creates a machine in the Idle state. states may be nil.
func NewMachine(lookup NodeLookup, rules *validators.ConnectionRules, defaultPredicate string, states *state.Manager, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPredicate == "" {
		defaultPredicate = "relatedTo"
	}
	return &Machine{
		lookup:           lookup,
		rules:            rules,
		defaultPredicate: defaultPredicate,
		states:           states,
		logger:           logger,
	}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsArmed reports whether a source is armed
func (m *Machine) IsArmed() bool {
	return m.State().Kind == SourceArmed
}

// Arm selects the source node. Arming on something that is not a node is
// ignored and leaves the machine Idle.
func (m *Machine) Arm(sourceID valueobjects.ElementID) bool {
	node, ok := m.lookup.LookupNode(sourceID)
	if !ok {
		m.logger.Debug("Ignoring arm on non-node", zap.String("target", sourceID.String()))
		m.set(State{Kind: Idle})
		return false
	}
	m.set(State{Kind: SourceArmed, SourceID: node.ID(), SourceKind: node.Kind()})
	return true
}

// Cancel returns to Idle
func (m *Machine) Cancel() {
	m.set(State{Kind: Idle})
}

// Complete tries to finish a connection on target. It returns the edge to
// create and true, or false when the pairing is not allowed. Rejections are
// silent; the machine is Idle afterwards either way.
func (m *Machine) Complete(targetID valueobjects.ElementID) (aggregates.EdgeSpec, bool) {
	armed := m.State()
	m.set(State{Kind: Idle})

	if armed.Kind != SourceArmed {
		return aggregates.EdgeSpec{}, false
	}
	if armed.SourceID.Equals(targetID) {
		return aggregates.EdgeSpec{}, false
	}

	source, ok := m.lookup.LookupNode(armed.SourceID)
	if !ok {
		return aggregates.EdgeSpec{}, false
	}
	target, ok := m.lookup.LookupNode(targetID)
	if !ok {
		m.logger.Debug("Rejecting connection to non-node target",
			zap.String("source", armed.SourceID.String()),
			zap.String("target", targetID.String()))
		return aggregates.EdgeSpec{}, false
	}

	res, ok := m.rules.Resolve(source.Kind(), target.Kind())
	if !ok {
		m.logger.Debug("Rejecting connection between incompatible kinds",
			zap.String("source_kind", source.Kind().String()),
			zap.String("target_kind", target.Kind().String()))
		return aggregates.EdgeSpec{}, false
	}
	if res.Swap {
		source, target = target, source
	}
	if err := m.rules.CheckEndpoints(res.Kind, source, target); err != nil {
		m.logger.Debug("Rejecting connection", zap.Error(err))
		return aggregates.EdgeSpec{}, false
	}

	spec := aggregates.EdgeSpec{
		Kind:     res.Kind,
		SourceID: source.ID(),
		TargetID: target.ID(),
	}
	switch res.Kind {
	case entities.EdgeKindObjectProperty:
		spec.Predicate = m.defaultPredicate
	case entities.EdgeKindNote:
		spec.Predicate = entities.NoteEdgePredicate
	}
	return spec, true
}

func (m *Machine) set(s State) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if m.states != nil {
		m.states.Set(func(es *state.EditorState) {
			es.ConnectionArmed = s.Kind == SourceArmed
			es.ConnectionSource = s.SourceID
		})
	}
}
