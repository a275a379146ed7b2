// Package state holds the editor's shared UI state behind an injected store.
package state

import (
	"sync"

	"ontograph/application/ports"
	"ontograph/domain/core/valueobjects"
)

// Banner is a non-blocking message shown above the canvas
type Banner struct {
	Severity ports.Severity
	Message  string
}

// EditorState is everything the interaction surface shares outside the graph
type EditorState struct {
	ActiveIRI   valueobjects.OntologyIRI
	ActiveLabel string
	ProjectID   string

	Selection []valueobjects.ElementID

	AutosaveSuspended bool
	HistorySuspended  bool

	// mirror of the connection machine
	ConnectionArmed  bool
	ConnectionSource valueobjects.ElementID

	MenuTarget valueobjects.ElementID
	EditTarget valueobjects.ElementID

	Banner *Banner
}

func (s EditorState) clone() EditorState {
	c := s
	if s.Selection != nil {
		c.Selection = append([]valueobjects.ElementID(nil), s.Selection...)
	}
	if s.Banner != nil {
		b := *s.Banner
		c.Banner = &b
	}
	return c
}

// IsSelected reports whether the element is in the selection
func (s EditorState) IsSelected(id valueobjects.ElementID) bool {
	for _, sel := range s.Selection {
		if sel.Equals(id) {
			return true
		}
	}
	return false
}

// Listener is called with the new state after every Set
type Listener func(EditorState)

// Manager is the single source of editor UI state
type Manager struct {
	mu        sync.RWMutex
	state     EditorState
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a manager holding the zero state
func NewManager() *Manager {
	return &Manager{listeners: make(map[int]Listener)}
}

// Get returns a copy of the current state
func (m *Manager) Get() EditorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Set applies fn to the state and notifies subscribers
func (m *Manager) Set(fn func(*EditorState)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// Subscribe registers a listener and returns its unsubscribe function
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}
