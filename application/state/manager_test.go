package state

import (
	"testing"

	"ontograph/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
)

func TestManager_SetNotifiesSubscribers(t *testing.T) {
	m := NewManager()
	var seen []valueobjects.OntologyIRI
	unsubscribe := m.Subscribe(func(s EditorState) {
		seen = append(seen, s.ActiveIRI)
	})

	m.Set(func(s *EditorState) { s.ActiveIRI = "http://example.org/a" })
	unsubscribe()
	m.Set(func(s *EditorState) { s.ActiveIRI = "http://example.org/b" })

	assert.Equal(t, []valueobjects.OntologyIRI{"http://example.org/a"}, seen)
	assert.Equal(t, valueobjects.OntologyIRI("http://example.org/b"), m.Get().ActiveIRI)
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager()
	id := valueobjects.MustElementID("a")
	m.Set(func(s *EditorState) { s.Selection = []valueobjects.ElementID{id} })

	got := m.Get()
	got.Selection[0] = valueobjects.MustElementID("b")

	assert.True(t, m.Get().IsSelected(id))
}
