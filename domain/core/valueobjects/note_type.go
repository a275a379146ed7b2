package valueobjects

import (
	"fmt"
	"strings"

	pkgerrors "ontograph/pkg/errors"
)

// NoteType selects the visual style of a note
type NoteType string

const (
	NoteTypeComment    NoteType = "comment"
	NoteTypeTodo       NoteType = "todo"
	NoteTypeQuestion   NoteType = "question"
	NoteTypeWarning    NoteType = "warning"
	NoteTypeDefinition NoteType = "definition"
)

// NoteStyle is the color and icon a renderer uses for a note type
type NoteStyle struct {
	Color string
	Icon  string
}

var noteStyles = map[NoteType]NoteStyle{
	NoteTypeComment:    {Color: "#fff9c4", Icon: "comment"},
	NoteTypeTodo:       {Color: "#c8e6c9", Icon: "check-square"},
	NoteTypeQuestion:   {Color: "#bbdefb", Icon: "help-circle"},
	NoteTypeWarning:    {Color: "#ffcdd2", Icon: "alert-triangle"},
	NoteTypeDefinition: {Color: "#e1bee7", Icon: "book"},
}

// NoteTypes lists all note types in menu order
var NoteTypes = []NoteType{
	NoteTypeComment,
	NoteTypeTodo,
	NoteTypeQuestion,
	NoteTypeWarning,
	NoteTypeDefinition,
}

// ParseNoteType validates a note type name. An empty string yields comment.
func ParseNoteType(s string) (NoteType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoteTypeComment, nil
	}
	nt := NoteType(s)
	if !nt.IsValid() {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown note type %q", s))
	}
	return nt, nil
}

// IsValid reports whether the note type is known
func (t NoteType) IsValid() bool {
	_, ok := noteStyles[t]
	return ok
}

// Style returns the rendering style of the note type
func (t NoteType) Style() NoteStyle {
	if s, ok := noteStyles[t]; ok {
		return s
	}
	return noteStyles[NoteTypeComment]
}
