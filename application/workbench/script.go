package workbench

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ontograph/application/commands"
	"ontograph/application/commands/bus"
	"ontograph/application/session"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
)

// Step is one line of a replay script. Element references are either ids
// or names bound earlier with As.
type Step struct {
	Op string `json:"op"`
	// Event is a lifecycle envelope for op "event"
	Event json.RawMessage `json:"event,omitempty"`

	As        string   `json:"as,omitempty"`
	ID        string   `json:"id,omitempty"`
	IDs       []string `json:"ids,omitempty"`
	Owner     string   `json:"owner,omitempty"`
	Source    string   `json:"source,omitempty"`
	Target    string   `json:"target,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Label     string   `json:"label,omitempty"`
	Content   string   `json:"content,omitempty"`
	NoteType  string   `json:"noteType,omitempty"`
	Predicate string   `json:"predicate,omitempty"`
	Preset    string   `json:"preset,omitempty"`
	Text      string   `json:"text,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
}

// Report summarises a replay
type Report struct {
	Steps    int
	Applied  int
	Rejected int
	Names    map[string]valueobjects.ElementID
}

// Replay runs a JSON-lines script. Rejected edits are counted and skipped;
// malformed lines and failed lifecycle events stop the replay.
func (w *Workbench) Replay(ctx context.Context, r io.Reader) (Report, error) {
	report := Report{Names: make(map[string]valueobjects.ElementID)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var step Step
		if err := json.Unmarshal([]byte(text), &step); err != nil {
			return report, fmt.Errorf("line %d: %w", line, err)
		}
		report.Steps++

		err := w.Run(ctx, step, report.Names)
		switch {
		case err == nil:
			report.Applied++
		case errors.Is(err, bus.ErrRejected), errors.Is(err, bus.ErrValidationFailed):
			report.Rejected++
		default:
			return report, fmt.Errorf("line %d (%s): %w", line, step.Op, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Run executes one step. names binds As labels to created node ids.
func (w *Workbench) Run(ctx context.Context, step Step, names map[string]valueobjects.ElementID) error {
	resolve := func(ref string) valueobjects.ElementID {
		if id, ok := names[ref]; ok {
			return id
		}
		id, err := valueobjects.NewElementIDFromString(ref)
		if err != nil {
			return valueobjects.ElementID{}
		}
		return id
	}

	switch step.Op {
	case "event":
		ev, err := session.DecodeEvent(step.Event)
		if err != nil {
			return err
		}
		return w.Session.Handle(ctx, ev)
	case "flush":
		return w.Coordinator.FlushAndWait(ctx)
	case "select":
		ids := make([]valueobjects.ElementID, 0, len(step.IDs))
		for _, ref := range step.IDs {
			ids = append(ids, resolve(ref))
		}
		w.Editor.Select(ids...)
		return nil
	}

	cmd, err := w.command(step, resolve)
	if err != nil {
		return err
	}

	before := w.nodeIDs()
	if err := w.Bus.Send(ctx, cmd); err != nil {
		return err
	}
	if step.As != "" {
		if id, ok := w.createdNode(before); ok {
			names[step.As] = id
		}
	}
	return nil
}

func (w *Workbench) command(step Step, resolve func(string) valueobjects.ElementID) (bus.Command, error) {
	pos, err := stepPosition(step)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case "add_class":
		return commands.AddClassCommand{Label: step.Label, Position: pos}, nil
	case "add_data_property":
		cmd := commands.AddDataPropertyCommand{OwnerID: resolve(step.Owner), Label: step.Label}
		if step.X != nil && step.Y != nil {
			cmd.Position = &pos
		}
		return cmd, nil
	case "add_note":
		cmd := commands.AddNoteCommand{Content: step.Content, Position: pos}
		if step.NoteType != "" {
			cmd.NoteType = valueobjects.NoteType(step.NoteType)
		}
		if step.Target != "" {
			cmd.TargetID = resolve(step.Target)
		}
		return cmd, nil
	case "connect":
		kind := entities.EdgeKind(step.Kind)
		if kind == "" {
			kind = entities.EdgeKindObjectProperty
		}
		predicate := step.Predicate
		if predicate == "" && kind == entities.EdgeKindObjectProperty {
			predicate = w.Editor.Config().DefaultPredicate
		}
		return commands.CreateEdgeCommand{Spec: aggregates.EdgeSpec{
			Kind:      kind,
			SourceID:  resolve(step.Source),
			TargetID:  resolve(step.Target),
			Predicate: predicate,
		}}, nil
	case "rename":
		return commands.RenameElementCommand{ID: resolve(step.ID), Label: step.Label}, nil
	case "delete":
		ids := make([]valueobjects.ElementID, 0, len(step.IDs)+1)
		if step.ID != "" {
			ids = append(ids, resolve(step.ID))
		}
		for _, ref := range step.IDs {
			ids = append(ids, resolve(ref))
		}
		return commands.DeleteElementsCommand{IDs: ids}, nil
	case "move":
		return commands.MoveNodeCommand{ID: resolve(step.ID), Position: pos}, nil
	case "set_predicate":
		return commands.SetPredicateCommand{EdgeID: resolve(step.ID), Predicate: step.Predicate}, nil
	case "set_note_type":
		return commands.SetNoteTypeCommand{ID: resolve(step.ID), NoteType: valueobjects.NoteType(step.NoteType)}, nil
	case "toggle_equivalence":
		return commands.ToggleEquivalenceCommand{ID: resolve(step.ID)}, nil
	case "set_multiplicity":
		return commands.SetMultiplicityCommand{
			EdgeID: resolve(step.ID),
			Preset: valueobjects.MultiplicityPreset(step.Preset),
			Text:   step.Text,
		}, nil
	case "reconnect":
		return commands.ReconnectEdgeCommand{
			EdgeID:   resolve(step.ID),
			SourceID: resolve(step.Source),
			TargetID: resolve(step.Target),
		}, nil
	case "undo":
		return commands.UndoCommand{}, nil
	case "redo":
		return commands.RedoCommand{}, nil
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown op %q", step.Op))
	}
}

func stepPosition(step Step) (valueobjects.Position, error) {
	var x, y float64
	if step.X != nil {
		x = *step.X
	}
	if step.Y != nil {
		y = *step.Y
	}
	return valueobjects.NewPosition(x, y)
}

func (w *Workbench) nodeIDs() map[valueobjects.ElementID]struct{} {
	nodes := w.Editor.Nodes()
	ids := make(map[valueobjects.ElementID]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID()] = struct{}{}
	}
	return ids
}

// createdNode finds the node a command added. Adding a note for a target
// creates one node and one edge; only the node is bound.
func (w *Workbench) createdNode(before map[valueobjects.ElementID]struct{}) (valueobjects.ElementID, bool) {
	for _, n := range w.Editor.Nodes() {
		if _, ok := before[n.ID()]; !ok {
			return n.ID(), true
		}
	}
	return valueobjects.ElementID{}, false
}
