package interaction

import (
	"encoding/json"

	"ontograph/application/commands"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"
	"ontograph/pkg/utils"

	"go.uber.org/zap"
)

// PalettePayload is the drag data of a palette item
type PalettePayload struct {
	Kind  string `json:"kind" validate:"required,oneof=class dataProperty note"`
	Label string `json:"label" validate:"max=200"`
}

// DecodePalettePayload parses and validates drag data
func DecodePalettePayload(data []byte) (PalettePayload, error) {
	var p PalettePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PalettePayload{}, pkgerrors.NewValidationError("malformed palette payload").WithCause(err)
	}
	if err := utils.ValidateStruct(p); err != nil {
		return PalettePayload{}, err
	}
	return p, nil
}

// Palette creates elements from drops onto the canvas
type Palette struct {
	model    Model
	dispatch Dispatcher
	logger   *zap.Logger
}

// NewPalette creates a palette drop handler
func NewPalette(model Model, dispatch Dispatcher, logger *zap.Logger) *Palette {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Palette{model: model, dispatch: dispatch, logger: logger}
}

// DropPosition converts a screen point to the canvas and snaps it to the
// grid when snapping is on
func (p *Palette) DropPosition(screenX, screenY float64, viewport Viewport) (valueobjects.Position, error) {
	pos, err := viewport.ToCanvas(screenX, screenY)
	if err != nil {
		return valueobjects.Position{}, err
	}
	cfg := p.model.Config()
	if cfg.SnapToGrid && cfg.GridSize > 0 {
		pos = pos.Snap(cfg.GridSize)
	}
	return pos, nil
}

// Drop handles raw drag data. over is the element under the pointer; a data
// property must be dropped onto a class, which becomes its owner. Invalid
// drops are ignored.
func (p *Palette) Drop(data []byte, screenX, screenY float64, viewport Viewport, over valueobjects.ElementID) bool {
	payload, err := DecodePalettePayload(data)
	if err != nil {
		p.logger.Debug("Ignoring palette drop", zap.Error(err))
		return false
	}
	return p.DropPayload(payload, screenX, screenY, viewport, over)
}

// DropPayload handles an already decoded payload
func (p *Palette) DropPayload(payload PalettePayload, screenX, screenY float64, viewport Viewport, over valueobjects.ElementID) bool {
	if err := utils.ValidateStruct(payload); err != nil {
		p.logger.Debug("Ignoring palette drop", zap.Error(err))
		return false
	}
	pos, err := p.DropPosition(screenX, screenY, viewport)
	if err != nil {
		p.logger.Debug("Ignoring palette drop outside the canvas", zap.Error(err))
		return false
	}

	kind, _ := commands.NodeKindFor(payload.Kind)
	switch kind {
	case entities.NodeKindClass:
		return send(p.dispatch, p.logger, commands.AddClassCommand{Label: payload.Label, Position: pos})
	case entities.NodeKindNote:
		return send(p.dispatch, p.logger, commands.AddNoteCommand{Content: payload.Label, Position: pos})
	case entities.NodeKindDataProperty:
		owner, ok := p.model.LookupNode(over)
		if !ok || owner.Kind() != entities.NodeKindClass {
			p.logger.Debug("Data property dropped outside a class")
			return false
		}
		return send(p.dispatch, p.logger, commands.AddDataPropertyCommand{OwnerID: over, Label: payload.Label, Position: &pos})
	}
	return false
}
