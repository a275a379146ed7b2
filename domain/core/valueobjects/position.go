package valueobjects

import (
	"encoding/json"
	"math"

	pkgerrors "ontograph/pkg/errors"
)

// Position is a value object representing node coordinates in canvas space
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{x: x, y: y}, nil
}

// MustPosition panics on non-finite coordinates
func MustPosition(x, y float64) Position {
	p, err := NewPosition(x, y)
	if err != nil {
		panic(err)
	}
	return p
}

// X returns the X coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the Y coordinate
func (p Position) Y() float64 {
	return p.y
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.x-other.x) < epsilon &&
		math.Abs(p.y-other.y) < epsilon
}

// Translate moves the position by the given offsets
func (p Position) Translate(dx, dy float64) Position {
	return Position{x: p.x + dx, y: p.y + dy}
}

// Snap rounds both coordinates to the nearest multiple of grid.
// A grid of zero or less leaves the position unchanged.
func (p Position) Snap(grid int) Position {
	if grid <= 0 {
		return p
	}
	g := float64(grid)
	return Position{
		x: snapCoordinate(p.x, g),
		y: snapCoordinate(p.y, g),
	}
}

// IsSnapped reports whether both coordinates lie on the grid
func (p Position) IsSnapped(grid int) bool {
	if grid <= 0 {
		return true
	}
	g := float64(grid)
	return math.Mod(p.x, g) == 0 && math.Mod(p.y, g) == 0
}

// ToCanvas converts a screen point into canvas space for the given pan and zoom.
func ToCanvas(screenX, screenY, panX, panY, zoom float64) (Position, error) {
	if zoom <= 0 || !isValidCoordinate(zoom) {
		return Position{}, pkgerrors.NewValidationError("zoom must be a positive finite number")
	}
	return NewPosition((screenX-panX)/zoom, (screenY-panY)/zoom)
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON implements json.Marshaler
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{X: p.x, Y: p.y})
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pos, err := NewPosition(raw.X, raw.Y)
	if err != nil {
		return err
	}
	*p = pos
	return nil
}

func snapCoordinate(v, g float64) float64 {
	s := math.Round(v/g) * g
	// normalise -0 so snapped values compare and serialize cleanly
	if s == 0 {
		return 0
	}
	return s
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
