package valueobjects

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		wantErr bool
	}{
		{name: "origin", x: 0, y: 0},
		{name: "negative coordinates", x: -100.5, y: -200.75},
		{name: "NaN x coordinate", x: math.NaN(), y: 0, wantErr: true},
		{name: "infinite y coordinate", x: 0, y: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition(tt.x, tt.y)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid coordinates")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.x, pos.X())
			assert.Equal(t, tt.y, pos.Y())
		})
	}
}

func TestPosition_Snap(t *testing.T) {
	tests := []struct {
		name  string
		pos   Position
		grid  int
		wantX float64
		wantY float64
	}{
		{name: "rounds down", pos: MustPosition(104, 108), grid: 20, wantX: 100, wantY: 100},
		{name: "rounds up", pos: MustPosition(111, 139), grid: 20, wantX: 120, wantY: 140},
		{name: "negative values", pos: MustPosition(-31, -9), grid: 20, wantX: -40, wantY: 0},
		{name: "zero grid is identity", pos: MustPosition(13.5, 7.25), grid: 0, wantX: 13.5, wantY: 7.25},
		{name: "fractional input", pos: MustPosition(24.9, 25.1), grid: 25, wantX: 25, wantY: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapped := tt.pos.Snap(tt.grid)
			assert.Equal(t, tt.wantX, snapped.X())
			assert.Equal(t, tt.wantY, snapped.Y())
			assert.True(t, snapped.IsSnapped(tt.grid))
		})
	}
}

func TestPosition_SnapAlwaysLandsOnGrid(t *testing.T) {
	for _, grid := range []int{1, 7, 10, 16, 20, 50} {
		for x := -333.0; x < 333; x += 17.3 {
			p := MustPosition(x, x*1.7).Snap(grid)
			assert.True(t, p.IsSnapped(grid), "grid %d, x %v -> %v", grid, x, p)
		}
	}
}

func TestToCanvas(t *testing.T) {
	pos, err := ToCanvas(250, 150, 50, 50, 2)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos.X())
	assert.Equal(t, 50.0, pos.Y())

	_, err = ToCanvas(1, 1, 0, 0, 0)
	assert.Error(t, err)
}

func TestPosition_JSON(t *testing.T) {
	data, err := json.Marshal(MustPosition(100, -20.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":100,"y":-20.5}`, string(data))

	var decoded Position
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(MustPosition(100, -20.5)))
}
