package valueobjects

import (
	"errors"
	"testing"

	pkgerrors "ontograph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplicityFromPreset(t *testing.T) {
	tests := []struct {
		preset MultiplicityPreset
		label  string
	}{
		{PresetNone, ""},
		{PresetExactlyOne, "1"},
		{PresetZeroOrOne, "0..1"},
		{PresetMany, "0..*"},
		{PresetOneOrMany, "1..*"},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			m, err := MultiplicityFromPreset(tt.preset)
			require.NoError(t, err)
			assert.Equal(t, tt.label, m.Label())
			assert.Equal(t, tt.preset, m.Preset())
		})
	}

	_, err := MultiplicityFromPreset(PresetCustom)
	assert.Error(t, err)
}

func TestMultiplicity_OneOrManyBounds(t *testing.T) {
	m, err := MultiplicityFromPreset(PresetOneOrMany)
	require.NoError(t, err)

	require.NotNil(t, m.Min())
	assert.Equal(t, 1, *m.Min())
	assert.Nil(t, m.Max())
}

func TestNewMultiplicity(t *testing.T) {
	two, five, neg := 2, 5, -1

	t.Run("custom range", func(t *testing.T) {
		m, err := NewMultiplicity(&two, &five)
		require.NoError(t, err)
		assert.Equal(t, PresetCustom, m.Preset())
		assert.Equal(t, "2..5", m.Label())
	})

	t.Run("custom with open max", func(t *testing.T) {
		m, err := NewMultiplicity(&five, nil)
		require.NoError(t, err)
		assert.Equal(t, "5..*", m.Label())
	})

	t.Run("min above max", func(t *testing.T) {
		_, err := NewMultiplicity(&five, &two)
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidMultiplicity))
	})

	t.Run("negative bound", func(t *testing.T) {
		_, err := NewMultiplicity(&neg, nil)
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidMultiplicity))
	})

	t.Run("bounds are copied", func(t *testing.T) {
		lo := 3
		m, err := NewMultiplicity(&lo, nil)
		require.NoError(t, err)
		lo = 9
		assert.Equal(t, 3, *m.Min())
	})
}

func TestParseMultiplicity(t *testing.T) {
	tests := []struct {
		text    string
		label   string
		wantErr bool
	}{
		{text: "", label: ""},
		{text: "1", label: "1"},
		{text: "0..1", label: "0..1"},
		{text: "2..5", label: "2..5"},
		{text: " 1 .. * ", label: "1..*"},
		{text: "3..n", label: "3..*"},
		{text: "5..2", wantErr: true},
		{text: "a..b", wantErr: true},
		{text: "*", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m, err := ParseMultiplicity(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.label, m.Label())
		})
	}
}
