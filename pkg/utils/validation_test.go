package utils

import (
	"testing"

	pkgerrors "ontograph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renameRequest struct {
	Label string `validate:"required,max=5"`
	Kind  string `validate:"omitempty,oneof=class note"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   renameRequest
		wantMsg string
	}{
		{name: "valid", input: renameRequest{Label: "Cars"}},
		{name: "missing", input: renameRequest{}, wantMsg: "label is required"},
		{name: "too long", input: renameRequest{Label: "Vehicles"}, wantMsg: "label must be at most 5 characters"},
		{name: "bad choice", input: renameRequest{Label: "a", Kind: "edge"}, wantMsg: "kind must be one of: class note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Equal(t, tt.wantMsg, pkgerrors.GetAppError(err).Message)
		})
	}
}
