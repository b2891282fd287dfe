package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name" validate:"notblank,max=10"`
	Year int    `json:"year" validate:"min=1"`
	Team string `json:"team" validate:"oneof=Hood Potter"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "   ", Year: 0, Team: "Hood"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "name", verr.Fields[0].Field)
	assert.Equal(t, "name cannot be blank", verr.Fields[0].Message)
	assert.Equal(t, "year", verr.Fields[1].Field)
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "Zoe", Year: 4, Team: "Potter"}))
}

func TestFieldf(t *testing.T) {
	err := Fieldf("pin", "pin is too short")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "pin is too short")
}
