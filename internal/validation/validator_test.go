package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/saucierapp/saucier-server/internal/errors"
)

type reorderRequest struct {
	From  int    `json:"from" validate:"gte=0"`
	To    int    `json:"to" validate:"gte=0"`
	Query string `json:"query,omitempty" validate:"max=200"`
}

func TestValidate_Passes(t *testing.T) {
	v := New()

	err := v.Validate(reorderRequest{From: 2, To: 0})

	assert.NoError(t, err)
}

func TestValidate_ReturnsDomainErrorWithJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(reorderRequest{From: -1, To: 0})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "from", "field errors should use JSON tag names")
}
