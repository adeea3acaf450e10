package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateReportsJSONNames(t *testing.T) {
	err := New().Validate(loginBody{Email: "not-an-email"})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"email": "email", "password": "required"}, ve.Fields)
	assert.Equal(t, "validation failed: email: email; password: required", err.Error())
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, New().Validate(loginBody{Email: "a@b.co", Password: "x"}))
}
