package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid input", InvalidInput("bad date"), CodeInvalidInput, http.StatusBadRequest},
		{"day closed", InvalidInputCode(CodeDayClosed, "closed"), CodeDayClosed, http.StatusBadRequest},
		{"hours missing", InvalidInputCode(CodeHoursMissing, "no hours"), CodeHoursMissing, http.StatusBadRequest},
		{"unauthorized", Unauthorized("login required"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("admins only"), CodeForbidden, http.StatusForbidden},
		{"not found", NotFound("reservation", 42), CodeNotFound, http.StatusNotFound},
		{"conflict", Conflict("slot taken"), CodeConflict, http.StatusConflict},
		{"configuration", Configuration("no rates", nil), CodeConfiguration, http.StatusInternalServerError},
		{"upstream", Upstream("calendar down", errors.New("http 503")), CodeUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	appErr := AsAppError(errors.New("boom"))
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	inner := Conflict("slot taken")
	wrapped := fmt.Errorf("create booking: %w", inner)

	appErr := AsAppError(wrapped)
	assert.Equal(t, CodeConflict, appErr.Code)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("availability: %w", InvalidInputCode(CodeDayClosed, "closed"))
	assert.True(t, HasCode(err, CodeDayClosed))
	assert.False(t, HasCode(err, CodeHoursMissing))
	assert.False(t, HasCode(errors.New("plain"), CodeDayClosed))
}
