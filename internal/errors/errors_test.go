package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: ErrPatientNotFound, wantStatus: http.StatusNotFound, wantCode: "PATIENT_NOT_FOUND"},
		{name: "wrapped conflict", err: fmt.Errorf("create patient: %w", ErrPatientEmailTaken), wantStatus: http.StatusConflict, wantCode: "PATIENT_EMAIL_TAKEN"},
		{name: "unauthenticated", err: ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED"},
		{name: "invalid credentials", err: ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "forbidden", err: ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "validation", err: NewValidationError("email", "must be a valid email"), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "bad body", err: ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "unknown", err: errors.New("connection reset by peer"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			herr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, herr.StatusCode)
			assert.Equal(t, tt.wantCode, herr.Code)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalCause(t *testing.T) {
	herr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	assert.Equal(t, "internal server error", herr.Message)
}

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	require.NoError(t, verr.OrNil())

	verr.Add("firstName", "is required")
	verr.Add("dob", "must be a date in YYYY-MM-DD format")
	err := verr.OrNil()
	require.Error(t, err)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "firstName")
	assert.Contains(t, err.Error(), "dob")

	resp := MapErrorToHTTP(err).ToErrorResponse()
	assert.Len(t, resp.Details, 2)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("get: %w", ErrUserNotFound)))
	assert.Equal(t, KindConflict, KindOf(ErrUserAlreadyExists))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}
