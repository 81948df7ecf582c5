package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("ORD_002", "Order not found", http.StatusNotFound),
			expected: "[ORD_002] Order not found",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("PAY_002", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestTokenErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"MalformedPayload", ErrMalformedPayload(fmt.Errorf("bad base64")), "TOK_001", 400},
		{"TokenRejected", ErrTokenRejected(), "TOK_002", 401},
		{"MissingOrderParams", ErrMissingOrderParams(), "SEC_001", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestOrderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"DuplicateOrder", ErrDuplicateOrder("CRY-20240101-000000-AB12"), "ORD_001", 409},
		{"OrderNotFound", ErrOrderNotFound(), "ORD_002", 404},
		{"IllegalTransition", ErrIllegalTransition("CONFIRMED", "EXPIRED"), "ORD_003", 409},
		{"UnknownStatus", ErrUnknownStatus("bogus"), "ORD_004", 400},
		{"SetupFailure", ErrSetupFailure(fmt.Errorf("price feed down")), "PAY_001", 500},
		{"SessionNotFound", ErrSessionNotFound(), "SES_001", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestDuplicateOrder_MessageContainsID(t *testing.T) {
	err := ErrDuplicateOrder("CRY-20240101-000000-AB12")
	assert.Contains(t, err.Message, "CRY-20240101-000000-AB12")
}
