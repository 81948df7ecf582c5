package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes callers branch on.
const (
	CodeDuplicateOrder    = "ORD_001"
	CodeIllegalTransition = "ORD_003"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Token & Intake (TOK / SEC) ----

func ErrMalformedPayload(err error) *AppError {
	return Wrap("TOK_001", "Malformed order payload", http.StatusBadRequest, err)
}

func ErrTokenRejected() *AppError {
	return New("TOK_002", "Order token verification failed", http.StatusUnauthorized)
}

func ErrMissingOrderParams() *AppError {
	return New("SEC_001", "Valid order parameters are required", http.StatusUnauthorized)
}

// ---- Order Ledger & Lifecycle (ORD / PAY) ----

func ErrDuplicateOrder(orderID string) *AppError {
	return New(CodeDuplicateOrder, fmt.Sprintf("Order %s already exists", orderID), http.StatusConflict)
}

func ErrOrderNotFound() *AppError {
	return New("ORD_002", "Order not found", http.StatusNotFound)
}

func ErrIllegalTransition(from, to string) *AppError {
	return New(CodeIllegalTransition, fmt.Sprintf("Cannot transition order from %s to %s", from, to), http.StatusConflict)
}

func ErrUnknownStatus(status string) *AppError {
	return New("ORD_004", fmt.Sprintf("Unknown order status: %s", status), http.StatusBadRequest)
}

func ErrSetupFailure(err error) *AppError {
	return Wrap("PAY_001", "Payment setup failed", http.StatusInternalServerError, err)
}

// ---- Sessions (SES) ----

func ErrSessionNotFound() *AppError {
	return New("SES_001", "Payment session not found or expired", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
