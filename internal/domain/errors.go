package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeValidationFailed   = "validation_failed"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeUserExists         = "user_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeSameAccount        = "same_account"
	CodeInvalidAmount      = "invalid_amount"
	CodeInvalidRate        = "invalid_rate"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeTransferFailed     = "transfer_failed"
	CodeInternal           = "internal_error"
)

// Error is a client-visible failure carrying the envelope code, message and HTTP status.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e that records cause for logging.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

var (
	ErrValidation         = &Error{Code: CodeValidationFailed, Message: "Invalid input", Status: http.StatusBadRequest}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "Authentication required", Status: http.StatusUnauthorized}
	ErrInvalidToken       = &Error{Code: CodeUnauthorized, Message: "Invalid token", Status: http.StatusUnauthorized}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "Not found", Status: http.StatusNotFound}
	ErrUserExists         = &Error{Code: CodeUserExists, Message: "User already exists", Status: http.StatusConflict}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid email or password", Status: http.StatusUnauthorized}

	ErrInvalidAccountID  = &Error{Code: CodeValidationFailed, Message: "Invalid account ID format", Status: http.StatusBadRequest}
	ErrAccountNotFound   = &Error{Code: CodeNotFound, Message: "One or both accounts not found", Status: http.StatusNotFound}
	ErrSameAccount       = &Error{Code: CodeSameAccount, Message: "Cannot convert to the same account", Status: http.StatusBadRequest}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Message: "Amount must be greater than 0", Status: http.StatusBadRequest}
	ErrInvalidRate       = &Error{Code: CodeInvalidRate, Message: "Exchange rate must be greater than 0", Status: http.StatusBadRequest}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "Insufficient balance in source account", Status: http.StatusBadRequest}
	ErrTransferFailed    = &Error{Code: CodeTransferFailed, Message: "Failed to complete transfer", Status: http.StatusInternalServerError}
)

// Validation returns a validation_failed error with msg.
func Validation(msg string) *Error {
	return ErrValidation.WithMessage(msg)
}

// NotFound returns a not_found error with msg.
func NotFound(msg string) *Error {
	return ErrNotFound.WithMessage(msg)
}

// AsError extracts the client-visible error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
