package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Fee and payroll state conflicts. These mark no-op transitions so handlers
	// can render them as informational rather than failures.
	ErrFeeSettled     = New("FEE_SETTLED", http.StatusConflict, "fee is already fully paid")
	ErrAlreadyPaid    = New("ALREADY_PAID", http.StatusConflict, "salary already paid")
	ErrAlreadyPending = New("ALREADY_PENDING", http.StatusConflict, "salary already pending")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// FieldErrors accumulates per-field validation messages. A request is rejected
// wholesale when the map is non-empty; there is no partial save.
type FieldErrors map[string]string

// Add records a message for a field, keeping the first message per field.
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; exists {
		return
	}
	f[field] = message
}

// Empty reports whether no field errors were collected.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// AsError converts the collected messages into a validation *Error, or nil when empty.
func (f FieldErrors) AsError() *Error {
	if f.Empty() {
		return nil
	}
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	err := Clone(ErrValidation, fmt.Sprintf("validation failed: %s", strings.Join(fields, ", ")))
	err.Fields = map[string]string(f)
	return err
}

// IsStateConflict reports whether err marks a no-op state transition.
func IsStateConflict(err error) bool {
	e := FromError(err)
	switch e.Code {
	case ErrFeeSettled.Code, ErrAlreadyPaid.Code, ErrAlreadyPending.Code:
		return true
	default:
		return false
	}
}
