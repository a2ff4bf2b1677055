package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a unique constraint would be violated (e.g. email already registered).
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for expired, revoked or malformed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrForbidden is returned when an authenticated user lacks the role for an operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrInvalidInput is returned by pure calculations when an argument is out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWarehouseUnavailable is returned when a booking targets a warehouse marked unavailable.
	ErrWarehouseUnavailable = errors.New("warehouse is not available for booking")

	// ErrPlanNotFound is returned when a logistics plan id does not resolve. It is terminal.
	ErrPlanNotFound = errors.New("logistics plan not found")

	// ErrPaymentFailed is returned when the payment collaborator refuses the charge.
	// The workflow stays editable so the user may retry. Gateway outages are not
	// payment failures and surface as backend errors.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrSubmissionInFlight is returned when the same workflow attempt is already being submitted.
	ErrSubmissionInFlight = errors.New("a submission for this request is already in progress")

	// ErrInvalidStatusTransition is returned when a booking status change is not an allowed edge.
	ErrInvalidStatusTransition = errors.New("booking status transition not allowed")

	// ErrHasOpenBookings is returned when deleting a warehouse or user that still has
	// pending or confirmed bookings.
	ErrHasOpenBookings = errors.New("resource has open bookings")
)

// AuthRequiredError signals that the workflow needs a signed-in user.
// ReturnPath is where the client should resume after sign-in.
type AuthRequiredError struct {
	ReturnPath string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required"
}

// ValidationError carries field-level messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for a field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed, so callers can `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrorResponse is the JSON body for every non-2xx answer.
type ErrorResponse struct {
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	ReturnPath string            `json:"return_path,omitempty"`
}
