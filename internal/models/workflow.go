package models

import "errors"

// WorkflowState is where a checkout attempt (storage booking or logistics
// subscription) stands from the client's point of view.
type WorkflowState int

const (
	StateUnauthenticated WorkflowState = iota
	StateFormEditing
	StateSubmitting
	StateConfirmed
	StateFailed
)

func (s WorkflowState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateFormEditing:
		return "form_editing"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// StateAfter reports the state an attempt is left in when a submission returns err.
// A declined payment goes back to FormEditing so the user can correct and retry;
// a missing plan is terminal.
func StateAfter(err error) WorkflowState {
	if err == nil {
		return StateConfirmed
	}
	var authErr *AuthRequiredError
	var verr *ValidationError
	switch {
	case errors.As(err, &authErr):
		return StateUnauthenticated
	case errors.As(err, &verr),
		errors.Is(err, ErrPaymentFailed),
		errors.Is(err, ErrWarehouseUnavailable):
		return StateFormEditing
	case errors.Is(err, ErrSubmissionInFlight):
		return StateSubmitting
	}
	return StateFailed
}
