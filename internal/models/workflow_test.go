package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateAfter(t *testing.T) {
	verr := NewValidationError()
	verr.Add("quantity", "must be greater than 0")

	cases := []struct {
		err  error
		want WorkflowState
	}{
		{nil, StateConfirmed},
		{&AuthRequiredError{ReturnPath: "/warehouse/1"}, StateUnauthenticated},
		{verr, StateFormEditing},
		{fmt.Errorf("%w: card declined", ErrPaymentFailed), StateFormEditing},
		{ErrWarehouseUnavailable, StateFormEditing},
		{ErrSubmissionInFlight, StateSubmitting},
		{ErrPlanNotFound, StateFailed},
		{errors.New("connection reset"), StateFailed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StateAfter(tc.err), "%v", tc.err)
	}
}

func TestValidationErrorKeepsFirstMessage(t *testing.T) {
	verr := NewValidationError()
	assert.NoError(t, verr.OrNil())

	verr.Add("rating", "must be between 1 and 5")
	verr.Add("rating", "is required")
	verr.Add("comment", "is too long")

	assert.Equal(t, "must be between 1 and 5", verr.Fields["rating"])
	assert.Equal(t, "validation failed: comment: is too long; rating: must be between 1 and 5", verr.Error())
	assert.Error(t, verr.OrNil())
}

func TestSessionDisplayName(t *testing.T) {
	assert.Equal(t, "Asha Rao", (&Session{FirstName: "Asha", LastName: "Rao"}).DisplayName())
	assert.Equal(t, "a@b.in", (&Session{Email: "a@b.in"}).DisplayName())
	assert.False(t, (*Session)(nil).IsAdmin())
	assert.True(t, (&Session{Role: RoleAdmin}).IsAdmin())
}
