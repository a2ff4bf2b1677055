// Package payment is the charge collaborator used by the booking and logistics
// workflows. Charges are idempotent per IdempotencyKey: a key that already
// succeeded returns the stored charge without charging again.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodCard = "card"
	MethodUPI  = "upi"

	StatusSucceeded = "succeeded"
	StatusDeclined  = "declined"
)

var (
	// ErrDeclined is returned when the instrument is refused. Nothing was charged.
	ErrDeclined = errors.New("payment: declined")

	// ErrInvalidRequest is returned for a request the gateway will not attempt.
	ErrInvalidRequest = errors.New("payment: invalid charge request")
)

// IsRefused reports whether err is the gateway refusing the charge, as opposed
// to the gateway being unreachable or the request being abandoned.
func IsRefused(err error) bool {
	return errors.Is(err, ErrDeclined) || errors.Is(err, ErrInvalidRequest)
}

type Card struct {
	Number string
	Name   string
	Expiry string
	CVV    string
}

type ChargeRequest struct {
	IdempotencyKey string
	Method         string
	Amount         decimal.Decimal
	Description    string
	Card           *Card
	UPIID          string
}

// Charge is the gateway's answer. Reference is only set on success.
type Charge struct {
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotency_key"`
	Method         string          `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	DeclineReason  string          `json:"decline_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}
