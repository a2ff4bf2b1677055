package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardRequest(key, number string) ChargeRequest {
	return ChargeRequest{
		IdempotencyKey: key,
		Method:         MethodCard,
		Amount:         decimal.NewFromInt(2100),
		Card:           &Card{Number: number, Name: "Asha Rao", Expiry: "12/29", CVV: "123"},
	}
}

func TestSimulatedGatewayApprovesAndReplays(t *testing.T) {
	g := NewSimulatedGateway(NewMemoryStore(), 0, "0002")
	ctx := context.Background()

	first, err := g.Charge(ctx, cardRequest("booking:u1:k1", "4111111111111111"))
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, first.Status)
	assert.NotEmpty(t, first.Reference)

	second, err := g.Charge(ctx, cardRequest("booking:u1:k1", "4111111111111111"))
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)

	other, err := g.Charge(ctx, cardRequest("booking:u1:k2", "4111111111111111"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Reference, other.Reference)
}

func TestSimulatedGatewayDeclineIsNotRemembered(t *testing.T) {
	g := NewSimulatedGateway(NewMemoryStore(), 0, "0002")
	ctx := context.Background()

	charge, err := g.Charge(ctx, cardRequest("k", "4000000000000002"))
	assert.ErrorIs(t, err, ErrDeclined)
	require.NotNil(t, charge)
	assert.Empty(t, charge.Reference)

	ok, err := g.Charge(ctx, cardRequest("k", "4111111111111111"))
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, ok.Status)
}

func TestSimulatedGatewayUPI(t *testing.T) {
	g := NewSimulatedGateway(NewMemoryStore(), 0, "0002")
	charge, err := g.Charge(context.Background(), ChargeRequest{
		IdempotencyKey: "logistics:u1:k1",
		Method:         MethodUPI,
		Amount:         decimal.NewFromInt(2999),
		UPIID:          "farmer@okbank",
	})
	require.NoError(t, err)
	assert.Equal(t, MethodUPI, charge.Method)
}

func TestSimulatedGatewayRejectsBadRequests(t *testing.T) {
	g := NewSimulatedGateway(NewMemoryStore(), 0, "")
	ctx := context.Background()

	_, err := g.Charge(ctx, cardRequest("", "4111111111111111"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req := cardRequest("k", "4111111111111111")
	req.Amount = decimal.Zero
	_, err = g.Charge(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = g.Charge(ctx, ChargeRequest{IdempotencyKey: "k", Method: MethodUPI, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSimulatedGatewayHonoursCancellation(t *testing.T) {
	g := NewSimulatedGateway(NewMemoryStore(), time.Minute, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Charge(ctx, cardRequest("k", "4111111111111111"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRefused(t *testing.T) {
	assert.True(t, IsRefused(fmt.Errorf("charge: %w", ErrDeclined)))
	assert.True(t, IsRefused(ErrInvalidRequest))
	assert.False(t, IsRefused(context.DeadlineExceeded))
	assert.False(t, IsRefused(errors.New("dial tcp: connection refused")))
}
