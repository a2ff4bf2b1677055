package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatedGateway approves every charge after Latency, except cards whose number
// ends in DeclineSuffix. Only successes are remembered, so a declined attempt can
// be retried under the same key with a corrected instrument.
type SimulatedGateway struct {
	store         ResultStore
	latency       time.Duration
	declineSuffix string
	now           func() time.Time
}

func NewSimulatedGateway(store ResultStore, latency time.Duration, declineSuffix string) *SimulatedGateway {
	return &SimulatedGateway{
		store:         store,
		latency:       latency,
		declineSuffix: declineSuffix,
		now:           time.Now,
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.IdempotencyKey == "" || !req.Amount.IsPositive() {
		return nil, ErrInvalidRequest
	}
	switch req.Method {
	case MethodCard:
		if req.Card == nil || req.Card.Number == "" {
			return nil, ErrInvalidRequest
		}
	case MethodUPI:
		if req.UPIID == "" {
			return nil, ErrInvalidRequest
		}
	default:
		return nil, ErrInvalidRequest
	}

	prev, found, err := g.store.Get(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("payment.Charge: lookup: %w", err)
	}
	if found {
		zap.L().Info("payment replayed", zap.String("idempotency_key", req.IdempotencyKey), zap.String("reference", prev.Reference))
		return prev, nil
	}

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	charge := &Charge{
		IdempotencyKey: req.IdempotencyKey,
		Method:         req.Method,
		Amount:         req.Amount,
		CreatedAt:      g.now(),
	}

	if req.Method == MethodCard && g.declineSuffix != "" && strings.HasSuffix(req.Card.Number, g.declineSuffix) {
		charge.Status = StatusDeclined
		charge.DeclineReason = "card declined by issuer"
		return charge, ErrDeclined
	}

	charge.Status = StatusSucceeded
	charge.Reference = "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	if err := g.store.Put(ctx, req.IdempotencyKey, charge); err != nil {
		// The charge went through; losing the memo only weakens replay protection.
		zap.L().Error("failed to store payment result", zap.String("idempotency_key", req.IdempotencyKey), zap.Error(err))
	}
	return charge, nil
}
