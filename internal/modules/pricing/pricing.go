// Package pricing computes storage and logistics totals in currency minor units.
package pricing

import (
	"fmt"

	"cold-storage-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// minorUnitPlaces is the number of decimal places of the currency (paise).
const minorUnitPlaces = 2

// ComputeBookingTotal returns price × quantity × durationDays rounded to the minor unit.
// It is the undiscounted base; discounts are applied by Calculator.Quote.
func ComputeBookingTotal(pricePerUnitPerDay, quantity decimal.Decimal, durationDays int) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	}
	if durationDays <= 0 {
		return decimal.Zero, fmt.Errorf("%w: duration must be positive", models.ErrInvalidInput)
	}
	if pricePerUnitPerDay.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: price cannot be negative", models.ErrInvalidInput)
	}
	total := pricePerUnitPerDay.Mul(quantity).Mul(decimal.NewFromInt(int64(durationDays)))
	return total.Round(minorUnitPlaces), nil
}

// ComputeLogisticsMonthlyTotal returns the plan's fixed monthly price. Display and
// billing both go through here so plan-tier discounts land in one place.
func ComputeLogisticsMonthlyTotal(planFixedPrice decimal.Decimal) decimal.Decimal {
	return planFixedPrice.Round(minorUnitPlaces)
}

// DiscountPolicy reduces a booking total by Rate when the duration reaches MinDays.
type DiscountPolicy struct {
	Enabled bool
	MinDays int
	Rate    decimal.Decimal
}

// DefaultDiscountPolicy is 10% off stays of 90 days or more.
func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{Enabled: true, MinDays: 90, Rate: decimal.NewFromFloat(0.10)}
}

func (p DiscountPolicy) applies(durationDays int) bool {
	return p.Enabled && p.MinDays > 0 && durationDays >= p.MinDays && p.Rate.IsPositive()
}

// Quote is a priced booking: Total = Base - Discount.
type Quote struct {
	Base     decimal.Decimal `json:"base"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Quantity decimal.Decimal `json:"quantity"`
	Duration int             `json:"duration"`
}

type Calculator struct {
	policy DiscountPolicy
}

func NewCalculator(policy DiscountPolicy) *Calculator {
	return &Calculator{policy: policy}
}

// Quote prices a booking and applies the long-stay discount when it is due.
func (c *Calculator) Quote(pricePerUnitPerDay, quantity decimal.Decimal, durationDays int) (Quote, error) {
	base, err := ComputeBookingTotal(pricePerUnitPerDay, quantity, durationDays)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Base: base, Discount: decimal.Zero, Total: base, Quantity: quantity, Duration: durationDays}
	if c.policy.applies(durationDays) {
		q.Total = base.Mul(decimal.NewFromInt(1).Sub(c.policy.Rate)).Round(minorUnitPlaces)
		q.Discount = base.Sub(q.Total)
	}
	return q, nil
}
