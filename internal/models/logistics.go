package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LogisticsPlan is a recurring monthly farm-to-storage transport plan.
type LogisticsPlan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Features     []string        `json:"features"`
}

// LogisticsSelection is the transient record written when a user picks a plan,
// read back when the subscription workflow starts.
type LogisticsSelection struct {
	SelectionID string          `json:"selection_id"`
	PlanID      string          `json:"plan_id"`
	PlanName    string          `json:"plan_name"`
	Price       decimal.Decimal `json:"price"`
	SelectedAt  time.Time       `json:"selected_at"`
}

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// LogisticsSubscription is the record promoted from a selection once payment succeeds.
type LogisticsSubscription struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	PlanID           string          `json:"plan_id"`
	PlanName         string          `json:"plan_name"`
	MonthlyAmount    decimal.Decimal `json:"monthly_amount"`
	FarmAddress      string          `json:"farm_address"`
	CropType         string          `json:"crop_type"`
	EstimatedWeight  decimal.Decimal `json:"estimated_weight"`
	PickupDate       time.Time       `json:"pickup_date"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SubscribeRequest is the logistics form. SelectionID is optional; without it
// the plan is resolved from the catalog by the path's plan id.
type SubscribeRequest struct {
	AttemptKey      string          `json:"attempt_key" validate:"required,min=8,max=64"`
	SelectionID     string          `json:"selection_id,omitempty" validate:"omitempty,uuid"`
	FarmAddress     string          `json:"farm_address" validate:"required,min=5,max=500"`
	PickupDate      string          `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	CropType        string          `json:"crop_type" validate:"required,max=100"`
	EstimatedWeight decimal.Decimal `json:"estimated_weight"`
	Payment         PaymentDetails  `json:"payment"`
}
