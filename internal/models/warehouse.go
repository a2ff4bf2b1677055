package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse is a cold-storage facility rented by quantity and duration.
// Price is in rupees per metric ton (MT) per day.
type Warehouse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	Description *string         `json:"description,omitempty"`
	Capacity    *string         `json:"capacity,omitempty"`
	Features    []string        `json:"features"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateWarehouseRequest is the admin body for adding a warehouse.
type CreateWarehouseRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Location    string          `json:"location" validate:"required,min=2,max=200"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available,omitempty"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Capacity    *string         `json:"capacity,omitempty" validate:"omitempty,max=100"`
	Features    []string        `json:"features,omitempty" validate:"omitempty,dive,min=1,max=100"`
}

// UpdateWarehouseRequest is the admin body for a partial warehouse update.
type UpdateWarehouseRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,min=2,max=200"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Available   *bool            `json:"available,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Capacity    *string          `json:"capacity,omitempty" validate:"omitempty,max=100"`
	Features    []string         `json:"features,omitempty" validate:"omitempty,dive,min=1,max=100"`
}

// WarehouseFilter holds the catalog predicates. Empty fields are not applied.
type WarehouseFilter struct {
	Text          string
	Location      string
	AvailableOnly bool
}
