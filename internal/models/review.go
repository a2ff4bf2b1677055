package models

import "time"

// Review is a rating left by a user for a warehouse.
type Review struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined for presentation.
	ReviewerName      string `json:"reviewer_name,omitempty"`
	WarehouseName     string `json:"warehouse_name,omitempty"`
	WarehouseLocation string `json:"warehouse_location,omitempty"`
}

// CreateReviewRequest has no validate tags on Rating: the range check lives in the
// review service so it applies to every caller, not only HTTP.
type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}
