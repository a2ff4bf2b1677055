// Package events carries confirmation events from the API to background workers
// over a RabbitMQ topic exchange.
package events

import (
	"context"
	"time"

	"cold-storage-marketplace/internal/models"
)

// Routing keys.
const (
	BookingConfirmed   = "booking.confirmed"
	LogisticsActivated = "logistics.activated"
)

// Confirmation is published once a payment has succeeded and the record is stored.
// The receipt travels with the event so consumers never read back from the database.
type Confirmation struct {
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	Receipt    models.Receipt `json:"receipt"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}
