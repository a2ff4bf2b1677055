package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions lists the allowed edges. completed and cancelled are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// IsOpen reports whether the booking still holds storage (pending or confirmed).
func (s BookingStatus) IsOpen() bool {
	return s == BookingPending || s == BookingConfirmed
}

// CanTransitionTo reports whether moving from s to next is an allowed edge.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

// Limits of the quantity, duration and amount columns. A form outside them is
// rejected before any payment is taken.
const (
	QuantityScale   = 3
	MaxDurationDays = 3650
)

var (
	MaxQuantity = decimal.NewFromInt(100000)
	// MaxAmount is the largest value a NUMERIC(14,2) column holds.
	MaxAmount = decimal.RequireFromString("999999999999.99")
)

// QuantityProblem returns why q cannot be stored as a tonnage, or "" when it can.
func QuantityProblem(q decimal.Decimal) string {
	switch {
	case !q.IsPositive():
		return "must be greater than 0"
	case !q.Truncate(QuantityScale).Equal(q):
		return "must have at most 3 decimal places"
	case q.GreaterThan(MaxQuantity):
		return "must be at most " + MaxQuantity.String()
	}
	return ""
}

// Booking is a confirmed reservation of storage capacity for a date range.
type Booking struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	WarehouseID      int64           `json:"warehouse_id"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Quantity         decimal.Decimal `json:"quantity"`
	Duration         int             `json:"duration"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	Status           BookingStatus   `json:"status"`
	BookingDate      time.Time       `json:"booking_date"`

	// Populated by joined admin/user listings.
	WarehouseName     string `json:"warehouse_name,omitempty"`
	WarehouseLocation string `json:"warehouse_location,omitempty"`
	UserEmail         string `json:"user_email,omitempty"`
}

// PaymentDetails is the instrument block shared by booking and subscription forms.
// Card fields are required when Method is card, the UPI id when Method is upi.
type PaymentDetails struct {
	Method     string `json:"method" validate:"required,oneof=card upi"`
	CardNumber string `json:"card_number,omitempty" validate:"required_if=Method card,omitempty,numeric,min=12,max=19"`
	CardName   string `json:"card_name,omitempty" validate:"required_if=Method card"`
	Expiry     string `json:"expiry,omitempty" validate:"required_if=Method card,omitempty,card_expiry"`
	CVV        string `json:"cvv,omitempty" validate:"required_if=Method card,omitempty,numeric,min=3,max=4"`
	UPIID      string `json:"upi_id,omitempty" validate:"required_if=Method upi,omitempty,upi_id"`
}

// CreateBookingRequest is the booking form submitted for one warehouse.
// AttemptKey identifies one booking attempt across retries.
type CreateBookingRequest struct {
	AttemptKey string          `json:"attempt_key" validate:"required,min=8,max=64"`
	Quantity   decimal.Decimal `json:"quantity"`
	Duration   int             `json:"duration"`
	StartDate  string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	Payment    PaymentDetails  `json:"payment"`
}

// UpdateBookingStatusRequest is the admin body for a status change.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// BookingListFilter narrows booking listings. A zero From or To leaves that end
// of the range open; a booking matches when its storage period overlaps it.
// Search matches the booking id, the customer's email or the warehouse name.
type BookingListFilter struct {
	UserID string
	Status BookingStatus
	From   time.Time
	To     time.Time
	Search string
}

const maxSearchLength = 100

// BookingQuery is the list query string of the booking screens.
type BookingQuery struct {
	UserID string `query:"user_id"`
	Status string `query:"status"`
	From   string `query:"from"`
	To     string `query:"to"`
	Search string `query:"q"`
}

// Filter checks q and returns the filter it names.
func (q BookingQuery) Filter() (BookingListFilter, error) {
	verr := NewValidationError()
	f := BookingListFilter{
		UserID: strings.TrimSpace(q.UserID),
		Status: BookingStatus(strings.TrimSpace(q.Status)),
		Search: strings.TrimSpace(q.Search),
	}

	if f.Status != "" && !f.Status.Valid() {
		verr.Add("status", "must be one of pending, confirmed, completed, cancelled")
	}
	if len(f.Search) > maxSearchLength {
		verr.Add("q", fmt.Sprintf("must be at most %d characters", maxSearchLength))
	}
	f.From = parseQueryDate(verr, "from", q.From)
	f.To = parseQueryDate(verr, "to", q.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		verr.Add("to", "must not be before from")
	}
	return f, verr.OrNil()
}

func parseQueryDate(verr *ValidationError, field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		verr.Add(field, "must be a date formatted as YYYY-MM-DD")
		return time.Time{}
	}
	return t
}
