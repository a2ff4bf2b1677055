package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the printable confirmation summary returned after a successful payment.
type Receipt struct {
	Kind          string          `json:"kind"` // "booking" or "logistics"
	Reference     string          `json:"reference"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Item          string          `json:"item"`
	Details       []ReceiptLine   `json:"details"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	IssuedAt      time.Time       `json:"issued_at"`
}

type ReceiptLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
