package email

import (
	"testing"
	"time"

	"cold-storage-marketplace/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() models.Receipt {
	return models.Receipt{
		Kind:          "booking",
		Reference:     "PAY-ABC123",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		Item:          "Hassan Agri Store, Hassan",
		Details: []models.ReceiptLine{
			{Label: "Quantity", Value: "10 MT"},
			{Label: "Duration", Value: "7 days"},
		},
		Discount:      decimal.Zero,
		TotalAmount:   decimal.NewFromInt(2100),
		PaymentMethod: "card",
		IssuedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestGenerateReceiptHTML(t *testing.T) {
	tm, err := NewTemplateManager()
	require.NoError(t, err)

	html, err := tm.GenerateReceiptHTML(sampleReceipt())
	require.NoError(t, err)
	assert.Contains(t, html, "Booking confirmed")
	assert.Contains(t, html, "PAY-ABC123")
	assert.Contains(t, html, "Rs. 2100.00")
	assert.Contains(t, html, "01 Mar 2026 10:00")
	assert.NotContains(t, html, "Discount")
}

func TestGenerateReceiptHTMLEscapes(t *testing.T) {
	tm, err := NewTemplateManager()
	require.NoError(t, err)

	r := sampleReceipt()
	r.CustomerName = "<script>alert(1)</script>"
	html, err := tm.GenerateReceiptHTML(r)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestReceiptPlainText(t *testing.T) {
	r := sampleReceipt()
	r.Kind = "logistics"
	r.Discount = decimal.NewFromInt(10)
	text := ReceiptPlainText(r)
	assert.Contains(t, text, "Reference: PAY-ABC123")
	assert.Contains(t, text, "Discount: Rs. 10.00")
	assert.Contains(t, text, "via CARD")
	assert.Equal(t, "Your logistics plan is active - PAY-ABC123", ReceiptSubject(r))
}
