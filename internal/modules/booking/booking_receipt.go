package booking

import (
	"fmt"
	"time"

	"cold-storage-marketplace/internal/models"
)

func buildReceipt(b *models.Booking, customer *models.Session, paymentLabel string, issuedAt time.Time) models.Receipt {
	r := models.Receipt{
		Kind:      "booking",
		Reference: b.ID,
		Item:      b.WarehouseName,
		Details: []models.ReceiptLine{
			{Label: "Location", Value: b.WarehouseLocation},
			{Label: "Quantity", Value: b.Quantity.String() + " MT"},
			{Label: "Duration", Value: fmt.Sprintf("%d days", b.Duration)},
			{Label: "Start date", Value: b.StartDate.Format(models.DateLayout)},
			{Label: "End date", Value: b.EndDate.Format(models.DateLayout)},
			{Label: "Payment reference", Value: b.PaymentReference},
		},
		Discount:      b.DiscountAmount,
		TotalAmount:   b.TotalAmount,
		PaymentMethod: paymentLabel,
		IssuedAt:      issuedAt,
	}
	if customer != nil {
		r.CustomerName = customer.DisplayName()
		r.CustomerEmail = customer.Email
		r.CustomerPhone = customer.Phone
	} else {
		r.CustomerName = b.UserEmail
		r.CustomerEmail = b.UserEmail
	}
	return r
}
