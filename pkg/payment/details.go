package payment

import (
	"cold-storage-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// NewChargeRequest builds a charge from the payment block of a checkout form.
func NewChargeRequest(idempotencyKey string, amount decimal.Decimal, description string, d models.PaymentDetails) ChargeRequest {
	req := ChargeRequest{
		IdempotencyKey: idempotencyKey,
		Method:         d.Method,
		Amount:         amount,
		Description:    description,
	}
	switch d.Method {
	case MethodCard:
		req.Card = &Card{Number: d.CardNumber, Name: d.CardName, Expiry: d.Expiry, CVV: d.CVV}
	case MethodUPI:
		req.UPIID = d.UPIID
	}
	return req
}

// MaskedInstrument is the receipt label for the instrument, e.g. "Card ending 4242".
func MaskedInstrument(d models.PaymentDetails) string {
	switch d.Method {
	case MethodCard:
		n := d.CardNumber
		if len(n) > 4 {
			n = n[len(n)-4:]
		}
		return "Card ending " + n
	case MethodUPI:
		return "UPI " + d.UPIID
	}
	return d.Method
}

// MethodLabel is the receipt label when only the stored method is known.
func MethodLabel(method string) string {
	switch method {
	case MethodUPI:
		return "UPI"
	case MethodCard:
		return "Card"
	}
	return method
}
