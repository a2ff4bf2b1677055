package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityProblem(t *testing.T) {
	cases := map[string]string{
		"12":           "",
		"0.125":        "",
		"0.1250":       "",
		"100000":       "",
		"0":            "must be greater than 0",
		"-1":           "must be greater than 0",
		"0.0004":       "must have at most 3 decimal places",
		"100000.001":   "must be at most 100000",
		"100000000000": "must be at most 100000",
	}
	for in, want := range cases {
		assert.Equal(t, want, QuantityProblem(decimal.RequireFromString(in)), in)
	}
}

func TestBookingQueryFilter(t *testing.T) {
	f, err := BookingQuery{Status: "confirmed", From: "2026-03-01", To: "2026-03-31", Search: " frost ", UserID: "u-1"}.Filter()
	require.NoError(t, err)
	assert.Equal(t, BookingConfirmed, f.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), f.To)
	assert.Equal(t, "frost", f.Search)
	assert.Equal(t, "u-1", f.UserID)

	f, err = BookingQuery{}.Filter()
	require.NoError(t, err)
	assert.True(t, f.From.IsZero())
	assert.True(t, f.To.IsZero())

	_, err = BookingQuery{Status: "archived", From: "01/03/2026", To: "2026-02-30"}.Filter()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
	assert.Equal(t, "must be a date formatted as YYYY-MM-DD", verr.Fields["from"])
	assert.Equal(t, "must be a date formatted as YYYY-MM-DD", verr.Fields["to"])

	_, err = BookingQuery{From: "2026-03-31", To: "2026-03-01"}.Filter()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must not be before from", verr.Fields["to"])
}
