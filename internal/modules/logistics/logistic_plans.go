package logistics

import (
	"cold-storage-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// planCatalog is fixed; plans are not editable from the back office.
var planCatalog = []models.LogisticsPlan{
	{
		ID:           "basic-logistics",
		Name:         "Basic Logistics",
		MonthlyPrice: decimal.NewFromInt(1499),
		Features:     []string{"Pickup within 20km", "Shared transport", "24hr scheduling", "Basic support"},
	},
	{
		ID:           "standard-logistics",
		Name:         "Standard Logistics",
		MonthlyPrice: decimal.NewFromInt(2999),
		Features:     []string{"Pickup within 50km", "Dedicated vehicle", "Real-time tracking", "Same-day pickup"},
	},
	{
		ID:           "advanced-logistics",
		Name:         "Advanced Logistics",
		MonthlyPrice: decimal.NewFromInt(5999),
		Features:     []string{"State-wide coverage", "Cold chain transport", "Multiple deliveries", "Dedicated manager"},
	},
}

// Plans returns a copy of the plan catalog in display order.
func Plans() []models.LogisticsPlan {
	out := make([]models.LogisticsPlan, len(planCatalog))
	for i, p := range planCatalog {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}

// FindPlan looks a plan up by id.
func FindPlan(id string) (models.LogisticsPlan, bool) {
	for _, p := range planCatalog {
		if p.ID == id {
			p.Features = append([]string(nil), p.Features...)
			return p, true
		}
	}
	return models.LogisticsPlan{}, false
}
