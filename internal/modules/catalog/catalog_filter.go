package catalog

import (
	"strings"

	"cold-storage-marketplace/internal/models"
)

// Filter returns the warehouses matching every non-empty predicate of f, in input order.
// Text matches name or location, Location matches location only, both case-insensitively
// by substring. records is never modified.
func Filter(records []models.Warehouse, f models.WarehouseFilter) []models.Warehouse {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	location := strings.ToLower(strings.TrimSpace(f.Location))

	out := make([]models.Warehouse, 0, len(records))
	for _, w := range records {
		if f.AvailableOnly && !w.Available {
			continue
		}
		lowerLocation := strings.ToLower(w.Location)
		if text != "" && !strings.Contains(strings.ToLower(w.Name), text) && !strings.Contains(lowerLocation, text) {
			continue
		}
		if location != "" && !strings.Contains(lowerLocation, location) {
			continue
		}
		out = append(out, w)
	}
	return out
}
