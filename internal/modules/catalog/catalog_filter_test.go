package catalog

import (
	"testing"

	"cold-storage-marketplace/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleWarehouses() []models.Warehouse {
	return []models.Warehouse{
		{ID: 1, Name: "Bangalore Central Storage", Location: "Bangalore Rural", Price: decimal.NewFromInt(35), Available: true},
		{ID: 2, Name: "Mysore Cold Storage", Location: "Mysore", Price: decimal.NewFromInt(32), Available: false},
		{ID: 3, Name: "Hassan Agri Store", Location: "Hassan", Price: decimal.NewFromInt(30), Available: true},
	}
}

func ids(ws []models.Warehouse) []int64 {
	out := make([]int64, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestFilterAvailableOnlyKeepsOrder(t *testing.T) {
	got := Filter(sampleWarehouses(), models.WarehouseFilter{AvailableOnly: true})
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestFilterPredicates(t *testing.T) {
	cases := []struct {
		name   string
		filter models.WarehouseFilter
		want   []int64
	}{
		{"no predicates", models.WarehouseFilter{}, []int64{1, 2, 3}},
		{"text matches name", models.WarehouseFilter{Text: "agri"}, []int64{3}},
		{"text matches location", models.WarehouseFilter{Text: "RURAL"}, []int64{1}},
		{"text matches either", models.WarehouseFilter{Text: "storage"}, []int64{1, 2}},
		{"location ignores name", models.WarehouseFilter{Location: "storage"}, []int64{}},
		{"location substring", models.WarehouseFilter{Location: "mys"}, []int64{2}},
		{"predicates combine", models.WarehouseFilter{Text: "storage", AvailableOnly: true}, []int64{1}},
		{"blank text ignored", models.WarehouseFilter{Text: "   "}, []int64{1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(sampleWarehouses(), tc.filter)))
		})
	}
}

func TestFilterIsIdempotentAndPure(t *testing.T) {
	records := sampleWarehouses()
	before := sampleWarehouses()
	f := models.WarehouseFilter{Text: "s", AvailableOnly: true}

	first := Filter(records, f)
	second := Filter(records, f)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Filter(first, f))
	assert.Equal(t, before, records)
}

func TestFilterEmptyInput(t *testing.T) {
	got := Filter(nil, models.WarehouseFilter{AvailableOnly: true})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
