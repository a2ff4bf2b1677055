package catalog

import (
	"context"
	"fmt"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/internal/modules/pricing"

	"github.com/shopspring/decimal"
)

type ServiceInterface interface {
	List(ctx context.Context, filter models.WarehouseFilter) ([]models.Warehouse, error)
	Get(ctx context.Context, id int64) (*models.Warehouse, error)
	Quote(ctx context.Context, id int64, quantity decimal.Decimal, durationDays int) (*QuoteResponse, error)
}

// QuoteResponse is a priced stay at one warehouse.
type QuoteResponse struct {
	WarehouseID int64           `json:"warehouse_id"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Available   bool            `json:"available"`
	pricing.Quote
}

type Service struct {
	repo       RepositoryInterface
	calculator *pricing.Calculator
}

func NewService(repo RepositoryInterface, calculator *pricing.Calculator) ServiceInterface {
	return &Service{repo: repo, calculator: calculator}
}

// List returns the filtered catalog. On a backend failure it returns an empty,
// non-nil slice together with the error, so callers can still render "no results"
// while reporting that the fetch failed.
func (s *Service) List(ctx context.Context, filter models.WarehouseFilter) ([]models.Warehouse, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return []models.Warehouse{}, fmt.Errorf("service.List: %w", err)
	}
	return Filter(records, filter), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Warehouse, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Get: %w", err)
	}
	return w, nil
}

func (s *Service) Quote(ctx context.Context, id int64, quantity decimal.Decimal, durationDays int) (*QuoteResponse, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := models.NewValidationError()
	if !quantity.IsPositive() {
		verr.Add("quantity", "must be greater than 0")
	}
	if durationDays <= 0 {
		verr.Add("duration", "must be at least 1 day")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	q, err := s.calculator.Quote(w.Price, quantity, durationDays)
	if err != nil {
		return nil, fmt.Errorf("service.Quote: %w", err)
	}
	return &QuoteResponse{WarehouseID: w.ID, PricePerDay: w.Price, Available: w.Available, Quote: q}, nil
}
