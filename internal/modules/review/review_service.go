package review

import (
	"context"
	"fmt"
	"strings"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"go.uber.org/zap"
)

const (
	MinRating = 1
	MaxRating = 5
)

type WarehouseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Warehouse, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, userID string, warehouseID int64, req models.CreateReviewRequest) (*models.Review, error)
	List(ctx context.Context, warehouseID int64) ([]models.Review, error)
	ListAll(ctx context.Context, search string, page, limit int) ([]models.Review, int, error)
	Delete(ctx context.Context, reviewID int64) error
}

type Service struct {
	repo       RepositoryInterface
	warehouses WarehouseReader
}

func NewService(repo RepositoryInterface, warehouses WarehouseReader) ServiceInterface {
	return &Service{repo: repo, warehouses: warehouses}
}

// Create stores a review. A user may review the same warehouse more than once.
func (s *Service) Create(ctx context.Context, userID string, warehouseID int64, req models.CreateReviewRequest) (*models.Review, error) {
	verr := utils.GetValidator().Fields(req)
	if verr == nil {
		verr = models.NewValidationError()
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		verr.Add("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("service.Create.FindWarehouse: %w", err)
	}

	r := &models.Review{
		UserID:      userID,
		WarehouseID: w.ID,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}
	r.WarehouseName = w.Name
	r.WarehouseLocation = w.Location

	zap.L().Info("review created", zap.Int64("review_id", r.ID), zap.Int64("warehouse_id", w.ID), zap.Int("rating", r.Rating))
	return r, nil
}

func (s *Service) List(ctx context.Context, warehouseID int64) ([]models.Review, error) {
	reviews, err := s.repo.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}
	return reviews, nil
}

func (s *Service) ListAll(ctx context.Context, search string, page, limit int) ([]models.Review, int, error) {
	reviews, total, err := s.repo.ListAll(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListAll: %w", err)
	}
	return reviews, total, nil
}

// Delete is a hard delete. Callers restrict it to admins.
func (s *Service) Delete(ctx context.Context, reviewID int64) error {
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("service.Delete: %w", err)
	}
	return nil
}
