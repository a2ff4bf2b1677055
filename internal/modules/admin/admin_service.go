package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/internal/modules/catalog"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/utils"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecentWindow is how far back a booking counts as recent on the dashboard.
const RecentWindow = 7 * 24 * time.Hour

const (
	exportPageSize  = 100
	maxSearchLength = 100
)

// Stat names reported in AdminStats.Failed.
const (
	StatUsers          = "total_users"
	StatWarehouses     = "total_warehouses"
	StatBookings       = "total_bookings"
	StatReviews        = "total_reviews"
	StatAverageRating  = "average_rating"
	StatRecentBookings = "recent_bookings"
)

type BookingStore interface {
	List(ctx context.Context, filter models.BookingListFilter, page, limit int) ([]models.Booking, int, error)
	Delete(ctx context.Context, id string) error
}

type BookingStatusChanger interface {
	ChangeStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error)
}

type UserManager interface {
	AdminListUsers(ctx context.Context, page, limit int) ([]models.UserProfile, int, error)
	AdminUpdateUserRole(ctx context.Context, targetUserID, newRole string) (*models.UserProfile, error)
	AdminDeleteUser(ctx context.Context, targetUserID string) error
}

type ReviewManager interface {
	ListAll(ctx context.Context, search string, page, limit int) ([]models.Review, int, error)
	Delete(ctx context.Context, reviewID int64) error
}

type ServiceInterface interface {
	ComputeStats(ctx context.Context) models.AdminStats

	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	CreateWarehouse(ctx context.Context, adminID string, req models.CreateWarehouseRequest) (*models.Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id int64) error

	ListBookings(ctx context.Context, query models.BookingQuery, page, limit int) ([]models.Booking, int, error)
	UpdateBookingStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ExportBookingsCSV(ctx context.Context, query models.BookingQuery) ([]byte, error)

	ListUsers(ctx context.Context, page, limit int) ([]models.UserProfile, int, error)
	UpdateUserRole(ctx context.Context, adminID, userID, role string) (*models.UserProfile, error)
	DeleteUser(ctx context.Context, adminID, userID string) error

	ListReviews(ctx context.Context, search string, page, limit int) ([]models.Review, int, error)
	DeleteReview(ctx context.Context, id int64) error
}

type Service struct {
	repo       RepositoryInterface
	warehouses catalog.RepositoryInterface
	bookings   BookingStore
	statuses   BookingStatusChanger
	users      UserManager
	reviews    ReviewManager
	guard      inflight.Guard
	now        func() time.Time
}

func NewService(
	repo RepositoryInterface,
	warehouses catalog.RepositoryInterface,
	bookings BookingStore,
	statuses BookingStatusChanger,
	users UserManager,
	reviews ReviewManager,
	guard inflight.Guard,
) *Service {
	return &Service{
		repo:       repo,
		warehouses: warehouses,
		bookings:   bookings,
		statuses:   statuses,
		users:      users,
		reviews:    reviews,
		guard:      guard,
		now:        time.Now,
	}
}

// ComputeStats runs the dashboard queries concurrently. A query that fails
// leaves its figure at zero and is named in Failed; the rest are still reported.
func (s *Service) ComputeStats(ctx context.Context) models.AdminStats {
	var (
		result models.AdminStats
		mu     sync.Mutex
		failed = map[string]bool{}
		g      errgroup.Group
	)

	run := func(name string, query func() error) {
		g.Go(func() error {
			if err := query(); err != nil {
				zap.L().Warn("admin stat query failed", zap.String("stat", name), zap.Error(err))
				mu.Lock()
				failed[name] = true
				mu.Unlock()
			}
			return nil
		})
	}
	count := func(name string, dst *int, query func(context.Context) (int, error)) {
		run(name, func() error {
			n, err := query(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			*dst = n
			mu.Unlock()
			return nil
		})
	}

	count(StatUsers, &result.TotalUsers, s.repo.CountUsers)
	count(StatWarehouses, &result.TotalWarehouses, s.repo.CountWarehouses)
	count(StatBookings, &result.TotalBookings, s.repo.CountBookings)
	count(StatReviews, &result.TotalReviews, s.repo.CountReviews)
	count(StatRecentBookings, &result.RecentBookings, func(ctx context.Context) (int, error) {
		return s.repo.CountBookingsSince(ctx, s.now().Add(-RecentWindow))
	})
	run(StatAverageRating, func() error {
		ratings, err := s.repo.ListRatings(ctx)
		if err != nil {
			return err
		}
		avg, err := averageRating(ratings)
		if err != nil {
			return err
		}
		mu.Lock()
		result.AverageRating = avg
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	for _, name := range []string{StatUsers, StatWarehouses, StatBookings, StatReviews, StatAverageRating, StatRecentBookings} {
		if failed[name] {
			result.Failed = append(result.Failed, name)
		}
	}
	return result
}

// averageRating is the mean rounded to one decimal, zero when there are no reviews.
func averageRating(ratings []float64) (float64, error) {
	if len(ratings) == 0 {
		return 0, nil
	}
	mean, err := stats.Mean(ratings)
	if err != nil {
		return 0, fmt.Errorf("averageRating.Mean: %w", err)
	}
	return stats.Round(mean, 1)
}

// --- Warehouses ---

func (s *Service) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses, err := s.warehouses.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ListWarehouses: %w", err)
	}
	return warehouses, nil
}

func (s *Service) CreateWarehouse(ctx context.Context, adminID string, req models.CreateWarehouseRequest) (*models.Warehouse, error) {
	verr := utils.GetValidator().Fields(req)
	if verr == nil {
		verr = models.NewValidationError()
	}
	if req.Price.IsNegative() {
		verr.Add("price", "must be 0 or greater")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	release, err := s.hold(ctx, "admin:"+adminID+":warehouse:create")
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.warehouses.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("service.CreateWarehouse: %w", err)
	}
	zap.L().Info("warehouse created", zap.Int64("warehouse_id", w.ID), zap.String("admin_id", adminID))
	return w, nil
}

func (s *Service) UpdateWarehouse(ctx context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error) {
	verr := utils.GetValidator().Fields(req)
	if verr == nil {
		verr = models.NewValidationError()
	}
	if req.Price != nil && req.Price.IsNegative() {
		verr.Add("price", "must be 0 or greater")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	release, err := s.hold(ctx, "admin:warehouse:"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.warehouses.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateWarehouse: %w", err)
	}
	return w, nil
}

// DeleteWarehouse refuses while the warehouse has pending or confirmed bookings.
func (s *Service) DeleteWarehouse(ctx context.Context, id int64) error {
	open, err := s.repo.CountOpenBookingsForWarehouse(ctx, id)
	if err != nil {
		return fmt.Errorf("service.DeleteWarehouse.CountOpen: %w", err)
	}
	if open > 0 {
		return models.ErrHasOpenBookings
	}
	if err := s.warehouses.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.DeleteWarehouse: %w", err)
	}
	zap.L().Info("warehouse deleted", zap.Int64("warehouse_id", id))
	return nil
}

func (s *Service) hold(ctx context.Context, key string) (func(), error) {
	release, err := s.guard.Acquire(ctx, key)
	if errors.Is(err, inflight.ErrBusy) {
		return nil, models.ErrSubmissionInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("service.hold: %w", err)
	}
	return release, nil
}

// --- Bookings ---

// ListBookings lists every customer's bookings. query may narrow them to one
// user, a status, a date range or a search term.
func (s *Service) ListBookings(ctx context.Context, query models.BookingQuery, page, limit int) ([]models.Booking, int, error) {
	filter, err := query.Filter()
	if err != nil {
		return nil, 0, err
	}
	bookings, total, err := s.bookings.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListBookings: %w", err)
	}
	return bookings, total, nil
}

func (s *Service) UpdateBookingStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error) {
	if verr := utils.GetValidator().Fields(models.UpdateBookingStatusRequest{Status: to}); verr != nil {
		return nil, verr
	}
	return s.statuses.ChangeStatus(ctx, id, to)
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	if err := s.bookings.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.DeleteBooking: %w", err)
	}
	zap.L().Info("booking deleted", zap.String("booking_id", id))
	return nil
}

// BookingCSVRow is one line of the bookings export.
type BookingCSVRow struct {
	ID                string `csv:"booking_id"`
	UserEmail         string `csv:"user_email"`
	WarehouseName     string `csv:"warehouse"`
	WarehouseLocation string `csv:"location"`
	StartDate         string `csv:"start_date"`
	EndDate           string `csv:"end_date"`
	Quantity          string `csv:"quantity"`
	Duration          int    `csv:"duration_days"`
	TotalAmount       string `csv:"total_amount"`
	DiscountAmount    string `csv:"discount_amount"`
	PaymentMethod     string `csv:"payment_method"`
	Status            string `csv:"status"`
	BookingDate       string `csv:"booking_date"`
}

// ExportBookingsCSV renders every booking matching query, newest first.
func (s *Service) ExportBookingsCSV(ctx context.Context, query models.BookingQuery) ([]byte, error) {
	rows := []*BookingCSVRow{}
	for page := 1; ; page++ {
		bookings, total, err := s.ListBookings(ctx, query, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			rows = append(rows, &BookingCSVRow{
				ID:                b.ID,
				UserEmail:         b.UserEmail,
				WarehouseName:     b.WarehouseName,
				WarehouseLocation: b.WarehouseLocation,
				StartDate:         b.StartDate.Format(models.DateLayout),
				EndDate:           b.EndDate.Format(models.DateLayout),
				Quantity:          b.Quantity.String(),
				Duration:          b.Duration,
				TotalAmount:       b.TotalAmount.StringFixed(2),
				DiscountAmount:    b.DiscountAmount.StringFixed(2),
				PaymentMethod:     b.PaymentMethod,
				Status:            string(b.Status),
				BookingDate:       b.BookingDate.UTC().Format(time.RFC3339),
			})
		}
		if len(bookings) == 0 || len(rows) >= total {
			break
		}
	}

	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("service.ExportBookingsCSV: %w", err)
	}
	return out, nil
}

// --- Users ---

func (s *Service) ListUsers(ctx context.Context, page, limit int) ([]models.UserProfile, int, error) {
	return s.users.AdminListUsers(ctx, page, limit)
}

// UpdateUserRole refuses to demote the calling admin, so the back office always
// keeps at least the admin who is using it.
func (s *Service) UpdateUserRole(ctx context.Context, adminID, userID, role string) (*models.UserProfile, error) {
	if adminID == userID && role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}
	return s.users.AdminUpdateUserRole(ctx, userID, role)
}

// DeleteUser refuses for the calling admin and for users with open bookings.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return models.ErrForbidden
	}
	open, err := s.repo.CountOpenBookingsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service.DeleteUser.CountOpen: %w", err)
	}
	if open > 0 {
		return models.ErrHasOpenBookings
	}
	return s.users.AdminDeleteUser(ctx, userID)
}

// --- Reviews ---

// ListReviews lists reviews newest first. search matches the comment, the
// reviewer's email or the warehouse name.
func (s *Service) ListReviews(ctx context.Context, search string, page, limit int) ([]models.Review, int, error) {
	search = strings.TrimSpace(search)
	if len(search) > maxSearchLength {
		verr := models.NewValidationError()
		verr.Add("q", fmt.Sprintf("must be at most %d characters", maxSearchLength))
		return nil, 0, verr
	}
	return s.reviews.ListAll(ctx, search, page, limit)
}

func (s *Service) DeleteReview(ctx context.Context, id int64) error {
	return s.reviews.Delete(ctx, id)
}
