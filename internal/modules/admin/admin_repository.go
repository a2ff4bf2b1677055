package admin

import (
	"context"
	"fmt"
	"time"

	"cold-storage-marketplace/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface holds the read-only aggregate queries of the back office.
// Record writes go through the owning modules.
type RepositoryInterface interface {
	CountUsers(ctx context.Context) (int, error)
	CountWarehouses(ctx context.Context) (int, error)
	CountBookings(ctx context.Context) (int, error)
	CountReviews(ctx context.Context) (int, error)
	ListRatings(ctx context.Context) ([]float64, error)
	CountBookingsSince(ctx context.Context, since time.Time) (int, error)
	CountOpenBookingsForWarehouse(ctx context.Context, warehouseID int64) (int, error)
	CountOpenBookingsForUser(ctx context.Context, userID string) (int, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

func (r *Repository) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.%s: %w", op, err)
	}
	return n, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, "CountUsers", `SELECT COUNT(*) FROM profiles`)
}

func (r *Repository) CountWarehouses(ctx context.Context) (int, error) {
	return r.count(ctx, "CountWarehouses", `SELECT COUNT(*) FROM warehouses`)
}

func (r *Repository) CountBookings(ctx context.Context) (int, error) {
	return r.count(ctx, "CountBookings", `SELECT COUNT(*) FROM bookings`)
}

func (r *Repository) CountReviews(ctx context.Context) (int, error) {
	return r.count(ctx, "CountReviews", `SELECT COUNT(*) FROM reviews`)
}

func (r *Repository) ListRatings(ctx context.Context) ([]float64, error) {
	rows, err := r.db.Query(ctx, `SELECT rating FROM reviews`)
	if err != nil {
		return nil, fmt.Errorf("repository.ListRatings.Query: %w", err)
	}
	defer rows.Close()

	ratings := []float64{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("repository.ListRatings.Scan: %w", err)
		}
		ratings = append(ratings, float64(rating))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListRatings.Rows: %w", err)
	}
	return ratings, nil
}

func (r *Repository) CountBookingsSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, "CountBookingsSince", `SELECT COUNT(*) FROM bookings WHERE booking_date >= $1`, since)
}

func (r *Repository) CountOpenBookingsForWarehouse(ctx context.Context, warehouseID int64) (int, error) {
	return r.count(ctx, "CountOpenBookingsForWarehouse",
		`SELECT COUNT(*) FROM bookings WHERE warehouse_id = $1 AND status IN ($2, $3)`,
		warehouseID, models.BookingPending, models.BookingConfirmed)
}

func (r *Repository) CountOpenBookingsForUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, "CountOpenBookingsForUser",
		`SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND status IN ($2, $3)`,
		userID, models.BookingPending, models.BookingConfirmed)
}
