package booking

import (
	"context"
	"fmt"
	"time"

	"cold-storage-marketplace/internal/database"
	"cold-storage-marketplace/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RepositoryInterface interface {
	Create(ctx context.Context, b *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingListFilter, page, limit int) ([]models.Booking, int, error)
	// UpdateStatus moves a booking from one status to another and reports
	// ErrInvalidStatusTransition when the row is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (*models.Booking, error)
	Delete(ctx context.Context, id string) error
	CompleteEnded(ctx context.Context, asOf time.Time) (int64, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const bookingSelect = `
	SELECT b.id, b.user_id, b.warehouse_id, b.start_date, b.end_date, b.quantity, b.duration,
	       b.total_amount, b.discount_amount, b.payment_method, b.payment_reference, b.status, b.booking_date,
	       w.name, w.location, p.email
	FROM bookings b
	JOIN warehouses w ON w.id = b.warehouse_id
	JOIN profiles p ON p.id = b.user_id`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.WarehouseID,
		&b.StartDate,
		&b.EndDate,
		&b.Quantity,
		&b.Duration,
		&b.TotalAmount,
		&b.DiscountAmount,
		&b.PaymentMethod,
		&b.PaymentReference,
		&b.Status,
		&b.BookingDate,
		&b.WarehouseName,
		&b.WarehouseLocation,
		&b.UserEmail,
	)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &b, nil
}

func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, warehouse_id, start_date, end_date, quantity, duration,
		                      total_amount, discount_amount, payment_method, payment_reference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING booking_date`

	err := r.db.QueryRow(ctx, query,
		b.ID, b.UserID, b.WarehouseID, b.StartDate, b.EndDate, b.Quantity, b.Duration,
		b.TotalAmount, b.DiscountAmount, b.PaymentMethod, b.PaymentReference, b.Status,
	).Scan(&b.BookingDate)
	if err != nil {
		return fmt.Errorf("repository.Create: %w", database.MapError(err))
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return b, nil
}

func (r *Repository) FindByPaymentReference(ctx context.Context, reference string) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE b.payment_reference = $1`, reference))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByPaymentReference: %w", err)
	}
	return b, nil
}

// bookingFilterWhere expects the warehouses (w) and profiles (p) joins.
const bookingFilterWhere = `
	WHERE ($1 = '' OR b.user_id::text = $1)
	  AND ($2 = '' OR b.status = $2)
	  AND ($3::date IS NULL OR b.end_date >= $3::date)
	  AND ($4::date IS NULL OR b.start_date <= $4::date)
	  AND ($5::text IS NULL OR b.id ILIKE $5 OR p.email ILIKE $5 OR w.name ILIKE $5)`

func filterArgs(filter models.BookingListFilter) []any {
	var from, to, search any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	if filter.Search != "" {
		search = database.ContainsPattern(filter.Search)
	}
	return []any{filter.UserID, string(filter.Status), from, to, search}
}

// List returns one page of bookings, newest first. An empty filter lists every booking.
func (r *Repository) List(ctx context.Context, filter models.BookingListFilter, page, limit int) ([]models.Booking, int, error) {
	args := filterArgs(filter)
	offset := (page - 1) * limit

	rows, err := r.db.Query(ctx, bookingSelect+bookingFilterWhere+` ORDER BY b.booking_date DESC LIMIT $6 OFFSET $7`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.List.Query: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.List.Scan: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.List.Rows: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM bookings b
	JOIN warehouses w ON w.id = b.warehouse_id
	JOIN profiles p ON p.id = b.user_id` + bookingFilterWhere
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.List.Count: %w", err)
	}
	return bookings, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (*models.Booking, error) {
	cmdTag, err := r.db.Exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return nil, fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either gone or moved on since it was read.
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidStatusTransition
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CompleteEnded marks confirmed bookings whose end date is before asOf as completed.
func (r *Repository) CompleteEnded(ctx context.Context, asOf time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $1 WHERE status = $2 AND end_date < $3::date`,
		models.BookingCompleted, models.BookingConfirmed, asOf.Format(models.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("repository.CompleteEnded: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
