package review

import (
	"context"
	"fmt"

	"cold-storage-marketplace/internal/database"
	"cold-storage-marketplace/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RepositoryInterface interface {
	Create(ctx context.Context, r *models.Review) error
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]models.Review, error)
	// ListAll lists every review; a non-empty search matches the comment, the
	// reviewer's email or the warehouse name.
	ListAll(ctx context.Context, search string, page, limit int) ([]models.Review, int, error)
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// reviewSelect joins the reviewer's display name, falling back to the email
// when the profile has no name.
const reviewSelect = `
	SELECT r.id, r.user_id, r.warehouse_id, r.rating, r.comment, r.created_at, r.updated_at,
	       COALESCE(NULLIF(TRIM(p.first_name || ' ' || p.last_name), ''), p.email),
	       w.name, w.location
	FROM reviews r
	JOIN profiles p ON p.id = r.user_id
	JOIN warehouses w ON w.id = r.warehouse_id`

func scanReview(row pgx.Row) (*models.Review, error) {
	var r models.Review
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.WarehouseID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.ReviewerName,
		&r.WarehouseName,
		&r.WarehouseLocation,
	)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &r, nil
}

func (repo *Repository) Create(ctx context.Context, r *models.Review) error {
	query := `
		INSERT INTO reviews (user_id, warehouse_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := repo.db.QueryRow(ctx, query, r.UserID, r.WarehouseID, r.Rating, r.Comment).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.Create: %w", database.MapError(err))
	}
	return nil
}

func (repo *Repository) collect(rows pgx.Rows) ([]models.Review, error) {
	defer rows.Close()
	reviews := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

// ListByWarehouse returns a warehouse's reviews, newest first.
func (repo *Repository) ListByWarehouse(ctx context.Context, warehouseID int64) ([]models.Review, error) {
	rows, err := repo.db.Query(ctx, reviewSelect+` WHERE r.warehouse_id = $1 ORDER BY r.created_at DESC`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByWarehouse.Query: %w", err)
	}
	reviews, err := repo.collect(rows)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByWarehouse.Scan: %w", err)
	}
	return reviews, nil
}

const reviewSearchWhere = ` WHERE ($1::text IS NULL OR r.comment ILIKE $1 OR p.email ILIKE $1 OR w.name ILIKE $1)`

func (repo *Repository) ListAll(ctx context.Context, search string, page, limit int) ([]models.Review, int, error) {
	var pattern any
	if search != "" {
		pattern = database.ContainsPattern(search)
	}

	rows, err := repo.db.Query(ctx, reviewSelect+reviewSearchWhere+` ORDER BY r.created_at DESC LIMIT $2 OFFSET $3`,
		pattern, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListAll.Query: %w", err)
	}
	reviews, err := repo.collect(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListAll.Scan: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM reviews r
	JOIN profiles p ON p.id = r.user_id
	JOIN warehouses w ON w.id = r.warehouse_id` + reviewSearchWhere
	if err := repo.db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListAll.Count: %w", err)
	}
	return reviews, total, nil
}

func (repo *Repository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := repo.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
