package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cold-storage-marketplace/internal/database"
	"cold-storage-marketplace/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface is the warehouse store. The admin module writes through it
// so the cache decorator sees every change.
type RepositoryInterface interface {
	ListAll(ctx context.Context) ([]models.Warehouse, error)
	FindByID(ctx context.Context, id int64) (*models.Warehouse, error)
	Create(ctx context.Context, req models.CreateWarehouseRequest) (*models.Warehouse, error)
	Update(ctx context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error)
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const warehouseColumns = `id, name, location, price, available, description, capacity, features, created_at, updated_at`

func scanWarehouse(row pgx.Row) (*models.Warehouse, error) {
	var w models.Warehouse
	err := row.Scan(
		&w.ID,
		&w.Name,
		&w.Location,
		&w.Price,
		&w.Available,
		&w.Description,
		&w.Capacity,
		&w.Features,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapError(err)
	}
	if w.Features == nil {
		w.Features = []string{}
	}
	return &w, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAll.Query: %w", err)
	}
	defer rows.Close()

	warehouses := []models.Warehouse{}
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListAll.Scan: %w", err)
		}
		warehouses = append(warehouses, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListAll.Rows: %w", err)
	}
	return warehouses, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1`
	w, err := scanWarehouse(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return w, nil
}

func (r *Repository) Create(ctx context.Context, req models.CreateWarehouseRequest) (*models.Warehouse, error) {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	features := req.Features
	if features == nil {
		features = []string{}
	}

	query := `
		INSERT INTO warehouses (name, location, price, available, description, capacity, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + warehouseColumns

	w, err := scanWarehouse(r.db.QueryRow(ctx, query,
		req.Name, req.Location, req.Price, available, req.Description, req.Capacity, features,
	))
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return w, nil
}

// Update applies only the fields present in req.
func (r *Repository) Update(ctx context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error) {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Location != nil {
		add("location", *req.Location)
	}
	if req.Price != nil {
		add("price", *req.Price)
	}
	if req.Available != nil {
		add("available", *req.Available)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Capacity != nil {
		add("capacity", *req.Capacity)
	}
	if req.Features != nil {
		add("features", req.Features)
	}

	if len(setClauses) == 0 {
		return r.FindByID(ctx, id)
	}

	add("updated_at", time.Now())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE warehouses SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, warehouseColumns)

	w, err := scanWarehouse(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("repository.Update: %w", err)
	}
	return w, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
