package user

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

// RepositoryInterface defines methods for interacting with profile storage.
type RepositoryInterface interface {
	FindByID(ctx context.Context, userID string) (*models.UserProfile, error)
	// FindByEmail is the only lookup that fills PasswordHash.
	FindByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) error
	Update(ctx context.Context, userID string, data models.ProfileUpdateData) (*models.UserProfile, error)

	List(ctx context.Context, page, limit int) ([]models.UserProfile, int, error)
	UpdateRole(ctx context.Context, userID, role string) (*models.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const profileColumns = `id, email, first_name, last_name, phone_number, role, auth_provider, created_at, updated_at`

func scanProfile(row pgx.Row, extra ...any) (*models.UserProfile, error) {
	u := &models.UserProfile{}
	dest := []any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role, &u.AuthProvider, &u.CreatedAt, &u.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, database.MapError(err)
	}
	return u, nil
}

func (r *Repository) FindByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	u, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return u, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var hash string
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+`, password_hash FROM profiles WHERE lower(email) = lower($1)`, email)
	u, err := scanProfile(row, &hash)
	if err != nil {
		return nil, fmt.Errorf("repository.FindByEmail: %w", err)
	}
	u.PasswordHash = hash
	return u, nil
}

func (r *Repository) Create(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO profiles (email, first_name, last_name, phone_number, role, password_hash, auth_provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		user.Email, user.FirstName, user.LastName, user.PhoneNumber, user.Role, user.PasswordHash, user.AuthProvider,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.Create: %w", database.MapError(err))
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, userID string, data models.ProfileUpdateData) (*models.UserProfile, error) {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	if data.FirstName != nil {
		setClauses = append(setClauses, fmt.Sprintf("first_name = $%d", argIdx))
		args = append(args, *data.FirstName)
		argIdx++
	}
	if data.LastName != nil {
		setClauses = append(setClauses, fmt.Sprintf("last_name = $%d", argIdx))
		args = append(args, *data.LastName)
		argIdx++
	}
	if data.PhoneNumber != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone_number = $%d", argIdx))
		args = append(args, *data.PhoneNumber)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.FindByID(ctx, userID)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now())
	argIdx++

	args = append(args, userID)

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d RETURNING `+profileColumns,
		strings.Join(setClauses, ", "), argIdx)

	u, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("repository.Update: %w", err)
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context, page, limit int) ([]models.UserProfile, int, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.List.Query: %w", err)
	}
	defer rows.Close()

	users := []models.UserProfile{}
	for rows.Next() {
		u, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.List.Scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.List.Rows: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.List.Count: %w", err)
	}
	return users, total, nil
}

func (r *Repository) UpdateRole(ctx context.Context, userID, role string) (*models.UserProfile, error) {
	query := `UPDATE profiles SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + profileColumns
	u, err := scanProfile(r.db.QueryRow(ctx, query, role, userID))
	if err != nil {
		return nil, fmt.Errorf("repository.UpdateRole: %w", err)
	}
	return u, nil
}

func (r *Repository) Delete(ctx context.Context, userID string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
