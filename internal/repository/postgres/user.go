package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/pkg/database"
	apperrors "github.com/Flare200/natours/pkg/errors"
)

// UserRepository implements user persistence operations using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a single user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, role, photo, active, created_at
		FROM users
		WHERE id = $1 AND active`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Photo,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail returns a single user by email address. The lookup is
// case-insensitive since emails arrive from the payment gateway verbatim.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, role, photo, active, created_at
		FROM users
		WHERE lower(email) = $1 AND active`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Photo,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &u, nil
}
