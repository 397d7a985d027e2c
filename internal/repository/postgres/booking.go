package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/pkg/database"
	apperrors "github.com/Flare200/natours/pkg/errors"
)

// BookingRepository implements booking persistence operations using PostgreSQL.
type BookingRepository struct {
	pool database.DBTX
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool database.DBTX) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// CreateIdempotent inserts the booking unless one already exists for the same
// gateway session ID. Idempotency rides on the unique index over session_id:
// a concurrent or redelivered insert hits ON CONFLICT DO NOTHING and this
// method returns the previously stored booking instead.
func (r *BookingRepository) CreateIdempotent(ctx context.Context, booking *domain.Booking) (*domain.Booking, bool, error) {
	query := `
		INSERT INTO bookings (id, tour_id, user_id, session_id, price, paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.TourID,
		booking.UserID,
		booking.SessionID,
		booking.Price,
		booking.Paid,
		booking.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert booking: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return booking, true, nil
	}

	existing, err := r.GetBySessionID(ctx, booking.SessionID)
	if err != nil {
		return nil, false, fmt.Errorf("fetch existing booking after conflict: %w", err)
	}

	return existing, false, nil
}

// GetBySessionID returns the booking created for a gateway checkout session.
func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	query := `
		SELECT id, tour_id, user_id, session_id, price, paid, created_at
		FROM bookings
		WHERE session_id = $1`

	var b domain.Booking
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&b.ID,
		&b.TourID,
		&b.UserID,
		&b.SessionID,
		&b.Price,
		&b.Paid,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("booking", sessionID)
		}
		return nil, fmt.Errorf("get booking by session id: %w", err)
	}

	return &b, nil
}

// ListByUserID returns all bookings belonging to a user, newest first.
func (r *BookingRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Booking, error) {
	query := `
		SELECT id, tour_id, user_id, session_id, price, paid, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID,
			&b.TourID,
			&b.UserID,
			&b.SessionID,
			&b.Price,
			&b.Paid,
			&b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return bookings, nil
}
