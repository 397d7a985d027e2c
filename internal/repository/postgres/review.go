package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/pkg/database"
	apperrors "github.com/Flare200/natours/pkg/errors"
)

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review. The (tour_id, user_id) unique constraint keeps
// a user from reviewing the same tour twice.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, tour_id, user_id, rating, review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.TourID,
		review.UserID,
		review.Rating,
		review.Review,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "tour_id", review.TourID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID returns a single review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT id, tour_id, user_id, rating, review, created_at, updated_at
		FROM reviews
		WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.TourID,
		&rv.UserID,
		&rv.Rating,
		&rv.Review,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}

	return &rv, nil
}

// Update rewrites the mutable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, review = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		review.ID,
		review.Rating,
		review.Review,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	return nil
}

// Delete removes a review by its ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListByTourID returns paginated reviews for a tour along with the total count.
func (r *ReviewRepository) ListByTourID(ctx context.Context, tourID string, limit, offset int) ([]domain.Review, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, tour_id, user_id, rating, review, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE tour_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tourID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.TourID,
			&rv.UserID,
			&rv.Rating,
			&rv.Review,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// AggregateForTour returns the review count and mean rating for a tour.
// With no reviews the count is zero and the average is zero; the caller
// substitutes the default rating in that case.
func (r *ReviewRepository) AggregateForTour(ctx context.Context, tourID string) (*domain.RatingSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE tour_id = $1`

	var summary domain.RatingSummary
	err := r.pool.QueryRow(ctx, query, tourID).Scan(
		&summary.Count,
		&summary.Average,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate reviews for tour: %w", err)
	}

	// Round to one decimal place, matching the precision tours display.
	summary.Average = math.Round(summary.Average*10) / 10

	return &summary, nil
}
