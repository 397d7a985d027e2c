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

// TourRepository implements tour persistence operations using PostgreSQL.
type TourRepository struct {
	pool database.DBTX
}

// NewTourRepository creates a new PostgreSQL-backed tour repository.
func NewTourRepository(pool database.DBTX) *TourRepository {
	return &TourRepository{pool: pool}
}

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, price,
       summary, description, image_cover, ratings_average, ratings_quantity,
       start_lat, start_lng, start_description, start_address,
       created_at, updated_at`

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Duration,
		&t.MaxGroupSize,
		&t.Difficulty,
		&t.Price,
		&t.Summary,
		&t.Description,
		&t.ImageCover,
		&t.RatingsAverage,
		&t.RatingsQuantity,
		&t.StartLocation.Latitude,
		&t.StartLocation.Longitude,
		&t.StartLocation.Description,
		&t.StartLocation.Address,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tour together with its start dates.
func (r *TourRepository) Create(ctx context.Context, tour *domain.Tour) error {
	query := `
		INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty, price,
		                   summary, description, image_cover, ratings_average, ratings_quantity,
		                   start_lat, start_lng, start_description, start_address,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.pool.Exec(ctx, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		tour.Difficulty,
		tour.Price,
		tour.Summary,
		tour.Description,
		tour.ImageCover,
		tour.RatingsAverage,
		tour.RatingsQuantity,
		tour.StartLocation.Latitude,
		tour.StartLocation.Longitude,
		tour.StartLocation.Description,
		tour.StartLocation.Address,
		tour.CreatedAt,
		tour.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tour: %w", err)
	}

	for _, start := range tour.StartDates {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tour_start_dates (tour_id, starts_at) VALUES ($1, $2)`,
			tour.ID, start,
		)
		if err != nil {
			return fmt.Errorf("insert tour start date: %w", err)
		}
	}

	return nil
}

// GetByID returns a single tour by its ID.
func (r *TourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`

	tour, err := scanTour(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tour", id)
		}
		return nil, fmt.Errorf("get tour by id: %w", err)
	}

	return tour, nil
}

// GetBySlug returns a single tour by its slug.
func (r *TourRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE slug = $1`

	tour, err := scanTour(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tour", slug)
		}
		return nil, fmt.Errorf("get tour by slug: %w", err)
	}

	return tour, nil
}

// ListWithLocations returns every tour with its start location populated.
// Geospatial filtering happens in the service layer, so this query stays a
// plain scan ordered by name for stable output.
func (r *TourRepository) ListWithLocations(ctx context.Context) ([]domain.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var tours []domain.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tour row: %w", err)
		}
		tours = append(tours, *tour)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour rows: %w", err)
	}

	if tours == nil {
		tours = []domain.Tour{}
	}

	return tours, nil
}

// TopTours returns the best tours, ranked by rating descending and then by
// price ascending so cheaper tours win ties.
func (r *TourRepository) TopTours(ctx context.Context, limit int) ([]domain.Tour, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `SELECT ` + tourColumns + `
		FROM tours
		ORDER BY ratings_average DESC, price ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list top tours: %w", err)
	}
	defer rows.Close()

	var tours []domain.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tour row: %w", err)
		}
		tours = append(tours, *tour)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour rows: %w", err)
	}

	if tours == nil {
		tours = []domain.Tour{}
	}

	return tours, nil
}

// Stats returns per-difficulty aggregates over tours rated at or above minRating.
func (r *TourRepository) Stats(ctx context.Context, minRating float64) ([]domain.TourStats, error) {
	query := `
		SELECT difficulty,
		       COUNT(*),
		       COALESCE(SUM(ratings_quantity), 0),
		       COALESCE(AVG(ratings_average), 0),
		       COALESCE(AVG(price), 0),
		       COALESCE(MIN(price), 0),
		       COALESCE(MAX(price), 0)
		FROM tours
		WHERE ratings_average >= $1
		GROUP BY difficulty
		ORDER BY AVG(price)`

	rows, err := r.pool.Query(ctx, query, minRating)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.TourStats
	for rows.Next() {
		var s domain.TourStats
		if err := rows.Scan(
			&s.Difficulty,
			&s.NumTours,
			&s.NumRatings,
			&s.AvgRating,
			&s.AvgPrice,
			&s.MinPrice,
			&s.MaxPrice,
		); err != nil {
			return nil, fmt.Errorf("scan tour stats row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour stats rows: %w", err)
	}

	if stats == nil {
		stats = []domain.TourStats{}
	}

	return stats, nil
}

// MonthlyPlan returns tour starts for the given year grouped by month,
// busiest months first, capped at the 12 months of the year.
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	query := `
		SELECT EXTRACT(MONTH FROM d.starts_at)::int AS month,
		       COUNT(*) AS num_tour_starts,
		       ARRAY_AGG(t.name ORDER BY t.name) AS tours
		FROM tour_start_dates d
		JOIN tours t ON t.id = d.tour_id
		WHERE d.starts_at >= make_date($1, 1, 1)
		  AND d.starts_at < make_date($1 + 1, 1, 1)
		GROUP BY month
		ORDER BY num_tour_starts DESC, month ASC
		LIMIT 12`

	rows, err := r.pool.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	defer rows.Close()

	var plan []domain.MonthlyPlanEntry
	for rows.Next() {
		var e domain.MonthlyPlanEntry
		if err := rows.Scan(&e.Month, &e.NumTourStarts, &e.Tours); err != nil {
			return nil, fmt.Errorf("scan monthly plan row: %w", err)
		}
		plan = append(plan, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly plan rows: %w", err)
	}

	if plan == nil {
		plan = []domain.MonthlyPlanEntry{}
	}

	return plan, nil
}

// UpdateRatingStats writes the denormalized rating aggregate onto a tour.
// It returns the number of affected rows; zero means the tour is gone.
func (r *TourRepository) UpdateRatingStats(ctx context.Context, tourID string, quantity int, average float64) (int64, error) {
	query := `
		UPDATE tours
		SET ratings_quantity = $2, ratings_average = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, tourID, quantity, average)
	if err != nil {
		return 0, fmt.Errorf("update tour rating stats: %w", err)
	}

	return tag.RowsAffected(), nil
}
