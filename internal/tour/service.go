package tour

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Flare200/natours/pkg/errors"
	"github.com/Flare200/natours/pkg/slug"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/geo"
	"github.com/Flare200/natours/internal/repository"
)

// Tours below this rating are excluded from the stats aggregate.
const statsMinRating = 4.5

// Service implements the business logic for tour queries.
type Service struct {
	repo   repository.TourRepository
	logger *slog.Logger
}

// NewService creates a new tour service.
func NewService(repo repository.TourRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateInput holds the parameters for creating a tour.
type CreateInput struct {
	Name          string          `json:"name" validate:"required,min=3"`
	Duration      int             `json:"duration" validate:"required,min=1"`
	MaxGroupSize  int             `json:"max_group_size" validate:"required,min=1"`
	Difficulty    string          `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price         float64         `json:"price" validate:"required,gt=0"`
	Summary       string          `json:"summary" validate:"required"`
	Description   string          `json:"description"`
	ImageCover    string          `json:"image_cover"`
	StartLocation domain.Location `json:"start_location"`
	StartDates    []time.Time     `json:"start_dates"`
}

// Create stores a new tour. The slug is derived from the name, and the rating
// summary starts at the no-reviews default.
func (s *Service) Create(ctx context.Context, input *CreateInput) (*domain.Tour, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("tour input is required")
	}

	now := time.Now().UTC()
	tour := &domain.Tour{
		ID:              uuid.New().String(),
		Name:            input.Name,
		Slug:            slug.Generate(input.Name),
		Duration:        input.Duration,
		MaxGroupSize:    input.MaxGroupSize,
		Difficulty:      input.Difficulty,
		Price:           input.Price,
		Summary:         input.Summary,
		Description:     input.Description,
		ImageCover:      input.ImageCover,
		RatingsAverage:  domain.DefaultRatingsAverage,
		RatingsQuantity: 0,
		StartLocation:   input.StartLocation,
		StartDates:      input.StartDates,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, tour); err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}

	s.logger.InfoContext(ctx, "tour created",
		slog.String("tour_id", tour.ID),
		slog.String("slug", tour.Slug),
	)

	return tour, nil
}

// GetByID returns a single tour.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	tour, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return tour, nil
}

// FindWithin returns all tours whose start location lies within the given
// distance of the lat,lng center. The distance is interpreted in the given
// unit; a tour exactly at the center is always included.
func (s *Service) FindWithin(ctx context.Context, distance float64, latlng string, unitStr string) ([]domain.Tour, error) {
	center, err := geo.ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	unit, err := geo.ParseUnit(unitStr)
	if err != nil {
		return nil, err
	}
	if distance < 0 {
		return nil, apperrors.InvalidInput("distance must not be negative")
	}

	tours, err := s.repo.ListWithLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours for geo query: %w", err)
	}

	radius := geo.RadiusAngle(distance, unit)

	within := make([]domain.Tour, 0, len(tours))
	for _, t := range tours {
		p := geo.Point{
			Latitude:  t.StartLocation.Latitude,
			Longitude: t.StartLocation.Longitude,
		}
		if geo.Within(center, p, radius) {
			within = append(within, t)
		}
	}

	s.logger.DebugContext(ctx, "geo query evaluated",
		slog.Float64("distance", distance),
		slog.String("unit", string(unit)),
		slog.Int("matches", len(within)),
	)

	return within, nil
}

// Distances returns the distance from the lat,lng reference point to every
// tour's start location, in the requested unit, nearest tour first.
func (s *Service) Distances(ctx context.Context, latlng string, unitStr string) ([]domain.TourDistance, error) {
	from, err := geo.ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	unit, err := geo.ParseUnit(unitStr)
	if err != nil {
		return nil, err
	}

	tours, err := s.repo.ListWithLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours for distances: %w", err)
	}

	distances := make([]domain.TourDistance, 0, len(tours))
	for _, t := range tours {
		p := geo.Point{
			Latitude:  t.StartLocation.Latitude,
			Longitude: t.StartLocation.Longitude,
		}
		meters := geo.DistanceMeters(from, p)
		distances = append(distances, domain.TourDistance{
			ID:       t.ID,
			Name:     t.Name,
			Distance: geo.ConvertMeters(meters, unit),
		})
	}

	// Callers render this list as-is, so the nearest-first ordering is part
	// of the contract, not presentation.
	sort.Slice(distances, func(i, j int) bool {
		return distances[i].Distance < distances[j].Distance
	})

	return distances, nil
}

// TopTours returns the five best tours by rating, cheapest first on ties.
func (s *Service) TopTours(ctx context.Context) ([]domain.Tour, error) {
	tours, err := s.repo.TopTours(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("top tours: %w", err)
	}
	return tours, nil
}

// Stats returns per-difficulty aggregates over highly rated tours.
func (s *Service) Stats(ctx context.Context) ([]domain.TourStats, error) {
	stats, err := s.repo.Stats(ctx, statsMinRating)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	return stats, nil
}

// MonthlyPlan returns the tour starts of a year grouped by month.
func (s *Service) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	if year < 1900 || year > 2200 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid year %d", year))
	}

	plan, err := s.repo.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	return plan, nil
}
