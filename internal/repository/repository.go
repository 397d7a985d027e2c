package repository

import (
	"context"

	"github.com/Flare200/natours/internal/domain"
)

// TourRepository defines persistence operations for tours.
type TourRepository interface {
	Create(ctx context.Context, tour *domain.Tour) error
	GetByID(ctx context.Context, id string) (*domain.Tour, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tour, error)
	ListWithLocations(ctx context.Context) ([]domain.Tour, error)
	TopTours(ctx context.Context, limit int) ([]domain.Tour, error)
	Stats(ctx context.Context, minRating float64) ([]domain.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error)

	// UpdateRatingStats writes the denormalized rating aggregate onto a tour
	// and returns the number of rows affected. Zero rows means the tour no
	// longer exists; callers treat that as a no-op.
	UpdateRatingStats(ctx context.Context, tourID string, quantity int, average float64) (int64, error)
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id string) error
	ListByTourID(ctx context.Context, tourID string, limit, offset int) ([]domain.Review, int, error)

	// AggregateForTour returns the review count and mean rating for a tour.
	// A tour with no reviews yields a zero count, not an error.
	AggregateForTour(ctx context.Context, tourID string) (*domain.RatingSummary, error)
}

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	// CreateIdempotent inserts the booking unless one already exists for the
	// same gateway session ID. It returns the stored booking and whether this
	// call created it.
	CreateIdempotent(ctx context.Context, booking *domain.Booking) (*domain.Booking, bool, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Booking, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
