package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Flare200/natours/pkg/errors"
	"github.com/Flare200/natours/pkg/pagination"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/repository"
)

// Recomputer re-derives a tour's denormalized rating aggregate.
type Recomputer interface {
	Recompute(ctx context.Context, tourID string) error
}

// Service implements the business logic for review operations. Every write
// ends by recomputing the affected tour's rating aggregate; for updates and
// deletes the tour ID is read from the review before the mutation, since
// afterwards the row may be gone.
type Service struct {
	repo       repository.ReviewRepository
	tours      repository.TourRepository
	aggregator Recomputer
	logger     *slog.Logger
}

// NewService creates a new review service.
func NewService(
	repo repository.ReviewRepository,
	tours repository.TourRepository,
	aggregator Recomputer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		tours:      tours,
		aggregator: aggregator,
		logger:     logger,
	}
}

// CreateInput holds the parameters for creating a review.
type CreateInput struct {
	TourID string `json:"tour_id" validate:"required,uuid"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"required"`
}

// Create stores a new review and refreshes the tour's rating aggregate.
func (s *Service) Create(ctx context.Context, userID string, input *CreateInput) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input == nil {
		return nil, apperrors.InvalidInput("review input is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if input.Review == "" {
		return nil, apperrors.InvalidInput("review text is required")
	}

	// Reject reviews for tours that do not exist up front; the aggregate
	// recompute would otherwise silently no-op.
	if _, err := s.tours.GetByID(ctx, input.TourID); err != nil {
		return nil, fmt.Errorf("get tour for review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		TourID:    input.TourID,
		UserID:    userID,
		Rating:    input.Rating,
		Review:    input.Review,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.recompute(ctx, review.TourID)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("tour_id", review.TourID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// UpdateInput holds the parameters for updating a review.
type UpdateInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"required"`
}

// Update rewrites a review's rating and text, then refreshes the tour's
// rating aggregate. Only the author or an admin may update a review.
func (s *Service) Update(ctx context.Context, id, actorID, actorRole string, input *UpdateInput) (*domain.Review, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("review input is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	// Capture the tour ID before mutating; the aggregate is refreshed from
	// this copy after the write commits.
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}
	tourID := review.TourID

	if review.UserID != actorID && actorRole != domain.RoleAdmin {
		return nil, apperrors.Forbidden("you can only update your own reviews")
	}

	review.Rating = input.Rating
	review.Review = input.Review
	review.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.recompute(ctx, tourID)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("tour_id", tourID),
	)

	return review, nil
}

// Delete removes a review and refreshes the tour's rating aggregate.
// Only the author or an admin may delete a review.
func (s *Service) Delete(ctx context.Context, id, actorID, actorRole string) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}
	tourID := review.TourID

	if review.UserID != actorID && actorRole != domain.RoleAdmin {
		return apperrors.Forbidden("you can only delete your own reviews")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.recompute(ctx, tourID)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
		slog.String("tour_id", tourID),
	)

	return nil
}

// ListByTour returns a page of reviews for a tour.
func (s *Service) ListByTour(ctx context.Context, tourID string, params pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.repo.ListByTourID(ctx, tourID, params.PerPage, params.Offset)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}

// recompute refreshes the tour aggregate after a committed review mutation.
// Failures leave the tour's stats stale until the next mutation; the review
// write itself has already succeeded, so the request is not failed.
func (s *Service) recompute(ctx context.Context, tourID string) {
	if err := s.aggregator.Recompute(ctx, tourID); err != nil {
		s.logger.ErrorContext(ctx, "failed to recompute tour ratings",
			slog.String("tour_id", tourID),
			slog.String("error", err.Error()),
		)
	}
}
