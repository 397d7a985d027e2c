package rating

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/event"
	"github.com/Flare200/natours/internal/metrics"
	"github.com/Flare200/natours/internal/repository"
)

// Aggregator maintains the denormalized rating statistics on tours.
// Every review mutation funnels through Recompute, which re-derives the
// count and mean from the reviews table and writes them onto the tour.
type Aggregator struct {
	reviews  repository.ReviewRepository
	tours    repository.TourRepository
	producer *event.Producer
	logger   *slog.Logger

	// Recomputes for the same tour are serialized with a per-tour lock so two
	// concurrent review mutations cannot interleave their read-then-write and
	// leave the older aggregate on the tour.
	mu    sync.Mutex
	locks map[string]*tourLock
}

type tourLock struct {
	sync.Mutex
	refs int
}

// NewAggregator creates a new rating aggregator.
func NewAggregator(
	reviews repository.ReviewRepository,
	tours repository.TourRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		reviews:  reviews,
		tours:    tours,
		producer: producer,
		logger:   logger,
		locks:    make(map[string]*tourLock),
	}
}

func (a *Aggregator) lockTour(tourID string) *tourLock {
	a.mu.Lock()
	l, ok := a.locks[tourID]
	if !ok {
		l = &tourLock{}
		a.locks[tourID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.Lock()
	return l
}

func (a *Aggregator) unlockTour(tourID string, l *tourLock) {
	l.Unlock()

	a.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(a.locks, tourID)
	}
	a.mu.Unlock()
}

// Recompute re-derives the rating aggregate for a tour and stores it.
//
// The quantity written is always the aggregation's review count and the
// average its mean rating; with zero reviews the tour reverts to a zero
// count and the default average. A tour deleted between the triggering
// mutation and this write is a no-op, not an error. On failure the tour
// keeps its previous (stale) aggregate and the error is returned for the
// caller to log; there is no retry here.
func (a *Aggregator) Recompute(ctx context.Context, tourID string) error {
	l := a.lockTour(tourID)
	defer a.unlockTour(tourID, l)

	summary, err := a.reviews.AggregateForTour(ctx, tourID)
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("aggregate ratings for tour %s: %w", tourID, err)
	}

	quantity := summary.Count
	average := summary.Average
	if summary.Count == 0 {
		average = domain.DefaultRatingsAverage
	}

	rows, err := a.tours.UpdateRatingStats(ctx, tourID, quantity, average)
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("store rating stats for tour %s: %w", tourID, err)
	}

	if rows == 0 {
		// Tour deleted after the review mutation; nothing to update.
		a.logger.DebugContext(ctx, "rating recompute skipped, tour gone",
			slog.String("tour_id", tourID),
		)
		metrics.RatingRecomputes.WithLabelValues(metrics.OutcomeIgnored).Inc()
		return nil
	}

	metrics.RatingRecomputes.WithLabelValues(metrics.OutcomeSuccess).Inc()

	// Publish event; log but do not fail on error.
	if err := a.producer.PublishTourRatingUpdated(ctx, tourID, quantity, average); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish tour.rating_updated event",
			slog.String("tour_id", tourID),
			slog.String("error", err.Error()),
		)
	}

	a.logger.InfoContext(ctx, "tour rating recomputed",
		slog.String("tour_id", tourID),
		slog.Int("ratings_quantity", quantity),
		slog.Float64("ratings_average", average),
	)

	return nil
}
