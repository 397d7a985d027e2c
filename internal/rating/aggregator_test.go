package rating

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/event"
	pkgkafka "github.com/Flare200/natours/pkg/kafka"
)

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByTourID(ctx context.Context, tourID string, limit, offset int) ([]domain.Review, int, error) {
	args := m.Called(ctx, tourID, limit, offset)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) AggregateForTour(ctx context.Context, tourID string) (*domain.RatingSummary, error) {
	args := m.Called(ctx, tourID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingSummary), args.Error(1)
}

// --- Mock Tour Repository ---

type mockTourRepository struct {
	mock.Mock
}

func (m *mockTourRepository) Create(ctx context.Context, tour *domain.Tour) error {
	args := m.Called(ctx, tour)
	return args.Error(0)
}

func (m *mockTourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tour), args.Error(1)
}

func (m *mockTourRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tour), args.Error(1)
}

func (m *mockTourRepository) ListWithLocations(ctx context.Context) ([]domain.Tour, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Tour), args.Error(1)
}

func (m *mockTourRepository) TopTours(ctx context.Context, limit int) ([]domain.Tour, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Tour), args.Error(1)
}

func (m *mockTourRepository) Stats(ctx context.Context, minRating float64) ([]domain.TourStats, error) {
	args := m.Called(ctx, minRating)
	return args.Get(0).([]domain.TourStats), args.Error(1)
}

func (m *mockTourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	args := m.Called(ctx, year)
	return args.Get(0).([]domain.MonthlyPlanEntry), args.Error(1)
}

func (m *mockTourRepository) UpdateRatingStats(ctx context.Context, tourID string, quantity int, average float64) (int64, error) {
	args := m.Called(ctx, tourID, quantity, average)
	return args.Get(0).(int64), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestAggregator(reviews *mockReviewRepository, tours *mockTourRepository) *Aggregator {
	return NewAggregator(reviews, tours, newTestEventProducer(), newTestLogger())
}

// --- Tests ---

func TestAggregator_Recompute_FirstReview(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	reviews.On("AggregateForTour", mock.Anything, "tour-1").
		Return(&domain.RatingSummary{Count: 1, Average: 5.0}, nil)
	tours.On("UpdateRatingStats", mock.Anything, "tour-1", 1, 5.0).
		Return(int64(1), nil)

	err := agg.Recompute(context.Background(), "tour-1")
	require.NoError(t, err)
	reviews.AssertExpectations(t)
	tours.AssertExpectations(t)
}

func TestAggregator_Recompute_QuantityAlwaysFromCount(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	// The quantity written must be the review count and the average the mean.
	// Crossing the two fields was a real defect once; this pins the mapping.
	reviews.On("AggregateForTour", mock.Anything, "tour-1").
		Return(&domain.RatingSummary{Count: 3, Average: 4.3}, nil)
	tours.On("UpdateRatingStats", mock.Anything, "tour-1", 3, 4.3).
		Return(int64(1), nil)

	err := agg.Recompute(context.Background(), "tour-1")
	require.NoError(t, err)
	tours.AssertExpectations(t)
}

func TestAggregator_Recompute_LastReviewDeleted(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	// Zero reviews resets the tour to a zero count and the default average.
	reviews.On("AggregateForTour", mock.Anything, "tour-1").
		Return(&domain.RatingSummary{Count: 0, Average: 0}, nil)
	tours.On("UpdateRatingStats", mock.Anything, "tour-1", 0, domain.DefaultRatingsAverage).
		Return(int64(1), nil)

	err := agg.Recompute(context.Background(), "tour-1")
	require.NoError(t, err)
	tours.AssertExpectations(t)
}

func TestAggregator_Recompute_TourDeleted(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	reviews.On("AggregateForTour", mock.Anything, "gone-tour").
		Return(&domain.RatingSummary{Count: 2, Average: 4.0}, nil)
	tours.On("UpdateRatingStats", mock.Anything, "gone-tour", 2, 4.0).
		Return(int64(0), nil)

	err := agg.Recompute(context.Background(), "gone-tour")
	assert.NoError(t, err)
	tours.AssertExpectations(t)
}

func TestAggregator_Recompute_AggregationFails(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	reviews.On("AggregateForTour", mock.Anything, "tour-1").
		Return(nil, errors.New("connection reset"))

	err := agg.Recompute(context.Background(), "tour-1")
	require.Error(t, err)

	// The stale aggregate stays; no write is attempted.
	tours.AssertNotCalled(t, "UpdateRatingStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregator_Recompute_StoreFails(t *testing.T) {
	reviews := new(mockReviewRepository)
	tours := new(mockTourRepository)
	agg := newTestAggregator(reviews, tours)

	reviews.On("AggregateForTour", mock.Anything, "tour-1").
		Return(&domain.RatingSummary{Count: 5, Average: 4.2}, nil)
	tours.On("UpdateRatingStats", mock.Anything, "tour-1", 5, 4.2).
		Return(int64(0), errors.New("write failed"))

	err := agg.Recompute(context.Background(), "tour-1")
	require.Error(t, err)
}

// --- Concurrency stubs ---

type serializingReviewRepo struct {
	mockReviewRepository
	active  atomic.Int32
	overlap atomic.Bool
}

func (s *serializingReviewRepo) AggregateForTour(ctx context.Context, tourID string) (*domain.RatingSummary, error) {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	s.active.Add(-1)
	return &domain.RatingSummary{Count: 1, Average: 4.0}, nil
}

type countingTourRepo struct {
	mockTourRepository
	updates atomic.Int32
}

func (c *countingTourRepo) UpdateRatingStats(ctx context.Context, tourID string, quantity int, average float64) (int64, error) {
	c.updates.Add(1)
	return 1, nil
}

func TestAggregator_Recompute_SerializesPerTour(t *testing.T) {
	reviews := &serializingReviewRepo{}
	tours := &countingTourRepo{}
	agg := NewAggregator(reviews, tours, newTestEventProducer(), newTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.Recompute(context.Background(), "tour-1")
		}()
	}
	wg.Wait()

	assert.False(t, reviews.overlap.Load(), "recomputes for the same tour must not overlap")
	assert.Equal(t, int32(8), tours.updates.Load())
}
