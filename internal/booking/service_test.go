package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Flare200/natours/pkg/errors"
	pkgkafka "github.com/Flare200/natours/pkg/kafka"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/event"
	"github.com/Flare200/natours/internal/gateway"
)

// --- Mock Booking Repository ---

type mockBookingRepository struct {
	mock.Mock
}

func (m *mockBookingRepository) CreateIdempotent(ctx context.Context, booking *domain.Booking) (*domain.Booking, bool, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *mockBookingRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockBookingRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
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

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock Gateway Client ---

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) CreateCheckoutSession(ctx context.Context, params *gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

// --- Test Helpers ---

const testWebhookSecret = "whsec_test_secret"

var frozenNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestService(bookings *mockBookingRepository, tours *mockTourRepository, users *mockUserRepository, gw *mockGatewayClient) *Service {
	svc := NewService(bookings, tours, users, gw, newTestEventProducer(), newTestLogger(), Config{
		WebhookSecret: testWebhookSecret,
		FrontendURL:   "https://natours.example.com",
	})
	svc.now = func() time.Time { return frozenNow }
	return svc
}

func sampleTour() *domain.Tour {
	return &domain.Tour{
		ID:         "tour-1",
		Name:       "The Forest Hiker",
		Slug:       "the-forest-hiker",
		Price:      397,
		Summary:    "Breathtaking hike",
		ImageCover: "tour-1-cover.jpg",
	}
}

func completedEventPayload(sessionID, tourID, email string, unitAmount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"client_reference_id": %q,
			"customer_email": %q,
			"line_items": [{"price_data": {"unit_amount": %d, "currency": "usd"}, "quantity": 1}],
			"payment_status": "paid"
		}}
	}`, sessionID, tourID, email, unitAmount))
}

func sign(payload []byte) string {
	return gateway.SignPayload(payload, testWebhookSecret, frozenNow)
}

// --- Tests ---

func TestService_CreateCheckoutSession(t *testing.T) {
	t.Run("builds the session from the tour", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		tours.On("GetByID", mock.Anything, "tour-1").Return(sampleTour(), nil)
		gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p *gateway.CheckoutSessionParams) bool {
			return p.Mode == gateway.ModePayment &&
				p.ClientReferenceID == "tour-1" &&
				p.CustomerEmail == "loulou@example.com" &&
				len(p.LineItems) == 1 &&
				p.LineItems[0].UnitAmount == 39700 &&
				p.LineItems[0].Quantity == 1 &&
				p.LineItems[0].Name == "The Forest Hiker Tour" &&
				p.CancelURL == "https://natours.example.com/tour/the-forest-hiker"
		})).Return(&gateway.CheckoutSession{ID: "cs_test_a1b2c3", URL: "https://gw/pay"}, nil)

		session, err := svc.CreateCheckoutSession(context.Background(), "tour-1", "loulou@example.com")
		require.NoError(t, err)
		assert.Equal(t, "cs_test_a1b2c3", session.ID)

		// No booking row is written at session creation time.
		bookings.AssertNotCalled(t, "CreateIdempotent", mock.Anything, mock.Anything)
	})

	t.Run("fractional price rounds to whole cents", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		tour := sampleTour()
		tour.Price = 19.99
		tours.On("GetByID", mock.Anything, "tour-1").Return(tour, nil)
		gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p *gateway.CheckoutSessionParams) bool {
			return p.LineItems[0].UnitAmount == 1999
		})).Return(&gateway.CheckoutSession{ID: "cs_x"}, nil)

		_, err := svc.CreateCheckoutSession(context.Background(), "tour-1", "loulou@example.com")
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("tour not found", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		tours.On("GetByID", mock.Anything, "missing").
			Return(nil, apperrors.NotFound("tour", "missing"))

		_, err := svc.CreateCheckoutSession(context.Background(), "missing", "loulou@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		_, err := svc.CreateCheckoutSession(context.Background(), "tour-1", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestService_HandleWebhookEvent(t *testing.T) {
	t.Run("completed checkout creates exactly one paid booking", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_a1b2c3", "tour-1", "loulou@example.com", 39700)

		users.On("GetByEmail", mock.Anything, "loulou@example.com").
			Return(&domain.User{ID: "user-1", Email: "loulou@example.com"}, nil)
		bookings.On("CreateIdempotent", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
			return b.TourID == "tour-1" &&
				b.UserID == "user-1" &&
				b.SessionID == "cs_test_a1b2c3" &&
				b.Price == 397.0 &&
				b.Paid
		})).Return(&domain.Booking{ID: "booking-1", SessionID: "cs_test_a1b2c3", Paid: true}, true, nil)

		booking, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, "booking-1", booking.ID)
		bookings.AssertExpectations(t)
	})

	t.Run("price comes from the line item unit amount", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_d4e5f6", "tour-1", "loulou@example.com", 5000)

		users.On("GetByEmail", mock.Anything, "loulou@example.com").
			Return(&domain.User{ID: "user-1", Email: "loulou@example.com"}, nil)
		bookings.On("CreateIdempotent", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
			return b.Price == 50.0
		})).Return(&domain.Booking{ID: "booking-2", Price: 50.0, Paid: true}, true, nil)

		booking, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.NoError(t, err)
		assert.Equal(t, 50.0, booking.Price)
		bookings.AssertExpectations(t)
	})

	t.Run("amount_total is the fallback when line items are absent", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := []byte(`{
			"id": "evt_3",
			"type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_test_g7h8i9",
				"client_reference_id": "tour-1",
				"customer_email": "loulou@example.com",
				"amount_total": 39700,
				"payment_status": "paid"
			}}
		}`)

		users.On("GetByEmail", mock.Anything, "loulou@example.com").
			Return(&domain.User{ID: "user-1"}, nil)
		bookings.On("CreateIdempotent", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
			return b.Price == 397.0
		})).Return(&domain.Booking{ID: "booking-3", Price: 397.0, Paid: true}, true, nil)

		_, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.NoError(t, err)
		bookings.AssertExpectations(t)
	})

	t.Run("invalid signature processes nothing", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_a1b2c3", "tour-1", "loulou@example.com", 39700)
		badSig := gateway.SignPayload(payload, "whsec_wrong", frozenNow)

		_, err := svc.HandleWebhookEvent(context.Background(), payload, badSig)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
		users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
		bookings.AssertNotCalled(t, "CreateIdempotent", mock.Anything, mock.Anything)
	})

	t.Run("other event types acknowledged without effect", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := []byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{}}}`)

		booking, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.NoError(t, err)
		assert.Nil(t, booking)
		bookings.AssertNotCalled(t, "CreateIdempotent", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer email fails so the gateway retries", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_a1b2c3", "tour-1", "nobody@example.com", 39700)
		users.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, apperrors.NotFound("user", "nobody@example.com"))

		_, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		bookings.AssertNotCalled(t, "CreateIdempotent", mock.Anything, mock.Anything)
	})

	t.Run("duplicate delivery returns the original booking", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_a1b2c3", "tour-1", "loulou@example.com", 39700)

		users.On("GetByEmail", mock.Anything, "loulou@example.com").
			Return(&domain.User{ID: "user-1"}, nil)
		original := &domain.Booking{ID: "booking-original", SessionID: "cs_test_a1b2c3", Paid: true}
		bookings.On("CreateIdempotent", mock.Anything, mock.AnythingOfType("*domain.Booking")).
			Return(original, false, nil)

		booking, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.NoError(t, err)
		assert.Equal(t, "booking-original", booking.ID)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		bookings := new(mockBookingRepository)
		tours := new(mockTourRepository)
		users := new(mockUserRepository)
		gw := new(mockGatewayClient)
		svc := newTestService(bookings, tours, users, gw)

		payload := completedEventPayload("cs_test_a1b2c3", "tour-1", "loulou@example.com", 39700)

		users.On("GetByEmail", mock.Anything, "loulou@example.com").
			Return(&domain.User{ID: "user-1"}, nil)
		bookings.On("CreateIdempotent", mock.Anything, mock.AnythingOfType("*domain.Booking")).
			Return(nil, false, errors.New("connection reset"))

		_, err := svc.HandleWebhookEvent(context.Background(), payload, sign(payload))
		require.Error(t, err)
	})
}

func TestService_ListForUser(t *testing.T) {
	bookings := new(mockBookingRepository)
	tours := new(mockTourRepository)
	users := new(mockUserRepository)
	gw := new(mockGatewayClient)
	svc := newTestService(bookings, tours, users, gw)

	bookings.On("ListByUserID", mock.Anything, "user-1").
		Return([]domain.Booking{{ID: "booking-1", UserID: "user-1"}}, nil)

	result, err := svc.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
}
