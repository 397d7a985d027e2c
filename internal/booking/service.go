package booking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Flare200/natours/pkg/errors"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/internal/event"
	"github.com/Flare200/natours/internal/gateway"
	"github.com/Flare200/natours/internal/metrics"
	"github.com/Flare200/natours/internal/repository"
)

// Config holds the booking service's gateway-facing settings.
type Config struct {
	// WebhookSecret is the shared secret the gateway signs deliveries with.
	WebhookSecret string

	// FrontendURL is the site base used for success and cancel redirects.
	FrontendURL string

	// Currency for checkout line items, lowercase ISO code.
	Currency string

	// SignatureTolerance bounds webhook timestamp age. Zero uses the default.
	SignatureTolerance time.Duration
}

// Service implements the business logic for bookings and payment webhooks.
type Service struct {
	bookings repository.BookingRepository
	tours    repository.TourRepository
	users    repository.UserRepository
	gateway  gateway.Client
	producer *event.Producer
	logger   *slog.Logger
	cfg      Config

	now func() time.Time
}

// NewService creates a new booking service.
func NewService(
	bookings repository.BookingRepository,
	tours repository.TourRepository,
	users repository.UserRepository,
	gw gateway.Client,
	producer *event.Producer,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.SignatureTolerance == 0 {
		cfg.SignatureTolerance = gateway.DefaultSignatureTolerance
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		bookings: bookings,
		tours:    tours,
		users:    users,
		gateway:  gw,
		producer: producer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateCheckoutSession creates a hosted payment session for a tour. The
// session carries the tour ID as the client reference and the buyer's email,
// which is everything the webhook needs to materialize the booking later.
// No booking row is written here.
func (s *Service) CreateCheckoutSession(ctx context.Context, tourID, customerEmail string) (*gateway.CheckoutSession, error) {
	if customerEmail == "" {
		return nil, apperrors.InvalidInput("customer email is required")
	}

	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("get tour for checkout: %w", err)
	}

	params := &gateway.CheckoutSessionParams{
		Mode:              gateway.ModePayment,
		SuccessURL:        s.cfg.FrontendURL + "/",
		CancelURL:         s.cfg.FrontendURL + "/tour/" + tour.Slug,
		CustomerEmail:     customerEmail,
		ClientReferenceID: tour.ID,
		LineItems: []gateway.LineItem{{
			Name:        tour.Name + " Tour",
			Description: tour.Summary,
			Images:      []string{tour.ImageCover},
			UnitAmount:  int64(math.Round(tour.Price * 100)),
			Currency:    s.cfg.Currency,
			Quantity:    1,
		}},
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	metrics.CheckoutSessions.WithLabelValues(metrics.OutcomeSuccess).Inc()

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("session_id", session.ID),
		slog.String("tour_id", tour.ID),
		slog.String("customer_email", customerEmail),
	)

	return session, nil
}

// HandleWebhookEvent verifies and processes a gateway webhook delivery.
//
// The signature is checked before anything else; a bad signature returns the
// signature-invalid error and nothing is processed. Event types other than
// checkout.session.completed are acknowledged without effect. A completed
// checkout becomes exactly one paid booking: redeliveries hit the session-ID
// unique constraint and get the original booking back.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) (*domain.Booking, error) {
	if err := gateway.VerifySignature(payload, signatureHeader, s.cfg.WebhookSecret, s.cfg.SignatureTolerance, s.now()); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
		s.logger.WarnContext(ctx, "webhook signature verification failed",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	wevent, err := gateway.ParseEvent(payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
		return nil, err
	}

	if wevent.Type != gateway.EventCheckoutCompleted {
		metrics.WebhookEvents.WithLabelValues(wevent.Type, metrics.OutcomeIgnored).Inc()
		s.logger.DebugContext(ctx, "ignoring webhook event",
			slog.String("event_id", wevent.ID),
			slog.String("event_type", wevent.Type),
		)
		return nil, nil
	}

	session := wevent.Data.Object

	user, err := s.users.GetByEmail(ctx, session.CustomerEmail)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(wevent.Type, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("resolve webhook user %q: %w", session.CustomerEmail, err)
	}

	booking := &domain.Booking{
		ID:        uuid.New().String(),
		TourID:    session.ClientReferenceID,
		UserID:    user.ID,
		SessionID: session.ID,
		Price:     float64(session.UnitAmount()) / 100,
		Paid:      true,
		CreatedAt: s.now().UTC(),
	}

	stored, created, err := s.bookings.CreateIdempotent(ctx, booking)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(wevent.Type, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if !created {
		metrics.WebhookEvents.WithLabelValues(wevent.Type, metrics.OutcomeDuplicate).Inc()
		s.logger.InfoContext(ctx, "duplicate webhook delivery, booking already exists",
			slog.String("session_id", session.ID),
			slog.String("booking_id", stored.ID),
		)
		return stored, nil
	}

	metrics.WebhookEvents.WithLabelValues(wevent.Type, metrics.OutcomeSuccess).Inc()

	// Publish event; log but do not fail on error.
	if err := s.producer.PublishBookingCreated(ctx, stored); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish booking.created event",
			slog.String("booking_id", stored.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "booking created from webhook",
		slog.String("booking_id", stored.ID),
		slog.String("tour_id", stored.TourID),
		slog.String("user_id", stored.UserID),
		slog.Float64("price", stored.Price),
	)

	return stored, nil
}

// ListForUser returns the bookings of one user.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
