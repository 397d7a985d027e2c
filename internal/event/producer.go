package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Flare200/natours/internal/domain"
	pkgkafka "github.com/Flare200/natours/pkg/kafka"
)

// Kafka topic constants for platform domain events.
const (
	TopicBookingCreated    = "natours.booking.created"
	TopicTourRatingUpdated = "natours.tour.rating_updated"
)

// Aggregate type constants.
const (
	AggregateTypeBooking = "booking"
	AggregateTypeTour    = "tour"
)

// Source identifier for events originating from this service.
const SourceAPIService = "natours-api"

// BookingCreatedData is the payload for a booking.created event.
type BookingCreatedData struct {
	ID        string  `json:"id"`
	TourID    string  `json:"tour_id"`
	UserID    string  `json:"user_id"`
	SessionID string  `json:"session_id"`
	Price     float64 `json:"price"`
}

// TourRatingUpdatedData is the payload for a tour.rating_updated event.
type TourRatingUpdatedData struct {
	TourID          string  `json:"tour_id"`
	RatingsQuantity int     `json:"ratings_quantity"`
	RatingsAverage  float64 `json:"ratings_average"`
}

// Producer publishes platform domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishBookingCreated publishes a booking.created event.
func (p *Producer) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	data := BookingCreatedData{
		ID:        booking.ID,
		TourID:    booking.TourID,
		UserID:    booking.UserID,
		SessionID: booking.SessionID,
		Price:     booking.Price,
	}

	event, err := pkgkafka.NewEvent(TopicBookingCreated, booking.ID, AggregateTypeBooking, SourceAPIService, data)
	if err != nil {
		return fmt.Errorf("create booking.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicBookingCreated, event); err != nil {
		return fmt.Errorf("publish booking.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published booking.created event",
		slog.String("booking_id", booking.ID),
		slog.String("tour_id", booking.TourID),
	)

	return nil
}

// PublishTourRatingUpdated publishes a tour.rating_updated event.
func (p *Producer) PublishTourRatingUpdated(ctx context.Context, tourID string, quantity int, average float64) error {
	data := TourRatingUpdatedData{
		TourID:          tourID,
		RatingsQuantity: quantity,
		RatingsAverage:  average,
	}

	event, err := pkgkafka.NewEvent(TopicTourRatingUpdated, tourID, AggregateTypeTour, SourceAPIService, data)
	if err != nil {
		return fmt.Errorf("create tour.rating_updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicTourRatingUpdated, event); err != nil {
		return fmt.Errorf("publish tour.rating_updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published tour.rating_updated event",
		slog.String("tour_id", tourID),
		slog.Int("ratings_quantity", quantity),
	)

	return nil
}
