package postgres

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Flare200/natours/internal/domain"
	"github.com/Flare200/natours/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var tourColumnNames = []string{
	"id", "name", "slug", "duration", "max_group_size", "difficulty", "price",
	"summary", "description", "image_cover", "ratings_average", "ratings_quantity",
	"start_lat", "start_lng", "start_description", "start_address",
	"created_at", "updated_at",
}

func sampleTour() domain.Tour {
	return domain.Tour{
		ID:              "tour-1",
		Name:            "The Forest Hiker",
		Slug:            "the-forest-hiker",
		Duration:        5,
		MaxGroupSize:    25,
		Difficulty:      domain.DifficultyEasy,
		Price:           397,
		Summary:         "Breathtaking hike through the Canadian Banff National Park",
		Description:     "A longer description",
		ImageCover:      "tour-1-cover.jpg",
		RatingsAverage:  4.7,
		RatingsQuantity: 37,
		StartLocation: domain.Location{
			Latitude:    34.111745,
			Longitude:   -118.113491,
			Description: "Miami, USA",
			Address:     "301 Biscayne Blvd",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func tourRow(t domain.Tour) []any {
	return []any{
		t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty, t.Price,
		t.Summary, t.Description, t.ImageCover, t.RatingsAverage, t.RatingsQuantity,
		t.StartLocation.Latitude, t.StartLocation.Longitude,
		t.StartLocation.Description, t.StartLocation.Address,
		t.CreatedAt, t.UpdatedAt,
	}
}

var reviewColumnNames = []string{
	"id", "tour_id", "user_id", "rating", "review", "created_at", "updated_at",
}

var reviewColumnsWithCount = []string{
	"id", "tour_id", "user_id", "rating", "review", "created_at", "updated_at",
	"total_count",
}

func sampleReview() domain.Review {
	return domain.Review{
		ID:        "review-1",
		TourID:    "tour-1",
		UserID:    "user-1",
		Rating:    5,
		Review:    "Amazing experience, would go again.",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func reviewRow(r domain.Review) []any {
	return []any{
		r.ID, r.TourID, r.UserID, r.Rating, r.Review, r.CreatedAt, r.UpdatedAt,
	}
}

var bookingColumnNames = []string{
	"id", "tour_id", "user_id", "session_id", "price", "paid", "created_at",
}

func sampleBooking() domain.Booking {
	return domain.Booking{
		ID:        "booking-1",
		TourID:    "tour-1",
		UserID:    "user-1",
		SessionID: "cs_test_a1b2c3",
		Price:     397,
		Paid:      true,
		CreatedAt: now,
	}
}

func bookingRow(b domain.Booking) []any {
	return []any{
		b.ID, b.TourID, b.UserID, b.SessionID, b.Price, b.Paid, b.CreatedAt,
	}
}

var userColumnNames = []string{
	"id", "name", "email", "role", "photo", "active", "created_at",
}

func sampleUser() domain.User {
	return domain.User{
		ID:        "user-1",
		Name:      "Lourdes Browning",
		Email:     "loulou@example.com",
		Role:      domain.RoleUser,
		Photo:     "user-1.jpg",
		Active:    true,
		CreatedAt: now,
	}
}

func userRow(u domain.User) []any {
	return []any{u.ID, u.Name, u.Email, u.Role, u.Photo, u.Active, u.CreatedAt}
}
