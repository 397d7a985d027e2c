package domain

import "time"

// Review is a user's rating and write-up for a tour.
type Review struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSummary is the aggregation of all reviews for a single tour.
type RatingSummary struct {
	Count   int
	Average float64
}
