package domain

import "time"

// DefaultRatingsAverage is the rating shown for a tour with no reviews.
const DefaultRatingsAverage = 4.5

// Difficulty levels a tour can be published with.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Location is a geographic point attached to a tour.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description,omitempty"`
	Address     string  `json:"address,omitempty"`
}

// Tour represents a bookable tour.
type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"max_group_size"`
	Difficulty      string      `json:"difficulty"`
	Price           float64     `json:"price"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"image_cover"`
	RatingsAverage  float64     `json:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity"`
	StartLocation   Location    `json:"start_location"`
	StartDates      []time.Time `json:"start_dates,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TourDistance pairs a tour with its computed distance from a reference point.
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// TourStats is a per-difficulty aggregate over highly rated tours.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"num_tours"`
	NumRatings int     `json:"num_ratings"`
	AvgRating  float64 `json:"avg_rating"`
	AvgPrice   float64 `json:"avg_price"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}

// MonthlyPlanEntry summarizes the tour starts for one month of a year.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"num_tour_starts"`
	Tours         []string `json:"tours"`
}
