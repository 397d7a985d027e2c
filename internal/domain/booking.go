package domain

import "time"

// Booking records a paid reservation of a tour by a user.
// SessionID is the payment gateway's checkout session identifier; it carries
// a unique constraint so a redelivered webhook can never create a second row.
type Booking struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Price     float64   `json:"price"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}
