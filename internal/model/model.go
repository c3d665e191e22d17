// Package model defines the core domain types for the movie booking system.
package model

import (
	"fmt"
	"time"
)

// Screening represents a bookable movie showing with a fixed seat inventory.
type Screening struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PosterRef   *string   `json:"poster_ref,omitempty"`
	Price       float64   `json:"price"`
	Seats       []Seat    `json:"seats"`
	CreatedAt   time.Time `json:"created_at"`
}

// Available returns the number of unbooked seats.
func (s *Screening) Available() int {
	n := 0
	for _, seat := range s.Seats {
		if !seat.Booked {
			n++
		}
	}
	return n
}

// IsFullyBooked returns true when no seats remain.
func (s *Screening) IsFullyBooked() bool {
	return s.Available() == 0
}

// Seat is one unit of inventory within a screening, identified by a label
// unique to that screening. Booked only ever transitions false -> true.
type Seat struct {
	SeatNo string `json:"seat_no"`
	Booked bool   `json:"booked"`
}

// NewSeatBlock builds the initial inventory for a screening of the given
// size: seats labelled "S1".."S{count}", all unbooked, in display order.
func NewSeatBlock(count int) []Seat {
	seats := make([]Seat, count)
	for i := range seats {
		seats[i] = Seat{SeatNo: fmt.Sprintf("S%d", i+1)}
	}
	return seats
}

// CreateScreeningRequest is the payload for creating a new screening.
type CreateScreeningRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	PosterRef   string  `json:"poster_ref"`
	Price       float64 `json:"price"`
	SeatCount   int     `json:"seat_count"`
}

// ReserveRequest is the payload for reserving seats on a screening.
type ReserveRequest struct {
	SeatNos []string `json:"seat_nos"`
}

// ReserveResponse reports the screening's full seat state after a
// successful reservation.
type ReserveResponse struct {
	ScreeningID string `json:"screening_id"`
	Seats       []Seat `json:"seats"`
}

// BookedScreening is one entry in the booking-history view: a screening
// with at least one booked seat plus the labels of its booked seats in
// display order. Screenings with no booked seats never appear.
type BookedScreening struct {
	ScreeningID   string   `json:"screening_id"`
	Title         string   `json:"title"`
	PosterRef     *string  `json:"poster_ref,omitempty"`
	Price         float64  `json:"price"`
	BookedSeatNos []string `json:"booked_seat_nos"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
