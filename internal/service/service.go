// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bibeklams/Movie-Booking-App/internal/model"
	"github.com/bibeklams/Movie-Booking-App/internal/repository"
)

// ErrInvalidRequest is returned when caller input is rejected before the
// store is touched. Always recoverable by correcting the request.
var ErrInvalidRequest = errors.New("invalid request")

// ScreeningStore is the persistence boundary the booking service depends
// on. The store is the single shared mutable resource: TryReserve must be
// atomic across the whole requested seat set, because multiple service
// instances may run in parallel with no shared memory.
type ScreeningStore interface {
	Create(ctx context.Context, req model.CreateScreeningRequest) (*model.Screening, error)
	GetByID(ctx context.Context, id string) (*model.Screening, error)
	List(ctx context.Context) ([]model.Screening, error)
	TryReserve(ctx context.Context, screeningID string, seatNos []string) ([]model.Seat, error)
	BookedScreenings(ctx context.Context) ([]model.BookedScreening, error)
}

// BookingService orchestrates screening and reservation operations.
type BookingService struct {
	store ScreeningStore
}

// NewBookingService constructs a BookingService around the given store.
func NewBookingService(store ScreeningStore) *BookingService {
	return &BookingService{store: store}
}

// CreateScreening validates the request and delegates to the store.
func (s *BookingService) CreateScreening(ctx context.Context, req model.CreateScreeningRequest) (*model.Screening, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if req.SeatCount <= 0 {
		return nil, fmt.Errorf("%w: seat_count must be a positive integer", ErrInvalidRequest)
	}
	if req.SeatCount > 10_000 {
		return nil, fmt.Errorf("%w: seat_count cannot exceed 10,000", ErrInvalidRequest)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidRequest)
	}
	return s.store.Create(ctx, req)
}

// ListScreenings returns all screenings.
func (s *BookingService) ListScreenings(ctx context.Context) ([]model.Screening, error) {
	return s.store.List(ctx)
}

// GetScreening returns a single screening by ID.
func (s *BookingService) GetScreening(ctx context.Context, id string) (*model.Screening, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: screening id is required", ErrInvalidRequest)
	}
	screening, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get screening: %w", err)
	}
	return screening, nil
}

// Reserve books a set of seats on a screening, all-or-nothing.
//
// Duplicate seat numbers within one request are collapsed before
// evaluation, so reserving ["S1","S1"] behaves exactly like ["S1"].
// ErrSeatUnavailable from the store is a legitimate business outcome
// (someone else got there first) and is surfaced unchanged, never retried.
func (s *BookingService) Reserve(ctx context.Context, screeningID string, req model.ReserveRequest) ([]model.Seat, error) {
	if screeningID == "" {
		return nil, fmt.Errorf("%w: screening id is required", ErrInvalidRequest)
	}

	seatNos := dedupSeatNos(req.SeatNos)
	if len(seatNos) == 0 {
		return nil, fmt.Errorf("%w: at least one seat number is required", ErrInvalidRequest)
	}

	seats, err := s.store.TryReserve(ctx, screeningID, seatNos)
	if err != nil {
		// Surface domain errors directly so handlers can set correct HTTP status.
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrSeatUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve seats: %w", err)
	}
	return seats, nil
}

// BookingHistory returns the booked-screenings view. It is a pure read of
// current store state, recomputed on every call.
func (s *BookingService) BookingHistory(ctx context.Context) ([]model.BookedScreening, error) {
	return s.store.BookedScreenings(ctx)
}

// dedupSeatNos trims and deduplicates seat labels, preserving first-seen
// order and dropping empties.
func dedupSeatNos(seatNos []string) []string {
	seen := make(map[string]struct{}, len(seatNos))
	out := make([]string, 0, len(seatNos))
	for _, seatNo := range seatNos {
		seatNo = strings.TrimSpace(seatNo)
		if seatNo == "" {
			continue
		}
		if _, ok := seen[seatNo]; ok {
			continue
		}
		seen[seatNo] = struct{}{}
		out = append(out, seatNo)
	}
	return out
}
