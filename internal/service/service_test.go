package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bibeklams/Movie-Booking-App/internal/model"
	"github.com/bibeklams/Movie-Booking-App/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ScreeningStore with the same contract as the
// Postgres repository: TryReserve checks and mutates the whole requested
// seat set under a single lock, so it either fully succeeds or leaves
// every seat untouched.
type memStore struct {
	mu          sync.Mutex
	screenings  map[string]*model.Screening
	lastReserve []string
}

func newMemStore() *memStore {
	return &memStore{screenings: make(map[string]*model.Screening)}
}

func (m *memStore) Create(_ context.Context, req model.CreateScreeningRequest) (*model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Screening{
		ID:          fmt.Sprintf("scr-%d", len(m.screenings)+1),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Seats:       model.NewSeatBlock(req.SeatCount),
	}
	if req.PosterRef != "" {
		ref := req.PosterRef
		s.PosterRef = &ref
	}
	m.screenings[s.ID] = s
	return s, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (m *memStore) List(_ context.Context) ([]model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Screening, 0, len(m.screenings))
	for _, s := range m.screenings {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) TryReserve(_ context.Context, screeningID string, seatNos []string) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReserve = append([]string(nil), seatNos...)

	s, ok := m.screenings[screeningID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	index := make(map[string]int, len(s.Seats))
	for i, seat := range s.Seats {
		index[seat.SeatNo] = i
	}
	// Validate the whole set before touching anything.
	for _, seatNo := range seatNos {
		i, ok := index[seatNo]
		if !ok || s.Seats[i].Booked {
			return nil, repository.ErrSeatUnavailable
		}
	}
	for _, seatNo := range seatNos {
		s.Seats[index[seatNo]].Booked = true
	}
	return append([]model.Seat(nil), s.Seats...), nil
}

func (m *memStore) BookedScreenings(_ context.Context) ([]model.BookedScreening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookedScreening
	for _, s := range m.screenings {
		var bookedNos []string
		for _, seat := range s.Seats {
			if seat.Booked {
				bookedNos = append(bookedNos, seat.SeatNo)
			}
		}
		if len(bookedNos) == 0 {
			continue
		}
		out = append(out, model.BookedScreening{
			ScreeningID:   s.ID,
			Title:         s.Title,
			PosterRef:     s.PosterRef,
			Price:         s.Price,
			BookedSeatNos: bookedNos,
		})
	}
	return out, nil
}

func (m *memStore) seat(t *testing.T, screeningID, seatNo string) model.Seat {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[screeningID]
	require.True(t, ok, "screening %s must exist", screeningID)
	for _, seat := range s.Seats {
		if seat.SeatNo == seatNo {
			return seat
		}
	}
	t.Fatalf("seat %s not found on screening %s", seatNo, screeningID)
	return model.Seat{}
}

func newScreening(t *testing.T, store *memStore, seatCount int) *model.Screening {
	t.Helper()
	s, err := store.Create(context.Background(), model.CreateScreeningRequest{
		Title:     "Interstellar",
		Price:     9.50,
		SeatCount: seatCount,
	})
	require.NoError(t, err)
	return s
}

func TestReserve_RejectsEmptyRequest(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 3)

	for _, seatNos := range [][]string{nil, {}, {""}, {"  ", ""}} {
		_, err := svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: seatNos})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	// Validation failures never reach the store.
	assert.Nil(t, store.lastReserve)
}

func TestReserve_RequiresScreeningID(t *testing.T) {
	svc := NewBookingService(newMemStore())
	_, err := svc.Reserve(context.Background(), "", model.ReserveRequest{SeatNos: []string{"S1"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestReserve_DeduplicatesSeatNumbers(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 3)

	seats, err := svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{"S1", " S1 ", "S1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"S1"}, store.lastReserve, "duplicates must collapse before hitting the store")
	booked := 0
	for _, seat := range seats {
		if seat.Booked {
			booked++
		}
	}
	assert.Equal(t, 1, booked)
}

func TestReserve_UnknownScreening(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	newScreening(t, store, 2)

	_, err := svc.Reserve(context.Background(), "nonexistent-id", model.ReserveRequest{SeatNos: []string{"S1"}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReserve_AllOrNothing(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 3)

	_, err := svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{"S1"}})
	require.NoError(t, err)

	// S1 is taken: the whole ["S1","S2"] request must fail and S2 must
	// keep its pre-call state.
	_, err = svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{"S1", "S2"}})
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
	assert.False(t, store.seat(t, s.ID, "S2").Booked, "S2 must remain unbooked after a failed request")
}

func TestReserve_NonexistentSeatLabel(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 2)

	_, err := svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{"S1", "S99"}})
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
	assert.False(t, store.seat(t, s.ID, "S1").Booked, "a request naming a missing seat must not book anything")
}

func TestReserve_NoDoubleBooking(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 1)

	const attempts = 32
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{"S1"}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent request may win the seat")
	assert.Equal(t, attempts-1, conflicts)
	assert.True(t, store.seat(t, s.ID, "S1").Booked)
}

func TestReserve_DisjointSeatsBothSucceed(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	s := newScreening(t, store, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, seatNo := range []string{"S1", "S2"} {
		wg.Add(1)
		go func(i int, seatNo string) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), s.ID, model.ReserveRequest{SeatNos: []string{seatNo}})
		}(i, seatNo)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.True(t, store.seat(t, s.ID, "S1").Booked)
	assert.True(t, store.seat(t, s.ID, "S2").Booked)
}

func TestBookingHistory(t *testing.T) {
	store := newMemStore()
	svc := NewBookingService(store)
	booked := newScreening(t, store, 5)
	untouched := newScreening(t, store, 5)

	_, err := svc.Reserve(context.Background(), booked.ID, model.ReserveRequest{SeatNos: []string{"S1", "S3"}})
	require.NoError(t, err)

	history, err := svc.BookingHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1, "screenings with zero booked seats must not appear")

	assert.Equal(t, booked.ID, history[0].ScreeningID)
	assert.Equal(t, []string{"S1", "S3"}, history[0].BookedSeatNos)
	assert.NotEqual(t, untouched.ID, history[0].ScreeningID)
}

func TestCreateScreening_Validation(t *testing.T) {
	svc := NewBookingService(newMemStore())
	ctx := context.Background()

	cases := []model.CreateScreeningRequest{
		{Title: "", SeatCount: 5},
		{Title: "   ", SeatCount: 5},
		{Title: "Dune", SeatCount: 0},
		{Title: "Dune", SeatCount: -3},
		{Title: "Dune", SeatCount: 10_001},
		{Title: "Dune", SeatCount: 5, Price: -1},
	}
	for _, req := range cases {
		_, err := svc.CreateScreening(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "request %+v must be rejected", req)
	}

	s, err := svc.CreateScreening(ctx, model.CreateScreeningRequest{Title: "Dune", SeatCount: 3, Price: 12})
	require.NoError(t, err)
	require.Len(t, s.Seats, 3)
	assert.Equal(t, "S1", s.Seats[0].SeatNo)
	assert.Equal(t, "S3", s.Seats[2].SeatNo)
	assert.Equal(t, 3, s.Available())
}

func TestGetScreening_RequiresID(t *testing.T) {
	svc := NewBookingService(newMemStore())
	_, err := svc.GetScreening(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
