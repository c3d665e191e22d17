// Package repository implements all database queries for the movie booking system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bibeklams/Movie-Booking-App/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested screening does not exist.
var ErrNotFound = errors.New("screening not found")

// ErrSeatUnavailable is returned when any requested seat is already booked
// or does not exist on the screening. The reservation is rejected as a
// whole; no seat state changes.
var ErrSeatUnavailable = errors.New("one or more seats are unavailable")

// ScreeningRepository handles persistence for screenings and their seats.
type ScreeningRepository struct {
	db *pgxpool.Pool
}

// NewScreeningRepository constructs a ScreeningRepository.
func NewScreeningRepository(db *pgxpool.Pool) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

// Create inserts a new screening together with its full seat block in a
// single transaction, so a screening is never visible with a partial
// inventory. Seats are labelled S1..S{n} and start unbooked.
func (r *ScreeningRepository) Create(ctx context.Context, req model.CreateScreeningRequest) (*model.Screening, error) {
	screening := &model.Screening{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Seats:       model.NewSeatBlock(req.SeatCount),
		CreatedAt:   time.Now().UTC(),
	}
	if req.PosterRef != "" {
		ref := req.PosterRef
		screening.PosterRef = &ref
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO screenings (id, title, description, poster_ref, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		screening.ID, screening.Title, screening.Description, screening.PosterRef,
		screening.Price, screening.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert screening: %w", err)
	}

	// Bulk-insert the seat block in one statement.
	query := `INSERT INTO seats (screening_id, position, seat_no, booked) VALUES `
	args := make([]any, 0, len(screening.Seats)*4)
	for i, seat := range screening.Seats {
		if i > 0 {
			query += ","
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, screening.ID, i, seat.SeatNo, seat.Booked)
	}
	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert seats: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return screening, nil
}

// GetByID returns a single screening with its ordered seat list, or ErrNotFound.
func (r *ScreeningRepository) GetByID(ctx context.Context, id string) (*model.Screening, error) {
	var s model.Screening
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, poster_ref, price, created_at
		 FROM screenings WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.PosterRef, &s.Price, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get screening: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT seat_no, booked FROM seats WHERE screening_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seat model.Seat
		if err := rows.Scan(&seat.SeatNo, &seat.Booked); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		s.Seats = append(s.Seats, seat)
	}
	return &s, rows.Err()
}

// List returns all screenings with their seats, newest first.
func (r *ScreeningRepository) List(ctx context.Context) ([]model.Screening, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, poster_ref, price, created_at
		 FROM screenings
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}
	defer rows.Close()

	var screenings []model.Screening
	index := make(map[string]int)
	for rows.Next() {
		var s model.Screening
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.PosterRef, &s.Price, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan screening: %w", err)
		}
		index[s.ID] = len(screenings)
		screenings = append(screenings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(screenings) == 0 {
		return screenings, nil
	}

	// Attach seats for all screenings in one query.
	seatRows, err := r.db.Query(ctx,
		`SELECT screening_id, seat_no, booked FROM seats ORDER BY screening_id, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer seatRows.Close()

	for seatRows.Next() {
		var screeningID string
		var seat model.Seat
		if err := seatRows.Scan(&screeningID, &seat.SeatNo, &seat.Booked); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		if i, ok := index[screeningID]; ok {
			screenings[i].Seats = append(screenings[i].Seats, seat)
		}
	}
	return screenings, seatRows.Err()
}

// TryReserve atomically books the requested seats on a screening.
//
// The check "every requested seat exists and is unbooked" and the mutation
// "mark them booked" must be inseparable for concurrent callers, and must
// span the whole requested set: booking seat by seat could leave a request
// half-applied when another request interleaves. TryReserve therefore runs
// one transaction that first takes a row-level lock on the screening with
// SELECT ... FOR UPDATE. Every reservation against the same screening
// serialises on that lock, so the seat states read below cannot change
// before the update commits. Requests for disjoint seat sets still both
// succeed; they are merely ordered.
//
// On success it returns the screening's full updated seat list. On any
// failure nothing is mutated: the transaction rolls back as a whole.
func (r *ScreeningRepository) TryReserve(ctx context.Context, screeningID string, seatNos []string) ([]model.Seat, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the screening row. This is the serialisation point for all
	// reservations touching this screening.
	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM screenings WHERE id = $1 FOR UPDATE`,
		screeningID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock screening row: %w", err)
	}

	// Re-validate every requested seat under the lock.
	rows, err := tx.Query(ctx,
		`SELECT seat_no, booked FROM seats WHERE screening_id = $1 AND seat_no = ANY($2)`,
		screeningID, seatNos,
	)
	if err != nil {
		return nil, fmt.Errorf("check seats: %w", err)
	}
	found := 0
	for rows.Next() {
		var seatNo string
		var booked bool
		if err := rows.Scan(&seatNo, &booked); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		if booked {
			rows.Close()
			return nil, ErrSeatUnavailable
		}
		found++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found != len(seatNos) {
		// At least one requested label does not exist on this screening.
		return nil, ErrSeatUnavailable
	}

	// All requested seats are free; book them in one statement.
	if _, err = tx.Exec(ctx,
		`UPDATE seats SET booked = TRUE WHERE screening_id = $1 AND seat_no = ANY($2)`,
		screeningID, seatNos,
	); err != nil {
		return nil, fmt.Errorf("book seats: %w", err)
	}

	// Read back the full seat state for the caller.
	seatRows, err := tx.Query(ctx,
		`SELECT seat_no, booked FROM seats WHERE screening_id = $1 ORDER BY position`,
		screeningID,
	)
	if err != nil {
		return nil, fmt.Errorf("read back seats: %w", err)
	}
	var seats []model.Seat
	for seatRows.Next() {
		var seat model.Seat
		if err := seatRows.Scan(&seat.SeatNo, &seat.Booked); err != nil {
			seatRows.Close()
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	seatRows.Close()
	if err := seatRows.Err(); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return seats, nil
}

// BookedScreenings builds the booking-history view: every screening with at
// least one booked seat, together with its booked seat labels in display
// order. The inner join drops screenings with no bookings.
func (r *ScreeningRepository) BookedScreenings(ctx context.Context) ([]model.BookedScreening, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.title, s.poster_ref, s.price, se.seat_no
		 FROM screenings s
		 JOIN seats se ON se.screening_id = s.id AND se.booked
		 ORDER BY s.created_at DESC, s.id, se.position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list booked screenings: %w", err)
	}
	defer rows.Close()

	var booked []model.BookedScreening
	index := make(map[string]int)
	for rows.Next() {
		var (
			id, title, seatNo string
			posterRef         *string
			price             float64
		)
		if err := rows.Scan(&id, &title, &posterRef, &price, &seatNo); err != nil {
			return nil, fmt.Errorf("scan booked screening: %w", err)
		}
		i, ok := index[id]
		if !ok {
			i = len(booked)
			index[id] = i
			booked = append(booked, model.BookedScreening{
				ScreeningID: id,
				Title:       title,
				PosterRef:   posterRef,
				Price:       price,
			})
		}
		booked[i].BookedSeatNos = append(booked[i].BookedSeatNos, seatNo)
	}
	return booked, rows.Err()
}
