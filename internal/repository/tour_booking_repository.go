package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// TourBookingRepo persists tour bookings.  Like HotelReservationRepo, it
// inserts inside the ledger transaction and leaves status changes to
// TourStore.
type TourBookingRepo struct {
	db *sql.DB
}

func NewTourBookingRepo(db *sql.DB) *TourBookingRepo { return &TourBookingRepo{db: db} }

// TourBookingDetail is a booking joined with its tour.
type TourBookingDetail struct {
	model.TourBooking
	TourName    string     `json:"tour_name"`
	Destination string     `json:"destination"`
	StartDate   model.Date `json:"start_date"`
}

const bookingCols = `tb.id, tb.reference, tb.user_id, tb.tour_id, tb.num_participants, tb.total_price_cents,
	tb.status, tb.special_requests, tb.created_at, tb.updated_at, t.name, t.destination, t.start_date`

const bookingFrom = ` FROM tour_bookings tb JOIN tours t ON t.id = tb.tour_id`

func scanBooking(s scanner, d *TourBookingDetail) error {
	var special sql.NullString
	var status string
	err := s.Scan(&d.ID, &d.Reference, &d.UserID, &d.TourID, &d.NumParticipants, &d.TotalPriceCents,
		&status, &special, &d.CreatedAt, &d.UpdatedAt, &d.TourName, &d.Destination, &d.StartDate)
	if err != nil {
		return err
	}
	d.Status = parseStoredStatus(status)
	if special.Valid {
		v := special.String
		d.SpecialRequests = &v
	}
	return nil
}

// CreateTx inserts a booking within the caller's transaction.
func (r *TourBookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.TourBooking) error {
	const q = `INSERT INTO tour_bookings
		(reference, user_id, tour_id, num_participants, total_price_cents, status, special_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, b.Reference, b.UserID, b.TourID, b.NumParticipants,
		b.TotalPriceCents, string(b.Status), b.SpecialRequests)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM tour_bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns the booking or ErrNotFound.
func (r *TourBookingRepo) GetByID(ctx context.Context, id uint64) (*TourBookingDetail, error) {
	q := `SELECT ` + bookingCols + bookingFrom + ` WHERE tb.id = ?`
	var d TourBookingDetail
	if err := scanBooking(r.db.QueryRowContext(ctx, q, id), &d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns bookings newest first.  A nil userID lists everyone's.
func (r *TourBookingRepo) List(ctx context.Context, userID *uint64) ([]TourBookingDetail, error) {
	q := `SELECT ` + bookingCols + bookingFrom
	args := []any{}
	if userID != nil {
		q += ` WHERE tb.user_id = ?`
		args = append(args, *userID)
	}
	q += ` ORDER BY tb.created_at DESC, tb.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TourBookingDetail{}
	for rows.Next() {
		var d TourBookingDetail
		if err := scanBooking(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
