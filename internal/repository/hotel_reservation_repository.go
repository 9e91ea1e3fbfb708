package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// HotelReservationRepo persists hotel reservations.  Inserts happen inside
// the ledger transaction through CreateTx; status changes go through
// RoomStore.  The read methods here never lock.
type HotelReservationRepo struct {
	db *sql.DB
}

func NewHotelReservationRepo(db *sql.DB) *HotelReservationRepo {
	return &HotelReservationRepo{db: db}
}

// HotelReservationDetail is a reservation joined with the room and hotel
// it books.
type HotelReservationDetail struct {
	model.HotelReservation
	HotelID   uint64 `json:"hotel_id"`
	HotelName string `json:"hotel_name"`
	RoomType  string `json:"room_type"`
}

// ReservationQuery selects reservations.  A nil UserID means all users
// (staff view).  OrderBy accepts "check_in", "-check_in", "created_at" and
// "-created_at"; anything else falls back to newest first.
type ReservationQuery struct {
	UserID  *uint64
	OrderBy string
}

const reservationCols = `hr.id, hr.reference, hr.user_id, hr.room_id, hr.check_in, hr.check_out,
	hr.num_guests, hr.num_rooms, hr.total_price_cents, hr.status, hr.special_requests,
	hr.created_at, hr.updated_at, r.hotel_id, h.name, r.room_type`

const reservationFrom = ` FROM hotel_reservations hr
	JOIN rooms r ON r.id = hr.room_id
	JOIN hotels h ON h.id = r.hotel_id`

func scanReservation(s scanner, d *HotelReservationDetail) error {
	var special sql.NullString
	var status string
	err := s.Scan(&d.ID, &d.Reference, &d.UserID, &d.RoomID, &d.CheckIn, &d.CheckOut,
		&d.NumGuests, &d.NumRooms, &d.TotalPriceCents, &status, &special,
		&d.CreatedAt, &d.UpdatedAt, &d.HotelID, &d.HotelName, &d.RoomType)
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

// CreateTx inserts a reservation within the caller's transaction and sets
// the generated ID.  Timestamps are filled from the database clock.
func (r *HotelReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.HotelReservation) error {
	const q = `INSERT INTO hotel_reservations
		(reference, user_id, room_id, check_in, check_out, num_guests, num_rooms, total_price_cents, status, special_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.Reference, res.UserID, res.RoomID, res.CheckIn, res.CheckOut,
		res.NumGuests, res.NumRooms, res.TotalPriceCents, string(res.Status), res.SpecialRequests)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM hotel_reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// GetByID returns the reservation or ErrNotFound.
func (r *HotelReservationRepo) GetByID(ctx context.Context, id uint64) (*HotelReservationDetail, error) {
	q := `SELECT ` + reservationCols + reservationFrom + ` WHERE hr.id = ?`
	var d HotelReservationDetail
	if err := scanReservation(r.db.QueryRowContext(ctx, q, id), &d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns reservations per q.
func (r *HotelReservationRepo) List(ctx context.Context, q ReservationQuery) ([]HotelReservationDetail, error) {
	query := `SELECT ` + reservationCols + reservationFrom
	args := []any{}
	if q.UserID != nil {
		query += ` WHERE hr.user_id = ?`
		args = append(args, *q.UserID)
	}
	switch q.OrderBy {
	case "check_in":
		query += ` ORDER BY hr.check_in, hr.id`
	case "-check_in":
		query += ` ORDER BY hr.check_in DESC, hr.id DESC`
	case "created_at":
		query += ` ORDER BY hr.created_at, hr.id`
	default:
		query += ` ORDER BY hr.created_at DESC, hr.id DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []HotelReservationDetail{}
	for rows.Next() {
		var d HotelReservationDetail
		if err := scanReservation(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
