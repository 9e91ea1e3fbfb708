package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// RoomRepo reads and maintains room types.  It never writes
// available_rooms after creation; that column belongs to the ledger.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// RoomFilter narrows List.  Zero values are ignored.
type RoomFilter struct {
	HotelID   uint64
	Available bool
	RoomType  string
}

const roomCols = `id, hotel_id, room_type, description, price_per_night_cents, capacity,
	total_rooms, available_rooms, created_at, updated_at`

func scanRoom(s scanner, rm *model.Room) error {
	return s.Scan(&rm.ID, &rm.HotelID, &rm.RoomType, &rm.Description, &rm.PricePerNightCents,
		&rm.Capacity, &rm.TotalRooms, &rm.AvailableRooms, &rm.CreatedAt, &rm.UpdatedAt)
}

// List returns rooms ordered by nightly price.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + roomCols + ` FROM rooms WHERE 1 = 1`)
	args := []any{}
	if f.HotelID != 0 {
		sb.WriteString(` AND hotel_id = ?`)
		args = append(args, f.HotelID)
	}
	if f.Available {
		sb.WriteString(` AND available_rooms > 0`)
	}
	if f.RoomType != "" {
		sb.WriteString(` AND room_type = ?`)
		args = append(args, f.RoomType)
	}
	sb.WriteString(` ORDER BY price_per_night_cents, id`)
	return r.query(ctx, sb.String(), args...)
}

// ListByHotel returns the rooms of one hotel, optionally only those with
// availability.
func (r *RoomRepo) ListByHotel(ctx context.Context, hotelID uint64, availableOnly bool) ([]model.Room, error) {
	return r.List(ctx, RoomFilter{HotelID: hotelID, Available: availableOnly})
}

func (r *RoomRepo) query(ctx context.Context, q string, args ...any) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		var rm model.Room
		if err := scanRoom(rows, &rm); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// GetByID returns the room or ErrNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	var rm model.Room
	err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = ?`, id), &rm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

// Create inserts a room with every unit available.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (hotel_id, room_type, description, price_per_night_cents, capacity, total_rooms, available_rooms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.HotelID, rm.RoomType, rm.Description, rm.PricePerNightCents,
		rm.Capacity, rm.TotalRooms, rm.TotalRooms)
	if err != nil {
		return mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rm = *got
	return nil
}

// UpdateDetails changes the descriptive columns.  Capacity counts are left
// to ledger.Resize.
func (r *RoomRepo) UpdateDetails(ctx context.Context, rm *model.Room) error {
	const q = `UPDATE rooms SET room_type = ?, description = ?, price_per_night_cents = ?, capacity = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, rm.RoomType, rm.Description, rm.PricePerNightCents, rm.Capacity, rm.ID); err != nil {
		return mapDBError(err)
	}
	got, err := r.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	*rm = *got
	return nil
}

// Delete removes a room unless active reservations still hold it.  The
// room row is locked first so no reservation can slip in between the
// check and the delete.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return mapDBError(err)
	}
	var active int
	const cnt = `SELECT COUNT(*) FROM hotel_reservations WHERE room_id = ? AND status IN ('PENDING','CONFIRMED')`
	if err := tx.QueryRowContext(ctx, cnt, id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return mapDBError(err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
