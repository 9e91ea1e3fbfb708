package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/model"
)

// poolTable names the columns that make up one kind of capacity pool and
// the records that draw from it.
type poolTable struct {
	kind         ledger.PoolKind
	table        string // rooms | tours
	totalCol     string
	remainingCol string
	recordTable  string
	poolCol      string // record column referencing the pool
	quantityCol  string
}

var roomPools = poolTable{
	kind:         ledger.KindRoom,
	table:        "rooms",
	totalCol:     "total_rooms",
	remainingCol: "available_rooms",
	recordTable:  "hotel_reservations",
	poolCol:      "room_id",
	quantityCol:  "num_rooms",
}

var tourPools = poolTable{
	kind:         ledger.KindTour,
	table:        "tours",
	totalCol:     "max_participants",
	remainingCol: "available_spots",
	recordTable:  "tour_bookings",
	poolCol:      "tour_id",
	quantityCol:  "num_participants",
}

func parseStoredStatus(s string) ledger.Status { return ledger.Status(s) }

// peekRecord reads a record without locking.
func (t poolTable) peekRecord(ctx context.Context, db *sql.DB, id uint64) (ledger.Record, error) {
	q := fmt.Sprintf(`SELECT id, %s, %s, status FROM %s WHERE id = ?`, t.poolCol, t.quantityCol, t.recordTable)
	return t.scanRecord(db.QueryRowContext(ctx, q, id))
}

func (t poolTable) scanRecord(row scanner) (ledger.Record, error) {
	var rec ledger.Record
	var status string
	if err := row.Scan(&rec.ID, &rec.Pool.ID, &rec.Quantity, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Record{}, ledger.ErrRecordNotFound
		}
		return ledger.Record{}, mapDBError(err)
	}
	st, err := ledger.ParseStatus(status)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%s %d: %w", t.recordTable, rec.ID, err)
	}
	rec.Pool.Kind = t.kind
	rec.Status = st
	return rec, nil
}

// poolTx implements the pool and status half of ledger.Tx over a
// *sql.Tx.  Locks are InnoDB row locks taken with SELECT ... FOR UPDATE and
// held until the transaction ends.
type poolTx struct {
	tx *sql.Tx
	t  poolTable
}

func (p *poolTx) LockPool(ctx context.Context, id uint64) (ledger.Pool, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE id = ? FOR UPDATE`, p.t.totalCol, p.t.remainingCol, p.t.table)
	pool := ledger.Pool{Key: ledger.PoolKey{Kind: p.t.kind, ID: id}}
	if err := p.tx.QueryRowContext(ctx, q, id).Scan(&pool.Total, &pool.Remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Pool{}, ledger.ErrPoolNotFound
		}
		return ledger.Pool{}, mapDBError(err)
	}
	return pool, nil
}

func (p *poolTx) SavePool(ctx context.Context, pool ledger.Pool) error {
	q := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ? WHERE id = ?`, p.t.table, p.t.totalCol, p.t.remainingCol)
	_, err := p.tx.ExecContext(ctx, q, pool.Total, pool.Remaining, pool.Key.ID)
	return mapDBError(err)
}

func (p *poolTx) LockRecord(ctx context.Context, id uint64) (ledger.Record, error) {
	q := fmt.Sprintf(`SELECT id, %s, %s, status FROM %s WHERE id = ? FOR UPDATE`, p.t.poolCol, p.t.quantityCol, p.t.recordTable)
	return p.t.scanRecord(p.tx.QueryRowContext(ctx, q, id))
}

func (p *poolTx) SaveStatus(ctx context.Context, rec ledger.Record) error {
	q := fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, p.t.recordTable)
	_, err := p.tx.ExecContext(ctx, q, string(rec.Status), rec.ID)
	return mapDBError(err)
}

func (p *poolTx) Commit() error   { return mapDBError(p.tx.Commit()) }
func (p *poolTx) Rollback() error { return p.tx.Rollback() }

// RoomStore is the ledger.Store for room pools.  New records are written
// as hotel_reservations rows.
type RoomStore struct {
	db           *sql.DB
	reservations *HotelReservationRepo
}

func NewRoomStore(db *sql.DB) *RoomStore {
	return &RoomStore{db: db, reservations: NewHotelReservationRepo(db)}
}

func (s *RoomStore) Kind() ledger.PoolKind { return ledger.KindRoom }

func (s *RoomStore) PeekRecord(ctx context.Context, id uint64) (ledger.Record, error) {
	return roomPools.peekRecord(ctx, s.db, id)
}

func (s *RoomStore) Begin(ctx context.Context) (ledger.Tx[*model.HotelReservation], error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &roomTx{poolTx: poolTx{tx: tx, t: roomPools}, repo: s.reservations}, nil
}

type roomTx struct {
	poolTx
	repo *HotelReservationRepo
}

func (t *roomTx) InsertRecord(ctx context.Context, rec *ledger.Record, res *model.HotelReservation) error {
	res.RoomID = rec.Pool.ID
	res.NumRooms = rec.Quantity
	res.Status = rec.Status
	if err := t.repo.CreateTx(ctx, t.tx, res); err != nil {
		return mapDBError(err)
	}
	rec.ID = res.ID
	return nil
}

// TourStore is the ledger.Store for tour pools.
type TourStore struct {
	db       *sql.DB
	bookings *TourBookingRepo
}

func NewTourStore(db *sql.DB) *TourStore {
	return &TourStore{db: db, bookings: NewTourBookingRepo(db)}
}

func (s *TourStore) Kind() ledger.PoolKind { return ledger.KindTour }

func (s *TourStore) PeekRecord(ctx context.Context, id uint64) (ledger.Record, error) {
	return tourPools.peekRecord(ctx, s.db, id)
}

func (s *TourStore) Begin(ctx context.Context) (ledger.Tx[*model.TourBooking], error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &tourTx{poolTx: poolTx{tx: tx, t: tourPools}, repo: s.bookings}, nil
}

type tourTx struct {
	poolTx
	repo *TourBookingRepo
}

func (t *tourTx) InsertRecord(ctx context.Context, rec *ledger.Record, b *model.TourBooking) error {
	b.TourID = rec.Pool.ID
	b.NumParticipants = rec.Quantity
	b.Status = rec.Status
	if err := t.repo.CreateTx(ctx, t.tx, b); err != nil {
		return mapDBError(err)
	}
	rec.ID = b.ID
	return nil
}

var (
	_ ledger.Store[*model.HotelReservation] = (*RoomStore)(nil)
	_ ledger.Store[*model.TourBooking]      = (*TourStore)(nil)
)
