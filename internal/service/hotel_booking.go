package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/queue"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

// RoomReader loads room types for pricing and validation.
type RoomReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// HotelReservationReader reads reservations with their hotel context.
type HotelReservationReader interface {
	GetByID(ctx context.Context, id uint64) (*repository.HotelReservationDetail, error)
	List(ctx context.Context, q repository.ReservationQuery) ([]repository.HotelReservationDetail, error)
}

// ReserveRoomInput is the body of a hotel reservation request.
type ReserveRoomInput struct {
	RoomID          uint64     `json:"room_id"`
	CheckIn         model.Date `json:"check_in"`
	CheckOut        model.Date `json:"check_out"`
	NumGuests       int        `json:"num_guests"`
	NumRooms        int        `json:"num_rooms"`
	SpecialRequests *string    `json:"special_requests"`
}

// HotelBookingService runs the hotel reservation lifecycle on the room
// ledger.
type HotelBookingService struct {
	rooms        RoomReader
	reservations HotelReservationReader
	ledger       Ledger[*model.HotelReservation]
	notify       notifier
	log          *zap.Logger
}

func NewHotelBookingService(rooms RoomReader, reservations HotelReservationReader,
	l Ledger[*model.HotelReservation], events queue.Publisher, cache Invalidator, log *zap.Logger) *HotelBookingService {
	if rooms == nil || reservations == nil || l == nil {
		panic("service.NewHotelBookingService: nil dependency")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("hotel_booking")
	return &HotelBookingService{
		rooms:        rooms,
		reservations: reservations,
		ledger:       l,
		notify:       newNotifier(events, cache, log, cacheHotels, cacheRooms),
		log:          log,
	}
}

// Cache groups touched by booking changes.  They mirror the groups the
// router assigns to catalogue routes.
const (
	cacheHotels = "hotels"
	cacheRooms  = "rooms"
	cacheTours  = "tours"
)

func (s *HotelBookingService) validate(ctx context.Context, in ReserveRoomInput) (*model.Room, error) {
	if in.RoomID == 0 {
		return nil, invalid("room_id", "This field is required.")
	}
	if in.CheckIn.IsZero() || in.CheckOut.IsZero() {
		return nil, invalid("check_in", "Check-in and check-out dates are required.")
	}
	if !in.CheckOut.After(in.CheckIn.Time) {
		return nil, invalid("check_out", "Check-out date must be after check-in date.")
	}
	if in.NumGuests < 1 {
		return nil, invalid("num_guests", "Ensure this value is greater than or equal to 1.")
	}
	if in.NumRooms < 1 {
		return nil, invalid("num_rooms", "Ensure this value is greater than or equal to 1.")
	}
	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		return nil, notFoundAs(err, "room_id", "Room does not exist.")
	}
	if in.NumGuests > room.Capacity*in.NumRooms {
		return nil, invalid("num_guests", "%d room(s) of this type sleep at most %d guests.",
			in.NumRooms, room.Capacity*in.NumRooms)
	}
	return room, nil
}

// Reserve prices the stay and takes num_rooms from the room's pool.  The
// reservation is created PENDING with a fresh reference.
func (s *HotelBookingService) Reserve(ctx context.Context, caller Caller, in ReserveRoomInput) (*repository.HotelReservationDetail, error) {
	room, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	res := &model.HotelReservation{
		Reference:       uuid.NewString(),
		UserID:          caller.UserID,
		CheckIn:         in.CheckIn,
		CheckOut:        in.CheckOut,
		NumGuests:       in.NumGuests,
		SpecialRequests: in.SpecialRequests,
	}
	res.TotalPriceCents = room.PricePerNightCents * int64(res.Nights()) * int64(in.NumRooms)

	rec, pool, err := s.ledger.Reserve(ctx, room.ID, in.NumRooms, res)
	if err != nil {
		return nil, err
	}

	ev := queue.NewBookingEvent(queue.EventReservationCreated, rec)
	ev.UserID = res.UserID
	ev.Remaining = pool.Remaining
	ev.TotalPriceCents = res.TotalPriceCents
	ev.Reference = res.Reference
	s.notify.after(ctx, ev)

	detail, err := s.reservations.GetByID(ctx, rec.ID)
	if err != nil {
		s.log.Warn("reload after reserve failed", zap.Uint64("reservation_id", rec.ID), zap.Error(err))
		return &repository.HotelReservationDetail{HotelReservation: *res, HotelID: room.HotelID, RoomType: room.RoomType}, nil
	}
	return detail, nil
}

// Get returns one reservation the caller may see.
func (s *HotelBookingService) Get(ctx context.Context, caller Caller, id uint64) (*repository.HotelReservationDetail, error) {
	d, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(d.UserID) {
		return nil, repository.ErrForbidden
	}
	return d, nil
}

// List returns the caller's reservations, or every reservation for staff
// unless mine is set.
func (s *HotelBookingService) List(ctx context.Context, caller Caller, mine bool, orderBy string) ([]repository.HotelReservationDetail, error) {
	q := repository.ReservationQuery{OrderBy: orderBy}
	if mine || !caller.Staff {
		uid := caller.UserID
		q.UserID = &uid
	}
	return s.reservations.List(ctx, q)
}

// Cancel releases the reservation's rooms back to the pool.  Only the
// owner or staff may cancel.
func (s *HotelBookingService) Cancel(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
	d, err := s.Get(ctx, caller, id)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, pool, err := s.ledger.Cancel(ctx, id)
	if err != nil {
		return ledger.Record{}, err
	}
	s.notify.after(ctx, s.event(rec, d, pool.Remaining))
	return rec, nil
}

// Confirm and Complete are staff transitions.
func (s *HotelBookingService) Confirm(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
	return s.staffTransition(ctx, caller, id, ledger.StatusConfirmed)
}

func (s *HotelBookingService) Complete(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
	return s.staffTransition(ctx, caller, id, ledger.StatusCompleted)
}

func (s *HotelBookingService) staffTransition(ctx context.Context, caller Caller, id uint64, next ledger.Status) (ledger.Record, error) {
	if !caller.Staff {
		return ledger.Record{}, repository.ErrForbidden
	}
	d, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return ledger.Record{}, err
	}
	var rec ledger.Record
	if next == ledger.StatusConfirmed {
		rec, err = s.ledger.Confirm(ctx, id)
	} else {
		rec, err = s.ledger.Complete(ctx, id)
	}
	if err != nil {
		return ledger.Record{}, err
	}
	s.notify.after(ctx, s.event(rec, d, 0))
	return rec, nil
}

func (s *HotelBookingService) event(rec ledger.Record, d *repository.HotelReservationDetail, remaining int) queue.BookingEvent {
	ev := queue.NewBookingEvent(eventFor(rec.Status), rec)
	ev.UserID = d.UserID
	ev.Remaining = remaining
	ev.TotalPriceCents = d.TotalPriceCents
	ev.Reference = d.Reference
	return ev
}
