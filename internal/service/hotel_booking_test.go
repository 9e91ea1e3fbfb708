package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/queue"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

type HotelBookingSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *fakeLedger[*model.HotelReservation]
	events *recordingPublisher
	cache  *recordingCache
	svc    *HotelBookingService
}

func (s *HotelBookingSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = newFakeLedger[*model.HotelReservation](ledger.KindRoom)
	s.ledger.addPool(12, 5, 2)
	rooms := &fakeRooms{rooms: map[uint64]*model.Room{
		12: {ID: 12, HotelID: 3, RoomType: model.RoomDouble, PricePerNightCents: 12000, Capacity: 2, TotalRooms: 5, AvailableRooms: 2},
	}}
	s.events = &recordingPublisher{}
	s.cache = &recordingCache{}
	s.svc = NewHotelBookingService(rooms, &fakeReservations{l: s.ledger}, s.ledger, s.events, s.cache, nil)
}

func TestHotelBookingSuite(t *testing.T) {
	suite.Run(t, new(HotelBookingSuite))
}

func day(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (s *HotelBookingSuite) input(rooms, guests int) ReserveRoomInput {
	return ReserveRoomInput{RoomID: 12, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-04"), NumGuests: guests, NumRooms: rooms}
}

func (s *HotelBookingSuite) TestReserve_PricesAndPublishes() {
	d, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(2, 3))
	s.Require().NoError(err)
	s.Equal(int64(12000*3*2), d.TotalPriceCents)
	s.Equal(uint64(7), d.UserID)
	s.Equal(2, d.NumRooms)
	s.Equal(ledger.StatusPending, d.Status)
	s.NotEmpty(d.Reference)
	s.Equal(0, s.ledger.pools[12].Remaining)

	ev := s.events.last()
	s.Equal(queue.EventReservationCreated, ev.Type)
	s.Equal(ledger.KindRoom, ev.Kind)
	s.Equal(0, ev.Remaining)
	s.Equal(d.Reference, ev.Reference)
	s.Equal(uint64(7), ev.UserID)
	s.ElementsMatch([]string{cacheHotels, cacheRooms}, s.cache.groups)
}

func (s *HotelBookingSuite) TestReserve_InsufficientCapacity() {
	_, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(3, 3))
	var ic *ledger.InsufficientCapacityError
	s.Require().ErrorAs(err, &ic)
	s.Equal(2, ic.Available)
	s.Empty(s.events.events)
	s.Empty(s.cache.groups)
}

func (s *HotelBookingSuite) TestReserve_Validation() {
	cases := map[string]ReserveRoomInput{
		"check_out":  {RoomID: 12, CheckIn: day("2026-07-04"), CheckOut: day("2026-07-04"), NumGuests: 1, NumRooms: 1},
		"num_rooms":  {RoomID: 12, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-04"), NumGuests: 1},
		"num_guests": {RoomID: 12, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-04"), NumGuests: 5, NumRooms: 2},
		"room_id":    {RoomID: 99, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-04"), NumGuests: 1, NumRooms: 1},
	}
	for field, in := range cases {
		_, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, in)
		var ve *ValidationError
		s.Require().ErrorAs(err, &ve, field)
		s.Equal(field, ve.Field)
	}
	s.Equal(2, s.ledger.pools[12].Remaining)
}

func (s *HotelBookingSuite) TestCancel_OwnerRestoresPool() {
	d, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(2, 2))
	s.Require().NoError(err)

	rec, err := s.svc.Cancel(s.ctx, Caller{UserID: 7}, d.ID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusCancelled, rec.Status)
	s.Equal(2, s.ledger.pools[12].Remaining)

	ev := s.events.last()
	s.Equal(queue.EventReservationCancelled, ev.Type)
	s.Equal(2, ev.Remaining)
	s.Equal(d.TotalPriceCents, ev.TotalPriceCents)

	_, err = s.svc.Cancel(s.ctx, Caller{UserID: 7}, d.ID)
	var it *ledger.InvalidTransitionError
	s.Require().ErrorAs(err, &it)
	s.Equal(ledger.StatusCancelled, it.Current)
	s.Equal(2, s.ledger.pools[12].Remaining)
}

func (s *HotelBookingSuite) TestCancel_OtherUserForbidden() {
	d, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(1, 1))
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, Caller{UserID: 8}, d.ID)
	s.ErrorIs(err, repository.ErrForbidden)
	s.Equal(1, s.ledger.pools[12].Remaining)

	_, err = s.svc.Cancel(s.ctx, Caller{UserID: 1, Staff: true}, d.ID)
	s.NoError(err)
}

func (s *HotelBookingSuite) TestStaffTransitions() {
	d, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(1, 1))
	s.Require().NoError(err)

	_, err = s.svc.Confirm(s.ctx, Caller{UserID: 7}, d.ID)
	s.ErrorIs(err, repository.ErrForbidden)

	staff := Caller{UserID: 1, Staff: true}
	rec, err := s.svc.Confirm(s.ctx, staff, d.ID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusConfirmed, rec.Status)
	s.Equal(queue.EventReservationConfirmed, s.events.last().Type)

	rec, err = s.svc.Complete(s.ctx, staff, d.ID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusCompleted, rec.Status)

	_, err = s.svc.Cancel(s.ctx, staff, d.ID)
	var it *ledger.InvalidTransitionError
	s.Require().ErrorAs(err, &it)
	s.Equal(ledger.StatusCompleted, it.Current)
	s.Equal(1, s.ledger.pools[12].Remaining, "completed stays consumed")
}

func (s *HotelBookingSuite) TestPublishFailureKeepsReservation() {
	s.events.err = errors.New("broker down")
	d, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(1, 1))
	s.Require().NoError(err)
	s.NotZero(d.ID)
	s.Equal(1, s.ledger.pools[12].Remaining)
}

func (s *HotelBookingSuite) TestList_ScopesToCaller() {
	_, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(1, 1))
	s.Require().NoError(err)
	_, err = s.svc.Reserve(s.ctx, Caller{UserID: 8}, s.input(1, 1))
	s.Require().NoError(err)

	mine, err := s.svc.List(s.ctx, Caller{UserID: 7}, false, "")
	s.Require().NoError(err)
	s.Len(mine, 1)

	all, err := s.svc.List(s.ctx, Caller{UserID: 1, Staff: true}, false, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	own, err := s.svc.List(s.ctx, Caller{UserID: 1, Staff: true}, true, "")
	s.Require().NoError(err)
	s.Empty(own)

	_, err = s.svc.Get(s.ctx, Caller{UserID: 8}, mine[0].ID)
	s.ErrorIs(err, repository.ErrForbidden)
}

func (s *HotelBookingSuite) TestReserve_ContentionSurfaces() {
	s.ledger.err = ledger.ErrContention
	_, err := s.svc.Reserve(s.ctx, Caller{UserID: 7}, s.input(1, 1))
	s.ErrorIs(err, ledger.ErrContention)
}
