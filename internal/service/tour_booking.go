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

type TourReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Tour, error)
}

type TourBookingReader interface {
	GetByID(ctx context.Context, id uint64) (*repository.TourBookingDetail, error)
	List(ctx context.Context, userID *uint64) ([]repository.TourBookingDetail, error)
}

// BookTourInput is the body of a tour booking request.
type BookTourInput struct {
	TourID          uint64  `json:"tour_id"`
	NumParticipants int     `json:"num_participants"`
	SpecialRequests *string `json:"special_requests"`
}

// TourBookingService runs the tour booking lifecycle on the tour ledger.
type TourBookingService struct {
	tours    TourReader
	bookings TourBookingReader
	ledger   Ledger[*model.TourBooking]
	notify   notifier
	log      *zap.Logger
}

func NewTourBookingService(tours TourReader, bookings TourBookingReader,
	l Ledger[*model.TourBooking], events queue.Publisher, cache Invalidator, log *zap.Logger) *TourBookingService {
	if tours == nil || bookings == nil || l == nil {
		panic("service.NewTourBookingService: nil dependency")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tour_booking")
	return &TourBookingService{
		tours:    tours,
		bookings: bookings,
		ledger:   l,
		notify:   newNotifier(events, cache, log, cacheTours),
		log:      log,
	}
}

// Book takes num_participants spots from an active tour.
func (s *TourBookingService) Book(ctx context.Context, caller Caller, in BookTourInput) (*repository.TourBookingDetail, error) {
	if in.TourID == 0 {
		return nil, invalid("tour_id", "This field is required.")
	}
	if in.NumParticipants < 1 {
		return nil, invalid("num_participants", "Ensure this value is greater than or equal to 1.")
	}
	tour, err := s.tours.GetByID(ctx, in.TourID)
	if err != nil {
		return nil, notFoundAs(err, "tour_id", "Tour does not exist.")
	}
	if !tour.IsActive {
		return nil, invalid("tour_id", "This tour is not available for booking.")
	}

	b := &model.TourBooking{
		Reference:       uuid.NewString(),
		UserID:          caller.UserID,
		TotalPriceCents: tour.PricePerPersonCents * int64(in.NumParticipants),
		SpecialRequests: in.SpecialRequests,
	}
	rec, pool, err := s.ledger.Reserve(ctx, tour.ID, in.NumParticipants, b)
	if err != nil {
		return nil, err
	}

	ev := queue.NewBookingEvent(queue.EventReservationCreated, rec)
	ev.UserID = b.UserID
	ev.Remaining = pool.Remaining
	ev.TotalPriceCents = b.TotalPriceCents
	ev.Reference = b.Reference
	s.notify.after(ctx, ev)

	detail, err := s.bookings.GetByID(ctx, rec.ID)
	if err != nil {
		s.log.Warn("reload after booking failed", zap.Uint64("booking_id", rec.ID), zap.Error(err))
		return &repository.TourBookingDetail{
			TourBooking: *b,
			TourName:    tour.Name,
			Destination: tour.Destination,
			StartDate:   tour.StartDate,
		}, nil
	}
	return detail, nil
}

func (s *TourBookingService) Get(ctx context.Context, caller Caller, id uint64) (*repository.TourBookingDetail, error) {
	d, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(d.UserID) {
		return nil, repository.ErrForbidden
	}
	return d, nil
}

// List returns the caller's bookings, or all bookings for staff unless
// mine is set.
func (s *TourBookingService) List(ctx context.Context, caller Caller, mine bool) ([]repository.TourBookingDetail, error) {
	if mine || !caller.Staff {
		uid := caller.UserID
		return s.bookings.List(ctx, &uid)
	}
	return s.bookings.List(ctx, nil)
}

// Cancel returns the booking's spots to the tour.
func (s *TourBookingService) Cancel(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
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

func (s *TourBookingService) Confirm(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
	return s.staffTransition(ctx, caller, id, s.ledger.Confirm)
}

func (s *TourBookingService) Complete(ctx context.Context, caller Caller, id uint64) (ledger.Record, error) {
	return s.staffTransition(ctx, caller, id, s.ledger.Complete)
}

func (s *TourBookingService) staffTransition(ctx context.Context, caller Caller, id uint64,
	apply func(context.Context, uint64) (ledger.Record, error)) (ledger.Record, error) {
	if !caller.Staff {
		return ledger.Record{}, repository.ErrForbidden
	}
	d, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, err := apply(ctx, id)
	if err != nil {
		return ledger.Record{}, err
	}
	s.notify.after(ctx, s.event(rec, d, 0))
	return rec, nil
}

func (s *TourBookingService) event(rec ledger.Record, d *repository.TourBookingDetail, remaining int) queue.BookingEvent {
	ev := queue.NewBookingEvent(eventFor(rec.Status), rec)
	ev.UserID = d.UserID
	ev.Remaining = remaining
	ev.TotalPriceCents = d.TotalPriceCents
	ev.Reference = d.Reference
	return ev
}
