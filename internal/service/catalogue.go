package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/model"
)

type HotelWriter interface {
	GetByID(ctx context.Context, id uint64) (*model.Hotel, error)
	Create(ctx context.Context, h *model.Hotel) error
	Update(ctx context.Context, h *model.Hotel) error
	Deactivate(ctx context.Context, id uint64) error
}

type RoomWriter interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	Create(ctx context.Context, rm *model.Room) error
	UpdateDetails(ctx context.Context, rm *model.Room) error
	Delete(ctx context.Context, id uint64) error
}

type TourWriter interface {
	GetByID(ctx context.Context, id uint64) (*model.Tour, error)
	Create(ctx context.Context, t *model.Tour) error
	UpdateDetails(ctx context.Context, t *model.Tour) error
	Deactivate(ctx context.Context, id uint64) error
}

// Resizer changes a pool's total under the ledger's pool lock.
type Resizer interface {
	Resize(ctx context.Context, poolID uint64, total int) (ledger.Pool, error)
}

// CatalogueService applies staff edits to hotels, rooms and tours.  Pool
// totals are never written directly: they go through the ledger so that
// units held by active bookings are preserved.
type CatalogueService struct {
	hotels    HotelWriter
	rooms     RoomWriter
	tours     TourWriter
	roomPools Resizer
	tourPools Resizer
	cache     Invalidator
	log       *zap.Logger
}

func NewCatalogueService(hotels HotelWriter, rooms RoomWriter, tours TourWriter,
	roomPools, tourPools Resizer, cache Invalidator, log *zap.Logger) *CatalogueService {
	if hotels == nil || rooms == nil || tours == nil || roomPools == nil || tourPools == nil {
		panic("service.NewCatalogueService: nil dependency")
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogueService{
		hotels:    hotels,
		rooms:     rooms,
		tours:     tours,
		roomPools: roomPools,
		tourPools: tourPools,
		cache:     cache,
		log:       log.Named("catalogue"),
	}
}

func (s *CatalogueService) invalidate(ctx context.Context, groups ...string) {
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), groups...); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("groups", groups), zap.Error(err))
	}
}

func validateHotel(h *model.Hotel) error {
	h.Name = strings.TrimSpace(h.Name)
	switch {
	case h.Name == "":
		return invalid("name", "This field is required.")
	case strings.TrimSpace(h.City) == "":
		return invalid("city", "This field is required.")
	case strings.TrimSpace(h.Country) == "":
		return invalid("country", "This field is required.")
	case h.StarRating < 1 || h.StarRating > 5:
		return invalid("star_rating", "Star rating must be between 1 and 5.")
	}
	return nil
}

func (s *CatalogueService) CreateHotel(ctx context.Context, h *model.Hotel) error {
	if err := validateHotel(h); err != nil {
		return err
	}
	if err := s.hotels.Create(ctx, h); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels)
	return nil
}

func (s *CatalogueService) UpdateHotel(ctx context.Context, h *model.Hotel) error {
	if err := validateHotel(h); err != nil {
		return err
	}
	if _, err := s.hotels.GetByID(ctx, h.ID); err != nil {
		return err
	}
	if err := s.hotels.Update(ctx, h); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels)
	return nil
}

// DeactivateHotel hides the hotel from listings.  Its rooms and
// reservations stay intact.
func (s *CatalogueService) DeactivateHotel(ctx context.Context, id uint64) error {
	if err := s.hotels.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels, cacheRooms)
	return nil
}

func validateRoom(rm *model.Room) error {
	switch {
	case !model.ValidRoomType(rm.RoomType):
		return invalid("room_type", "%q is not a valid choice.", rm.RoomType)
	case rm.PricePerNightCents < 0:
		return invalid("price_per_night_cents", "Ensure this value is greater than or equal to 0.")
	case rm.Capacity < 1:
		return invalid("capacity", "Ensure this value is greater than or equal to 1.")
	}
	return nil
}

// CreateRoom adds a room type to an existing hotel with all units free.
func (s *CatalogueService) CreateRoom(ctx context.Context, rm *model.Room) error {
	if err := validateRoom(rm); err != nil {
		return err
	}
	if rm.TotalRooms < 1 {
		return invalid("total_rooms", "Ensure this value is greater than or equal to 1.")
	}
	if _, err := s.hotels.GetByID(ctx, rm.HotelID); err != nil {
		return notFoundAs(err, "hotel_id", "Hotel does not exist.")
	}
	if err := s.rooms.Create(ctx, rm); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels, cacheRooms)
	return nil
}

// UpdateRoom edits the descriptive fields and, when totalRooms is set,
// resizes the room pool first.
func (s *CatalogueService) UpdateRoom(ctx context.Context, rm *model.Room, totalRooms *int) error {
	if err := validateRoom(rm); err != nil {
		return err
	}
	cur, err := s.rooms.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	if totalRooms != nil && *totalRooms != cur.TotalRooms {
		if _, err := s.roomPools.Resize(ctx, rm.ID, *totalRooms); err != nil {
			return err
		}
	}
	if err := s.rooms.UpdateDetails(ctx, rm); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels, cacheRooms)
	return nil
}

func (s *CatalogueService) DeleteRoom(ctx context.Context, id uint64) error {
	if err := s.rooms.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheHotels, cacheRooms)
	return nil
}

func validateTour(t *model.Tour) error {
	t.Name = strings.TrimSpace(t.Name)
	switch {
	case t.Name == "":
		return invalid("name", "This field is required.")
	case strings.TrimSpace(t.Destination) == "":
		return invalid("destination", "This field is required.")
	case t.DurationDays < 1:
		return invalid("duration_days", "Ensure this value is greater than or equal to 1.")
	case t.PricePerPersonCents < 0:
		return invalid("price_per_person_cents", "Ensure this value is greater than or equal to 0.")
	case t.StartDate.IsZero() || t.EndDate.IsZero():
		return invalid("start_date", "Start and end dates are required.")
	case t.EndDate.Before(t.StartDate.Time):
		return invalid("end_date", "End date must not be before start date.")
	}
	return nil
}

func (s *CatalogueService) CreateTour(ctx context.Context, t *model.Tour) error {
	if err := validateTour(t); err != nil {
		return err
	}
	if t.MaxParticipants < 1 {
		return invalid("max_participants", "Ensure this value is greater than or equal to 1.")
	}
	if err := s.tours.Create(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, cacheTours)
	return nil
}

// UpdateTour edits the tour and, when maxParticipants is set, resizes the
// tour pool first.
func (s *CatalogueService) UpdateTour(ctx context.Context, t *model.Tour, maxParticipants *int) error {
	if err := validateTour(t); err != nil {
		return err
	}
	cur, err := s.tours.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if maxParticipants != nil && *maxParticipants != cur.MaxParticipants {
		if _, err := s.tourPools.Resize(ctx, t.ID, *maxParticipants); err != nil {
			return err
		}
	}
	if err := s.tours.UpdateDetails(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, cacheTours)
	return nil
}

func (s *CatalogueService) DeactivateTour(ctx context.Context, id uint64) error {
	if err := s.tours.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheTours)
	return nil
}
