package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

type HotelQuerier interface {
	List(ctx context.Context, f repository.HotelFilter) ([]repository.HotelSummary, error)
	GetByID(ctx context.Context, id uint64) (*model.Hotel, error)
}

type RoomQuerier interface {
	List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error)
	ListByHotel(ctx context.Context, hotelID uint64, availableOnly bool) ([]model.Room, error)
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

type TourQuerier interface {
	List(ctx context.Context, f repository.TourFilter) ([]model.Tour, error)
	GetByID(ctx context.Context, id uint64) (*model.Tour, error)
}

// CatalogueEditor applies staff edits; see service.CatalogueService.
type CatalogueEditor interface {
	CreateHotel(ctx context.Context, h *model.Hotel) error
	UpdateHotel(ctx context.Context, h *model.Hotel) error
	DeactivateHotel(ctx context.Context, id uint64) error
	CreateRoom(ctx context.Context, rm *model.Room) error
	UpdateRoom(ctx context.Context, rm *model.Room, totalRooms *int) error
	DeleteRoom(ctx context.Context, id uint64) error
	CreateTour(ctx context.Context, t *model.Tour) error
	UpdateTour(ctx context.Context, t *model.Tour, maxParticipants *int) error
	DeactivateTour(ctx context.Context, id uint64) error
}

// CatalogueHandler serves hotels, rooms and tours.  Reads are public;
// writes are mounted behind RequireStaff.
type CatalogueHandler struct {
	Hotels HotelQuerier
	Rooms  RoomQuerier
	Tours  TourQuerier
	Editor CatalogueEditor
	hotel  record
	room   record
	tour   record
	now    func() time.Time
}

func NewCatalogueHandler(hotels HotelQuerier, rooms RoomQuerier, tours TourQuerier, editor CatalogueEditor, log *zap.Logger) *CatalogueHandler {
	if hotels == nil || rooms == nil || tours == nil || editor == nil {
		panic("nil dependency passed to NewCatalogueHandler")
	}
	return &CatalogueHandler{
		Hotels: hotels,
		Rooms:  rooms,
		Tours:  tours,
		Editor: editor,
		hotel:  record{noun: "hotel", log: log},
		room:   record{noun: "room", log: log},
		tour:   record{noun: "tour", log: log},
		now:    time.Now,
	}
}

// ListHotels handles GET /api/hotels and /api/hotels/search.
func (h *CatalogueHandler) ListHotels(c echo.Context) error {
	f := repository.HotelFilter{
		City:    strings.TrimSpace(c.QueryParam("city")),
		Country: strings.TrimSpace(c.QueryParam("country")),
		Q:       strings.TrimSpace(c.QueryParam("q")),
	}
	if v := c.QueryParam("star_rating"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "star_rating must be between 1 and 5"})
		}
		f.StarRating = n
	}
	out, err := h.Hotels.List(c.Request().Context(), f)
	if err != nil {
		return h.hotel.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type hotelDetail struct {
	model.Hotel
	AmenitiesList []string     `json:"amenities_list"`
	Rooms         []model.Room `json:"rooms"`
}

// GetHotel handles GET /api/hotels/:id.  The detail embeds all rooms.
func (h *CatalogueHandler) GetHotel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "hotel")
	}
	ctx := c.Request().Context()
	ht, err := h.Hotels.GetByID(ctx, id)
	if err != nil {
		return h.hotel.fail(c, err)
	}
	rooms, err := h.Rooms.ListByHotel(ctx, id, false)
	if err != nil {
		return h.hotel.fail(c, err)
	}
	return c.JSON(http.StatusOK, hotelDetail{Hotel: *ht, AmenitiesList: ht.AmenitiesList(), Rooms: rooms})
}

// HotelRooms handles GET /api/hotels/:id/rooms: rooms that can still be
// booked.
func (h *CatalogueHandler) HotelRooms(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "hotel")
	}
	ctx := c.Request().Context()
	if _, err := h.Hotels.GetByID(ctx, id); err != nil {
		return h.hotel.fail(c, err)
	}
	rooms, err := h.Rooms.ListByHotel(ctx, id, true)
	if err != nil {
		return h.room.fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *CatalogueHandler) CreateHotel(c echo.Context) error {
	var ht model.Hotel
	if err := c.Bind(&ht); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Editor.CreateHotel(c.Request().Context(), &ht); err != nil {
		return h.hotel.fail(c, err)
	}
	return c.JSON(http.StatusCreated, ht)
}

func (h *CatalogueHandler) UpdateHotel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "hotel")
	}
	var ht model.Hotel
	if err := c.Bind(&ht); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ht.ID = id
	if err := h.Editor.UpdateHotel(c.Request().Context(), &ht); err != nil {
		return h.hotel.fail(c, err)
	}
	return c.JSON(http.StatusOK, ht)
}

// DeleteHotel deactivates the hotel; nothing is removed.
func (h *CatalogueHandler) DeleteHotel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "hotel")
	}
	if err := h.Editor.DeactivateHotel(c.Request().Context(), id); err != nil {
		return h.hotel.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRooms handles GET /api/rooms?hotel_id=&available=true&room_type=.
func (h *CatalogueHandler) ListRooms(c echo.Context) error {
	var f repository.RoomFilter
	if v := c.QueryParam("hotel_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badID(c, "hotel")
		}
		f.HotelID = n
	}
	f.Available = truthy(c.QueryParam("available"))
	if v := strings.ToUpper(strings.TrimSpace(c.QueryParam("room_type"))); v != "" {
		if !model.ValidRoomType(v) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown room_type"})
		}
		f.RoomType = v
	}
	out, err := h.Rooms.List(c.Request().Context(), f)
	if err != nil {
		return h.room.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogueHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "room")
	}
	rm, err := h.Rooms.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.room.fail(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *CatalogueHandler) CreateRoom(c echo.Context) error {
	var rm model.Room
	if err := c.Bind(&rm); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Editor.CreateRoom(c.Request().Context(), &rm); err != nil {
		return h.room.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rm)
}

// roomUpdate carries total_rooms separately so that an absent field
// leaves the pool alone.
type roomUpdate struct {
	RoomType           string `json:"room_type"`
	Description        string `json:"description"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Capacity           int    `json:"capacity"`
	TotalRooms         *int   `json:"total_rooms"`
}

func (h *CatalogueHandler) UpdateRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "room")
	}
	var body roomUpdate
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rm := model.Room{
		ID:                 id,
		RoomType:           body.RoomType,
		Description:        body.Description,
		PricePerNightCents: body.PricePerNightCents,
		Capacity:           body.Capacity,
	}
	if err := h.Editor.UpdateRoom(c.Request().Context(), &rm, body.TotalRooms); err != nil {
		return h.room.fail(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

// DeleteRoom refuses with 409 while active reservations hold the room.
func (h *CatalogueHandler) DeleteRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "room")
	}
	if err := h.Editor.DeleteRoom(c.Request().Context(), id); err != nil {
		return h.room.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type tourView struct {
	model.Tour
	IncludedServicesList []string `json:"included_services_list"`
}

// ListTours handles GET /api/tours and /api/tours/search.  The list view
// shows at most three included services per tour.
func (h *CatalogueHandler) ListTours(c echo.Context) error {
	f := repository.TourFilter{
		Destination: strings.TrimSpace(c.QueryParam("destination")),
		Q:           strings.TrimSpace(c.QueryParam("q")),
	}
	if truthy(c.QueryParam("available")) {
		f.Available = true
		f.Today = model.NewDate(h.now())
	}
	for param, dst := range map[string]**model.Date{"start_date": &f.StartFrom, "end_date": &f.EndBy} {
		v := c.QueryParam(param)
		if v == "" {
			continue
		}
		d, err := model.ParseDate(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": param + " must be YYYY-MM-DD"})
		}
		*dst = &d
	}
	tours, err := h.Tours.List(c.Request().Context(), f)
	if err != nil {
		return h.tour.fail(c, err)
	}
	out := make([]tourView, 0, len(tours))
	for _, t := range tours {
		services := t.IncludedServicesList()
		if len(services) > 3 {
			services = services[:3]
		}
		out = append(out, tourView{Tour: t, IncludedServicesList: services})
	}
	return c.JSON(http.StatusOK, out)
}

// GetTour handles GET /api/tours/:id.  Inactive tours are visible to
// staff only.
func (h *CatalogueHandler) GetTour(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "tour")
	}
	t, err := h.Tours.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.tour.fail(c, err)
	}
	if !t.IsActive && !isStaff(c) {
		return h.tour.fail(c, repository.ErrNotFound)
	}
	return c.JSON(http.StatusOK, tourView{Tour: *t, IncludedServicesList: t.IncludedServicesList()})
}

func (h *CatalogueHandler) CreateTour(c echo.Context) error {
	var t model.Tour
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Editor.CreateTour(c.Request().Context(), &t); err != nil {
		return h.tour.fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

type tourUpdate struct {
	model.Tour
	MaxParticipants *int `json:"max_participants"`
}

func (h *CatalogueHandler) UpdateTour(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "tour")
	}
	var body tourUpdate
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	t := body.Tour
	t.ID = id
	if err := h.Editor.UpdateTour(c.Request().Context(), &t, body.MaxParticipants); err != nil {
		return h.tour.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogueHandler) DeleteTour(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "tour")
	}
	if err := h.Editor.DeactivateTour(c.Request().Context(), id); err != nil {
		return h.tour.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
