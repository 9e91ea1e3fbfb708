package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/repository"
	"github.com/iliyamo/trekker-booking/internal/service"
)

// HotelBookings is the reservation workflow behind HotelReservationHandler.
type HotelBookings interface {
	Reserve(ctx context.Context, caller service.Caller, in service.ReserveRoomInput) (*repository.HotelReservationDetail, error)
	Get(ctx context.Context, caller service.Caller, id uint64) (*repository.HotelReservationDetail, error)
	List(ctx context.Context, caller service.Caller, mine bool, orderBy string) ([]repository.HotelReservationDetail, error)
	Cancel(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
	Confirm(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
	Complete(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
}

// HotelReservationHandler serves /api/hotel-reservations.  Every route
// runs behind JWTAuth.
type HotelReservationHandler struct {
	Bookings HotelBookings
	rec      record
}

func NewHotelReservationHandler(bookings HotelBookings, log *zap.Logger) *HotelReservationHandler {
	if bookings == nil {
		panic("nil service passed to NewHotelReservationHandler")
	}
	return &HotelReservationHandler{Bookings: bookings, rec: record{noun: "reservation", log: log}}
}

// Create handles POST /api/hotel-reservations.
func (h *HotelReservationHandler) Create(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var in service.ReserveRoomInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d, err := h.Bookings.Reserve(c.Request().Context(), who, in)
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// List handles GET /api/hotel-reservations.  Staff see every reservation.
// ?ordering=check_in sorts by arrival.
func (h *HotelReservationHandler) List(c echo.Context) error {
	return h.list(c, false)
}

// My handles GET /api/hotel-reservations/my.
func (h *HotelReservationHandler) My(c echo.Context) error {
	return h.list(c, true)
}

func (h *HotelReservationHandler) list(c echo.Context, mine bool) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.Bookings.List(c.Request().Context(), who, mine, c.QueryParam("ordering"))
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/hotel-reservations/:id.
func (h *HotelReservationHandler) Get(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	d, err := h.Bookings.Get(c.Request().Context(), who, id)
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel handles POST /api/hotel-reservations/:id/cancel.
func (h *HotelReservationHandler) Cancel(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Cancel, "Reservation cancelled successfully")
}

// Confirm handles POST /api/hotel-reservations/:id/confirm (staff).
func (h *HotelReservationHandler) Confirm(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Confirm, "Reservation confirmed successfully")
}

// Complete handles POST /api/hotel-reservations/:id/complete (staff).
func (h *HotelReservationHandler) Complete(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Complete, "Reservation completed successfully")
}

type transitionFunc func(context.Context, service.Caller, uint64) (ledger.Record, error)

// runTransition is shared by the hotel and tour handlers.
func runTransition(c echo.Context, rec record, apply transitionFunc, msg string) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, rec.noun)
	}
	r, err := apply(c.Request().Context(), who, id)
	if err != nil {
		return rec.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "status": r.Status})
}
