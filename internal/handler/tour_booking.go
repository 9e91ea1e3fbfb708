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

type TourBookings interface {
	Book(ctx context.Context, caller service.Caller, in service.BookTourInput) (*repository.TourBookingDetail, error)
	Get(ctx context.Context, caller service.Caller, id uint64) (*repository.TourBookingDetail, error)
	List(ctx context.Context, caller service.Caller, mine bool) ([]repository.TourBookingDetail, error)
	Cancel(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
	Confirm(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
	Complete(ctx context.Context, caller service.Caller, id uint64) (ledger.Record, error)
}

// TourBookingHandler serves /api/tour-bookings.
type TourBookingHandler struct {
	Bookings TourBookings
	rec      record
}

func NewTourBookingHandler(bookings TourBookings, log *zap.Logger) *TourBookingHandler {
	if bookings == nil {
		panic("nil service passed to NewTourBookingHandler")
	}
	return &TourBookingHandler{Bookings: bookings, rec: record{noun: "booking", log: log}}
}

func (h *TourBookingHandler) Create(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var in service.BookTourInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.Book(c.Request().Context(), who, in)
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *TourBookingHandler) List(c echo.Context) error { return h.list(c, false) }

func (h *TourBookingHandler) My(c echo.Context) error { return h.list(c, true) }

func (h *TourBookingHandler) list(c echo.Context, mine bool) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.Bookings.List(c.Request().Context(), who, mine)
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TourBookingHandler) Get(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	b, err := h.Bookings.Get(c.Request().Context(), who, id)
	if err != nil {
		return h.rec.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *TourBookingHandler) Cancel(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Cancel, "Booking cancelled successfully")
}

func (h *TourBookingHandler) Confirm(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Confirm, "Booking confirmed successfully")
}

func (h *TourBookingHandler) Complete(c echo.Context) error {
	return runTransition(c, h.rec, h.Bookings.Complete, "Booking completed successfully")
}
