package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/middleware"
	"github.com/iliyamo/trekker-booking/internal/repository"
	"github.com/iliyamo/trekker-booking/internal/service"
)

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

// caller maps the verified identity onto a service.Caller.  ok is false
// for anonymous requests.
func caller(c echo.Context) (service.Caller, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: id.UserID, Staff: id.Staff}, true
}

func isStaff(c echo.Context) bool {
	id, ok := middleware.CurrentIdentity(c)
	return ok && id.Staff
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// record names the kind of booking in user-facing messages.
type record struct {
	noun string // "reservation" or "booking"
	log  *zap.Logger
}

// transitionMessage renders a rejected status change the way clients have
// always seen it for cancellations.
func (r record) transitionMessage(e *ledger.InvalidTransitionError) string {
	switch {
	case e.Current == ledger.StatusCancelled:
		return fmt.Sprintf("%s is already cancelled", capitalize(r.noun))
	case e.Current == ledger.StatusCompleted && e.Target == ledger.StatusCancelled:
		return fmt.Sprintf("Cannot cancel completed %s", r.noun)
	case e.Current == ledger.StatusConfirmed && e.Target == ledger.StatusConfirmed:
		return fmt.Sprintf("%s is already confirmed", capitalize(r.noun))
	}
	return fmt.Sprintf("Cannot move %s from %s to %s", r.noun, e.Current, e.Target)
}

// fail writes the HTTP response for err.  Rejections become 4xx with the
// messages clients rely on; anything else is logged and hidden behind a
// 500.
func (r record) fail(c echo.Context, err error) error {
	var ve *service.ValidationError
	var ic *ledger.InsufficientCapacityError
	var it *ledger.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &ic):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("Only %d %s available", ic.Available, ic.Pool.Kind.Unit()),
		})
	case errors.As(err, &it):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": r.transitionMessage(it)})
	case errors.Is(err, ledger.ErrContention):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusConflict, echo.Map{"error": "inventory is busy, please retry"})
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	case errors.Is(err, ledger.ErrCapacityInUse):
		return c.JSON(http.StatusConflict, echo.Map{"error": "new total is below the units held by active bookings"})
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ledger.ErrRecordNotFound),
		errors.Is(err, ledger.ErrPoolNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": r.noun + " not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": r.noun + " is still in use"})
	case errors.Is(err, context.Canceled):
		return c.NoContent(499)
	}
	log := r.log
	if log == nil {
		log = zap.NewNop()
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
