package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	ctxIdentity = "identity"
	ctxUserID   = "user_id"
	ctxRole     = "role"
)

// Identity is the verified caller.  Staff callers see and act on every
// booking and may edit the catalogue.
type Identity struct {
	UserID uint64
	Role   string
	Staff  bool
}

// CurrentIdentity returns the caller verified by an earlier JWT
// middleware, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(ctxIdentity).(Identity)
	return id, ok
}

func setIdentity(c echo.Context, id Identity) {
	c.Set(ctxIdentity, id)
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, id.Role)
}

// userKey is the caller's ID for rate limit keys, "anon" when unknown.
func userKey(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
