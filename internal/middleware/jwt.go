package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trekker-booking/internal/utils"
)

var errNoToken = errors.New("missing bearer token")

// JWTAuth validates the HS256 bearer token and stores the caller's
// Identity in the context.  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := verify(c, secret)
			if errors.Is(err, errNoToken) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for public routes: an absent token passes through
// anonymously, a present but invalid one is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := verify(c, secret)
			switch {
			case errors.Is(err, errNoToken):
			case err != nil:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			default:
				setIdentity(c, id)
			}
			return next(c)
		}
	}
}

func verify(c echo.Context, secret string) (Identity, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return Identity{}, errNoToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

	var claims utils.AccessClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Identity{}, errors.Join(errors.New("invalid token"), err)
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, errors.New("invalid subject")
	}
	return Identity{UserID: uid, Role: claims.Role, Staff: claims.Staff}, nil
}
