package middleware // package middleware contains the echo middleware of the gateway

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/utils"
)

// AuthMode selects how SessionAuth treats requests without a valid session.
type AuthMode int

const (
	// Optional lets guests through without a client id.
	Optional AuthMode = iota
	// Required answers 401 with a sign-in redirect.
	Required
)

// SessionAuth validates the gateway session token and stores its client id
// in the context under ClientIDKey.  The token is read from the
// Authorization header ("Bearer <jwt>") or, for EventSource clients that
// cannot set headers, from the access_token query parameter.
//
// In Required mode an absent or invalid token yields 401 with
// {"error", "redirect"}, where redirect is the sign-in page returning to
// next.  In Optional mode an invalid token is treated as a guest.
func SessionAuth(secret string, mode AuthMode, next string) echo.MiddlewareFunc {
	return func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw != "" {
				if id, err := utils.ParseSessionToken(secret, raw); err == nil {
					c.Set(ClientIDKey, id)
					return h(c)
				}
			}
			if mode == Required {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":    "authentication required",
					"redirect": booking.AuthRedirect(next),
				})
			}
			return h(c)
		}
	}
}

func bearer(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("access_token")
}
