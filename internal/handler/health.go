package handler // package handler contains the echo handlers of the gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
)

// Health is the liveness endpoint used by load balancers.  Besides "ok" it
// reports the number of tracked clients and whether the countdown clock is
// running.
func Health(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":       "ok",
			"clients":      a.Clients(),
			"clock_active": a.Clock().Active(),
		})
	}
}
