package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
	"github.com/iliyamo/cinema-booking-gateway/internal/seatmap"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
)

// writeError maps service errors onto HTTP responses.  Anything that came
// back from the booking API is a bad gateway unless it names a missing
// resource.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	status, msg := classify(err)
	if status >= 500 {
		log.ErrorContext(c.Request().Context(), "request failed", "path", c.Request().URL.Path, "error", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func classify(err error) (int, string) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, app.ErrSeatOutOfRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booking.ErrSubmitInFlight):
		return http.StatusConflict, "a booking is already being submitted"
	case errors.Is(err, querycache.ErrPendingTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream is taking too long"
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, seatmap.ErrInvalidLayout):
		return http.StatusBadGateway, "upstream returned an invalid seat layout"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream request failed"
	}
	return http.StatusBadGateway, "upstream unavailable"
}
