package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
)

// TicketsHandler serves the signed-in client's ticket list.  All routes sit
// behind SessionAuth in Required mode.
type TicketsHandler struct {
	App *app.App
	Log *slog.Logger
}

func NewTicketsHandler(a *app.App, log *slog.Logger) *TicketsHandler {
	return &TicketsHandler{App: a, Log: log}
}

// List: GET /v1/me/tickets
func (h *TicketsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	page, err := h.App.Tickets(ctx, cl, time.Now())
	if errors.Is(err, app.ErrUnauthenticated) {
		return signInRequired(c)
	}
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Stream: GET /v1/me/tickets/stream
//
// Server-sent events.  A "tickets" event carrying the full list is sent at
// once and then on every clock tick until the client disconnects.  The
// clock only ticks while at least one stream is open.
func (h *TicketsHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !cl.Authed() {
		return signInRequired(c)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticks, stop := h.App.Clock().Subscribe()
	defer stop()
	h.App.Metrics().StreamOpened()
	defer h.App.Metrics().StreamClosed()

	// send reports false once the stream should end.
	send := func(now time.Time) bool {
		page, err := h.App.Tickets(ctx, cl, now)
		switch {
		case errors.Is(err, app.ErrUnauthenticated):
			writeEvent(w, "auth", echo.Map{"redirect": booking.AuthRedirect(booking.TicketsPath)})
			return false
		case err != nil:
			if ctx.Err() != nil {
				return false
			}
			status, msg := classify(err)
			writeEvent(w, "error", echo.Map{"error": msg, "status": status})
			return true
		}
		writeEvent(w, "tickets", page)
		return true
	}

	if !send(time.Now()) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticks:
			if !send(now) {
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	w.Flush()
}

// Pay: POST /v1/bookings/:id/payments
func (h *TicketsHandler) Pay(c echo.Context) error {
	raw := c.Param("id")
	if _, err := uuid.Parse(raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	res, err := h.App.PayBooking(ctx, cl, raw)
	if errors.Is(err, app.ErrUnauthenticated) {
		return signInRequired(c)
	}
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// signInRequired answers like SessionAuth does for a client whose upstream
// token is gone.
func signInRequired(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":    "authentication required",
		"redirect": booking.AuthRedirect(booking.TicketsPath),
	})
}
