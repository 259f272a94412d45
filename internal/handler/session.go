package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/middleware"
	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// SessionHandler serves the seat map of a movie session.  Guests may view
// it; selecting and booking require a signed-in client.
type SessionHandler struct {
	App *app.App
	Log *slog.Logger
}

func NewSessionHandler(a *app.App, log *slog.Logger) *SessionHandler {
	return &SessionHandler{App: a, Log: log}
}

type toggleReq struct {
	RowNumber  int `json:"rowNumber" validate:"required,min=1"`
	SeatNumber int `json:"seatNumber" validate:"required,min=1"`
}

// Show: GET /v1/sessions/:id
func (h *SessionHandler) Show(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := h.App.SessionView(ctx, cl, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Toggle: POST /v1/sessions/:id/seats/toggle {rowNumber, seatNumber}
func (h *SessionHandler) Toggle(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req toggleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := h.App.ToggleSeat(ctx, cl, id, model.Seat{RowNumber: req.RowNumber, SeatNumber: req.SeatNumber})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Reset: DELETE /v1/sessions/:id/selection
func (h *SessionHandler) Reset(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := h.App.ResetSelection(ctx, cl, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Submit: POST /v1/sessions/:id/bookings
//
//	200 succeeded or noop, 401 guest (with redirect), 409 already
//	submitting, 422 the reservation failed.
func (h *SessionHandler) Submit(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	cl, err := currentClient(ctx, c, h.App)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out, err := h.App.SubmitBooking(ctx, cl, id)
	if errors.Is(err, booking.ErrSubmitInFlight) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "a booking is already being submitted"})
	}
	if err != nil {
		return writeError(c, h.Log, err)
	}
	switch out.Kind {
	case booking.OutcomeAuthRequired:
		return c.JSON(http.StatusUnauthorized, out)
	case booking.OutcomeFailed:
		return c.JSON(http.StatusUnprocessableEntity, out)
	}
	return c.JSON(http.StatusOK, out)
}

// currentClient returns the state of the signed-in client, or a throwaway
// guest state when the request carries no session.
func currentClient(ctx context.Context, c echo.Context, a *app.App) (*app.Client, error) {
	id := middleware.ClientID(c)
	if id == "" {
		return a.Guest(), nil
	}
	return a.Client(ctx, id)
}
