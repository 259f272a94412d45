package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
	"github.com/iliyamo/cinema-booking-gateway/internal/seatmap"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
)

// ErrSeatOutOfRange is returned when a toggled seat lies outside the hall.
var ErrSeatOutOfRange = errors.New("seat outside the session layout")

// Submit button labels.
const (
	LabelBook   = "Book"
	LabelSignIn = "Sign in to book"
)

// SessionView is everything the seat map page renders.
type SessionView struct {
	Session     model.MovieSessionDetails `json:"session"`
	Grid        []seatmap.Row             `json:"grid"`
	Selected    []model.Seat              `json:"selected"`
	IsAuthed    bool                      `json:"isAuthed"`
	GuestInfo   bool                      `json:"guestInfo"`
	CanSubmit   bool                      `json:"canSubmit"`
	Submitting  bool                      `json:"submitting"`
	SubmitLabel string                    `json:"submitLabel"`
	ActionError string                    `json:"actionError,omitempty"`
}

// SessionDetails returns the cached details of a movie session.
func (a *App) SessionDetails(ctx context.Context, id int) (model.MovieSessionDetails, error) {
	return querycache.Get(ctx, a.cache, keySession(id), []string{keySession(id)},
		func(ctx context.Context) (model.MovieSessionDetails, error) {
			return a.api.MovieSessionDetails(ctx, id)
		})
}

// SessionView binds the client's selection to the session and renders the
// grid.  Opening a different session clears the previous selection.
func (a *App) SessionView(ctx context.Context, c *Client, sessionID int) (SessionView, error) {
	details, err := a.SessionDetails(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	booked := seatmap.BuildBookedSet(details.BookedSeats)

	c.mu.Lock()
	authed := c.token != ""
	c.selection.Bind(sessionID, booked)
	grid, err := seatmap.BuildGrid(details.Seats, booked, c.selection.Keys(), authed)
	selected := c.selection.Seats()
	c.mu.Unlock()
	if err != nil {
		return SessionView{}, fmt.Errorf("session %d: %w", sessionID, err)
	}

	label := LabelSignIn
	if authed {
		label = LabelBook
	}
	return SessionView{
		Session:     details,
		Grid:        grid,
		Selected:    selected,
		IsAuthed:    authed,
		GuestInfo:   !authed,
		CanSubmit:   c.flow.CanSubmit(authed, len(selected)),
		Submitting:  c.flow.State() == booking.StateSubmitting,
		SubmitLabel: label,
		ActionError: c.flow.Message(),
	}, nil
}

// ToggleSeat flips one seat of the client's selection for sessionID and
// returns the updated view.  Guests and booked seats leave it unchanged.
func (a *App) ToggleSeat(ctx context.Context, c *Client, sessionID int, seat model.Seat) (SessionView, error) {
	details, err := a.SessionDetails(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if !details.Seats.Contains(seat) {
		return SessionView{}, fmt.Errorf("seat %s: %w", seatmap.Key(seat), ErrSeatOutOfRange)
	}
	booked := seatmap.BuildBookedSet(details.BookedSeats)

	c.mu.Lock()
	c.selection.Bind(sessionID, booked)
	changed := c.selection.Toggle(c.token != "", seat.RowNumber, seat.SeatNumber)
	c.mu.Unlock()
	a.metrics.SeatToggled(changed)

	return a.SessionView(ctx, c, sessionID)
}

// ResetSelection clears the client's selection for sessionID.
func (a *App) ResetSelection(ctx context.Context, c *Client, sessionID int) (SessionView, error) {
	c.mu.Lock()
	if c.selection.SessionID() == sessionID {
		c.selection.Reset()
	}
	c.mu.Unlock()
	return a.SessionView(ctx, c, sessionID)
}

// SubmitBooking reserves the client's current selection for sessionID.  On
// success the selection is cleared; on failure it is kept for another try.
func (a *App) SubmitBooking(ctx context.Context, c *Client, sessionID int) (booking.Outcome, error) {
	c.mu.Lock()
	authed := c.token != ""
	var seats []model.Seat
	if c.selection.SessionID() == sessionID {
		seats = c.selection.Seats()
	}
	c.mu.Unlock()

	out, err := c.flow.Submit(ctx, booking.Request{Authed: authed, MovieSessionID: sessionID, Seats: seats})
	if err != nil {
		return out, err
	}
	a.metrics.Submission(string(out.Kind))

	switch out.Kind {
	case booking.OutcomeSucceeded:
		c.mu.Lock()
		if c.selection.SessionID() == sessionID {
			c.selection.Reset()
		}
		c.mu.Unlock()
		ev := queue.NewEvent(queue.EventCreated, c.ID)
		ev.BookingID = out.BookingID
		ev.MovieSessionID = sessionID
		ev.Seats = seatKeys(seats)
		a.publish(ctx, ev)
		a.log.Info("booking created", "client_id", c.ID, "booking_id", out.BookingID, "session_id", sessionID, "seats", len(seats))
	case booking.OutcomeFailed:
		if errors.Is(out.Err, upstream.ErrUnauthorized) {
			a.forget(ctx, c)
		}
		ev := queue.NewEvent(queue.EventFailed, c.ID)
		ev.MovieSessionID = sessionID
		ev.Seats = seatKeys(seats)
		ev.Message = out.Err.Error()
		a.publish(ctx, ev)
		a.log.Warn("booking failed", "client_id", c.ID, "session_id", sessionID, "error", out.Err)
	}
	return out, nil
}

func seatKeys(seats []model.Seat) []string {
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = seatmap.Key(s)
	}
	return keys
}

// reserver books with the owning client's token.
type reserver struct {
	api    Backend
	client *Client
}

func (r reserver) BookSeats(ctx context.Context, movieSessionID int, seats []model.Seat) (model.BookingCreated, error) {
	return r.api.BookSeats(ctx, r.client.bearer(), movieSessionID, seats)
}

// invalidator drops the client's bookings and the session's details after a
// booking lands.
type invalidator struct {
	cache    *querycache.Cache
	clientID string
}

func (i invalidator) InvalidateBookings() { i.cache.Invalidate(keyBookings(i.clientID)) }

func (i invalidator) InvalidateSession(movieSessionID int) {
	i.cache.Invalidate(keySession(movieSessionID))
}
