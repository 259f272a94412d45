// Package booking implements the seat reservation submission flow of a
// session page: gating on authentication and selection, one atomic reserve
// call, and the resulting navigation or error.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission of the same client has not completed yet.
var ErrSubmitInFlight = errors.New("booking submission already in progress")

// FailureMessage is shown to the user when the reserve call fails for any
// reason, seat conflicts included.
const FailureMessage = "Could not book the seats. They may already be taken."

// TicketsPath is where a successful submission navigates to.
const TicketsPath = "/my-tickets"

// State is the position of the flow in Idle -> Submitting -> {Succeeded |
// Failed} -> Idle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// OutcomeKind classifies the result of Submit.
type OutcomeKind string

const (
	OutcomeAuthRequired OutcomeKind = "auth_required"
	OutcomeNoop         OutcomeKind = "noop"
	OutcomeSucceeded    OutcomeKind = "succeeded"
	OutcomeFailed       OutcomeKind = "failed"
)

// Reserver commits a seat selection for a movie session.
type Reserver interface {
	BookSeats(ctx context.Context, movieSessionID int, seats []model.Seat) (model.BookingCreated, error)
}

// Invalidator drops cached data made stale by a new booking.
type Invalidator interface {
	InvalidateBookings()
	InvalidateSession(movieSessionID int)
}

// Request is one submission attempt.
type Request struct {
	Authed         bool
	MovieSessionID int
	Seats          []model.Seat
}

// Outcome tells the caller what to do next.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Redirect  string      `json:"redirect,omitempty"`
	BookingID string      `json:"bookingId,omitempty"`
	Message   string      `json:"message,omitempty"`
	Err       error       `json:"-"`
}

// Flow is the per-client submission state machine.
type Flow struct {
	reserver    Reserver
	invalidator Invalidator

	mu      sync.Mutex
	state   State
	message string
}

// NewFlow returns an idle flow.  invalidator may be nil.
func NewFlow(r Reserver, inv Invalidator) *Flow {
	return &Flow{reserver: r, invalidator: inv, state: StateIdle}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message returns the user-facing error of the last failed submission, or
// "" when the last attempt did not fail.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// ClearMessage drops the last failure message.
func (f *Flow) ClearMessage() {
	f.mu.Lock()
	f.message = ""
	f.mu.Unlock()
}

// CanSubmit reports whether the submit action should be enabled.  Guests
// may always press it; it takes them to sign in.
func (f *Flow) CanSubmit(authed bool, selected int) bool {
	if f.State() == StateSubmitting {
		return false
	}
	return !authed || selected > 0
}

// Submit validates the request and, when allowed, issues a single reserve
// call for the whole selection.
//
// Failures keep the caller's selection untouched and do not refresh the
// booked seats of the session: occupancy may stay stale until the user
// reloads the seat map.  The grid is not changed under the user mid-pick.
func (f *Flow) Submit(ctx context.Context, req Request) (Outcome, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return Outcome{}, ErrSubmitInFlight
	}
	f.message = ""
	if !req.Authed {
		f.mu.Unlock()
		return Outcome{Kind: OutcomeAuthRequired, Redirect: AuthRedirect(SessionPath(req.MovieSessionID))}, nil
	}
	if len(req.Seats) == 0 {
		f.mu.Unlock()
		return Outcome{Kind: OutcomeNoop}, nil
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	created, err := f.reserver.BookSeats(ctx, req.MovieSessionID, req.Seats)

	f.mu.Lock()
	defer func() {
		f.state = StateIdle
		f.mu.Unlock()
	}()
	if err != nil {
		f.state = StateFailed
		f.message = FailureMessage
		return Outcome{
			Kind:    OutcomeFailed,
			Message: FailureMessage,
			Err:     fmt.Errorf("book seats for session %d: %w", req.MovieSessionID, err),
		}, nil
	}
	f.state = StateSucceeded
	if f.invalidator != nil {
		f.invalidator.InvalidateBookings()
		f.invalidator.InvalidateSession(req.MovieSessionID)
	}
	return Outcome{Kind: OutcomeSucceeded, Redirect: TicketsPath, BookingID: created.BookingID}, nil
}

// SessionPath is the browser path of a session's seat map.
func SessionPath(movieSessionID int) string {
	return fmt.Sprintf("/sessions/%d", movieSessionID)
}

// AuthRedirect builds the sign-in entry point that returns to next.
func AuthRedirect(next string) string {
	return "/auth?next=" + url.QueryEscape(next)
}
