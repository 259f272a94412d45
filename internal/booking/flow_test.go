package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

type fakeReserver struct {
	mu      sync.Mutex
	calls   [][]model.Seat
	err     error
	id      string
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeReserver) BookSeats(_ context.Context, _ int, seats []model.Seat) (model.BookingCreated, error) {
	f.mu.Lock()
	f.calls = append(f.calls, seats)
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return model.BookingCreated{}, f.err
	}
	return model.BookingCreated{BookingID: f.id}, nil
}

type fakeInvalidator struct {
	bookings int
	sessions []int
}

func (f *fakeInvalidator) InvalidateBookings()      { f.bookings++ }
func (f *fakeInvalidator) InvalidateSession(id int) { f.sessions = append(f.sessions, id) }

var twoSeats = []model.Seat{{RowNumber: 1, SeatNumber: 2}, {RowNumber: 2, SeatNumber: 3}}

func TestSubmit_GuestRedirectsWithoutNetwork(t *testing.T) {
	r := &fakeReserver{}
	f := NewFlow(r, nil)

	out, err := f.Submit(context.Background(), Request{Authed: false, MovieSessionID: 42, Seats: twoSeats})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAuthRequired, out.Kind)
	assert.Equal(t, "/auth?next=%2Fsessions%2F42", out.Redirect)
	assert.Contains(t, out.Redirect, "sessions%2F42")
	assert.Empty(t, r.calls)
}

func TestSubmit_EmptySelectionIsNoop(t *testing.T) {
	r := &fakeReserver{}
	f := NewFlow(r, nil)

	out, err := f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, out.Kind)
	assert.Empty(t, r.calls)
	assert.Equal(t, StateIdle, f.State())
}

func TestSubmit_SuccessInvalidatesAndNavigates(t *testing.T) {
	r := &fakeReserver{id: "b-1"}
	inv := &fakeInvalidator{}
	f := NewFlow(r, inv)

	out, err := f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 7, Seats: twoSeats})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, out.Kind)
	assert.Equal(t, TicketsPath, out.Redirect)
	assert.Equal(t, "b-1", out.BookingID)

	require.Len(t, r.calls, 1)
	assert.Equal(t, twoSeats, r.calls[0])
	assert.Equal(t, 1, inv.bookings)
	assert.Equal(t, []int{7}, inv.sessions)
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, f.Message())
}

func TestSubmit_FailureKeepsMessageAndSkipsInvalidation(t *testing.T) {
	r := &fakeReserver{err: errors.New("409 seats taken")}
	inv := &fakeInvalidator{}
	f := NewFlow(r, inv)

	out, err := f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 7, Seats: twoSeats})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.Equal(t, FailureMessage, out.Message)
	assert.Error(t, out.Err)
	assert.Equal(t, FailureMessage, f.Message())
	assert.Zero(t, inv.bookings)
	assert.Empty(t, inv.sessions)
	assert.Equal(t, StateIdle, f.State())

	r.err = nil
	_, err = f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 7, Seats: twoSeats})
	require.NoError(t, err)
	assert.Empty(t, f.Message(), "a new attempt clears the previous error")
}

func TestSubmit_RejectsDoubleSubmit(t *testing.T) {
	r := &fakeReserver{block: make(chan struct{}), entered: make(chan struct{})}
	f := NewFlow(r, nil)

	done := make(chan Outcome)
	go func() {
		out, _ := f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 1, Seats: twoSeats})
		done <- out
	}()
	<-r.entered

	assert.Equal(t, StateSubmitting, f.State())
	assert.False(t, f.CanSubmit(true, 2))
	_, err := f.Submit(context.Background(), Request{Authed: true, MovieSessionID: 1, Seats: twoSeats})
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(r.block)
	out := <-done
	assert.Equal(t, OutcomeSucceeded, out.Kind)
	assert.Len(t, r.calls, 1)
}

func TestCanSubmit(t *testing.T) {
	f := NewFlow(&fakeReserver{}, nil)
	assert.True(t, f.CanSubmit(false, 0), "guests are sent to sign in")
	assert.False(t, f.CanSubmit(true, 0))
	assert.True(t, f.CanSubmit(true, 1))
}
