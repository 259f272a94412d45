package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

func bound(sessionID int, booked ...model.Seat) *Selection {
	s := NewSelection()
	s.Bind(sessionID, BuildBookedSet(booked))
	return s
}

func TestToggle_AddThenRemoveIsIdentity(t *testing.T) {
	s := bound(1)
	assert.True(t, s.Toggle(true, 2, 3))
	assert.Equal(t, []model.Seat{{RowNumber: 2, SeatNumber: 3}}, s.Seats())

	assert.True(t, s.Toggle(true, 2, 3))
	assert.Empty(t, s.Seats())
}

func TestToggle_KeepsInsertionOrder(t *testing.T) {
	s := bound(1)
	s.Toggle(true, 2, 3)
	s.Toggle(true, 1, 2)
	s.Toggle(true, 1, 5)
	s.Toggle(true, 1, 2)

	assert.Equal(t, []model.Seat{
		{RowNumber: 2, SeatNumber: 3},
		{RowNumber: 1, SeatNumber: 5},
	}, s.Seats())
}

func TestToggle_GuestIsNoop(t *testing.T) {
	s := bound(1)
	assert.False(t, s.Toggle(false, 1, 2))
	assert.Zero(t, s.Len())
}

func TestToggle_BookedSeatIsNoop(t *testing.T) {
	s := bound(1, model.Seat{RowNumber: 1, SeatNumber: 1})
	assert.False(t, s.Toggle(true, 1, 1))
	assert.Zero(t, s.Len())
}

func TestBind_SessionChangeResets(t *testing.T) {
	s := bound(1)
	s.Toggle(true, 1, 2)

	s.Bind(1, nil)
	assert.Equal(t, 1, s.Len(), "same session keeps the picks")

	s.Bind(2, nil)
	assert.Zero(t, s.Len())
	assert.Equal(t, 2, s.SessionID())
}

func TestSeats_ReturnsCopy(t *testing.T) {
	s := bound(1)
	s.Toggle(true, 1, 1)
	out := s.Seats()
	out[0].RowNumber = 9
	assert.Equal(t, 1, s.Seats()[0].RowNumber)
}

func TestReset(t *testing.T) {
	s := bound(4)
	s.Toggle(true, 1, 1)
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Equal(t, 4, s.SessionID())
}
