package model

import "errors"

// ErrInvalidLayout is returned when a seat layout carries negative
// dimensions.  Layouts are rejected rather than clamped so that a malformed
// upstream payload surfaces as an error instead of an empty grid.
var ErrInvalidLayout = errors.New("invalid seat layout")

// Seat identifies a seat in a session's hall purely by position.  There is
// no separate seat id; two seats are the same seat iff both numbers match.
//
// Fields:
//  RowNumber  – 1-based row index.
//  SeatNumber – 1-based seat index within the row.
type Seat struct {
	RowNumber  int `json:"rowNumber"`  // row, counted from the screen
	SeatNumber int `json:"seatNumber"` // seat within the row
}

// SeatLayout holds the grid dimensions of a specific showtime.
//
// Fields:
//  Rows        – number of rows (>= 0).
//  SeatsPerRow – number of seats in every row (>= 0).
type SeatLayout struct {
	Rows        int `json:"rows"`
	SeatsPerRow int `json:"seatsPerRow"`
}

// Validate reports ErrInvalidLayout when either dimension is negative.
func (l SeatLayout) Validate() error {
	if l.Rows < 0 || l.SeatsPerRow < 0 {
		return ErrInvalidLayout
	}
	return nil
}

// Contains reports whether the seat lies inside the grid.
func (l SeatLayout) Contains(s Seat) bool {
	return s.RowNumber >= 1 && s.RowNumber <= l.Rows &&
		s.SeatNumber >= 1 && s.SeatNumber <= l.SeatsPerRow
}
