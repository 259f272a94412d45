// Package seatmap holds the client-side seat logic of a session page: the
// canonical seat key, the booked-seat set, the user's in-progress selection
// and the render state of every cell of the grid.
package seatmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// ErrInvalidLayout is returned for grids with negative dimensions.
var ErrInvalidLayout = model.ErrInvalidLayout

// Key returns the canonical identity of a seat, "{row}:{seat}".  The
// separator is not a digit, so distinct positions never share a key.
func Key(s model.Seat) string {
	return KeyOf(s.RowNumber, s.SeatNumber)
}

// KeyOf is Key for a bare (row, seat) pair.
func KeyOf(row, seat int) string {
	return strconv.Itoa(row) + ":" + strconv.Itoa(seat)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (model.Seat, error) {
	rowPart, seatPart, ok := strings.Cut(key, ":")
	if !ok {
		return model.Seat{}, fmt.Errorf("seat key %q: missing separator", key)
	}
	row, err := strconv.Atoi(rowPart)
	if err != nil {
		return model.Seat{}, fmt.Errorf("seat key %q: row: %w", key, err)
	}
	seat, err := strconv.Atoi(seatPart)
	if err != nil {
		return model.Seat{}, fmt.Errorf("seat key %q: seat: %w", key, err)
	}
	return model.Seat{RowNumber: row, SeatNumber: seat}, nil
}

// KeySet is a set of seat keys.
type KeySet map[string]struct{}

// Has reports whether key is in the set.  A nil set is empty.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the number of distinct keys.
func (s KeySet) Len() int { return len(s) }

// BuildBookedSet turns the server-provided booked seats into a KeySet,
// dropping duplicates.
func BuildBookedSet(booked []model.Seat) KeySet {
	set := make(KeySet, len(booked))
	for _, s := range booked {
		set[Key(s)] = struct{}{}
	}
	return set
}
