package seatmap

import "github.com/iliyamo/cinema-booking-gateway/internal/model"

// Selection tracks the seats a user has picked but not yet booked for one
// movie session.  It is never persisted.  Selection is not safe for
// concurrent use; the owning client state serialises access.
type Selection struct {
	sessionID int
	seats     []model.Seat
	booked    KeySet
}

// NewSelection returns an empty selection bound to no session.
func NewSelection() *Selection { return &Selection{} }

// Bind makes sessionID the active session and refreshes the booked set used
// to guard toggles.  Switching to a different session clears the selection.
func (s *Selection) Bind(sessionID int, booked KeySet) {
	if s.sessionID != sessionID {
		s.sessionID = sessionID
		s.seats = nil
	}
	s.booked = booked
}

// SessionID returns the session the selection belongs to (0 when unbound).
func (s *Selection) SessionID() int { return s.sessionID }

// Toggle flips membership of (row, seat).  It does nothing for guests and
// for booked seats.  The returned flag reports whether the selection changed.
func (s *Selection) Toggle(authed bool, row, seat int) bool {
	if !authed {
		return false
	}
	key := KeyOf(row, seat)
	if s.booked.Has(key) {
		return false
	}
	for i, picked := range s.seats {
		if Key(picked) == key {
			s.seats = append(s.seats[:i:i], s.seats[i+1:]...)
			return true
		}
	}
	s.seats = append(s.seats, model.Seat{RowNumber: row, SeatNumber: seat})
	return true
}

// Reset clears the selection and keeps the session binding.
func (s *Selection) Reset() { s.seats = nil }

// Len returns the number of selected seats.
func (s *Selection) Len() int { return len(s.seats) }

// Seats returns the selected seats in insertion order.
func (s *Selection) Seats() []model.Seat {
	out := make([]model.Seat, len(s.seats))
	copy(out, s.seats)
	return out
}

// Keys returns the selected seats as a KeySet.
func (s *Selection) Keys() KeySet {
	set := make(KeySet, len(s.seats))
	for _, seat := range s.seats {
		set[Key(seat)] = struct{}{}
	}
	return set
}
