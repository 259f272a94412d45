package model

import "time"

// MovieSession is a single showtime of a movie in a cinema.  StartTime is
// kept as the raw ISO-8601 string received from the API; use StartAt to
// obtain a parsed value.
type MovieSession struct {
	ID        int    `json:"id"`
	MovieID   int    `json:"movieId"`
	CinemaID  int    `json:"cinemaId"`
	StartTime string `json:"startTime"`
}

// StartAt parses StartTime.  ok is false when the value is missing or is not
// a recognised timestamp.
func (s MovieSession) StartAt() (t time.Time, ok bool) {
	return ParseTimestamp(s.StartTime)
}

// MovieSessionDetails extends a session with its seat grid and the seats
// already booked by any user.
type MovieSessionDetails struct {
	MovieSession
	Seats       SeatLayout `json:"seats"`
	BookedSeats []Seat     `json:"bookedSeats"`
}
