package model

import "time"

// Booking is a seat reservation owned by the booking API.  The gateway only
// ever holds a read-only cached copy per logged-in client.
//
// Fields:
//  ID             – opaque identifier (a UUID upstream).
//  UserID         – owner of the booking.
//  MovieSessionID – showtime the seats belong to.
//  SessionID      – legacy alias of MovieSessionID kept by the API.
//  BookedAt       – creation timestamp as sent by the API.
//  Seats          – reserved seats.
//  IsPaid         – whether payment was confirmed.
type Booking struct {
	ID             string `json:"id"`
	UserID         int    `json:"userId"`
	MovieSessionID int    `json:"movieSessionId"`
	SessionID      int    `json:"sessionId"`
	BookedAt       string `json:"bookedAt"`
	Seats          []Seat `json:"seats"`
	IsPaid         bool   `json:"isPaid"`
}

// CreatedAt parses BookedAt.  ok is false when it cannot be parsed.
func (b Booking) CreatedAt() (t time.Time, ok bool) {
	return ParseTimestamp(b.BookedAt)
}

// BookingCreated is returned by the reserve endpoint.
type BookingCreated struct {
	BookingID string `json:"bookingId"`
}

// PaymentResult is returned by the payment endpoint.
type PaymentResult struct {
	Message string `json:"message"`
}

// Settings carries the global booking configuration.  A zero
// BookingPaymentTimeSeconds disables payment window enforcement.
type Settings struct {
	BookingPaymentTimeSeconds int `json:"bookingPaymentTimeSeconds"`
}

// PaymentWindow returns the grace period as a duration.
func (s Settings) PaymentWindow() time.Duration {
	return time.Duration(s.BookingPaymentTimeSeconds) * time.Second
}
