// Package queue carries booking lifecycle events over RabbitMQ: the payload,
// the publisher used by the gateway and the consumer that writes them to
// logs/booking.log.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// QueueName is the durable queue booking events are published to.
const QueueName = "booking.events"

// EventType names a booking lifecycle transition.
type EventType string

const (
	EventCreated EventType = "booking.created" // seats reserved upstream
	EventFailed  EventType = "booking.failed"  // the reservation call failed
	EventPaid    EventType = "booking.paid"    // payment confirmed
	EventExpired EventType = "booking.expired" // the payment window elapsed unpaid
)

// BookingEvent is published by the gateway whenever a client's booking
// changes state.  Seats are seat keys ("row:seat").
type BookingEvent struct {
	Type           EventType `json:"type"`
	ClientID       string    `json:"client_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	MovieSessionID int       `json:"movie_session_id,omitempty"`
	Seats          []string  `json:"seats,omitempty"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     string    `json:"occurred_at"`
}

// NewEvent stamps an event of type t with the current UTC time.
func NewEvent(t EventType, clientID string) BookingEvent {
	return BookingEvent{Type: t, ClientID: clientID, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}

// LogLine renders ev as one human-friendly line, newline terminated.
func (ev BookingEvent) LogLine() string {
	seats := "[" + strings.Join(ev.Seats, ",") + "]"
	line := fmt.Sprintf("[%s] %s | booking_id=%s | client_id=%s | session_id=%d | seats=%s",
		ev.OccurredAt, ev.Type, orDash(ev.BookingID), ev.ClientID, ev.MovieSessionID, seats)
	if ev.Message != "" {
		line += fmt.Sprintf(" | message=%q", ev.Message)
	}
	return line + "\n"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
