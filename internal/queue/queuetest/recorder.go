// Package queuetest provides an in-memory queue.Publisher for tests.
package queuetest

import (
	"context"
	"sync"

	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

var _ queue.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []queue.BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.BookingEvent(nil), r.events...)
}
