package tickets

import "sync"

// ExpiryTracker remembers which bookings have already triggered a
// reconciling refetch after their payment window lapsed, so each booking
// causes at most one refetch no matter how many ticks observe it.
type ExpiryTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewExpiryTracker returns an empty tracker.
func NewExpiryTracker() *ExpiryTracker {
	return &ExpiryTracker{seen: make(map[string]struct{})}
}

// Observe records ids and reports whether at least one of them was new.  A
// true result means the caller should refetch the booking list once.
func (t *ExpiryTracker) Observe(ids []string) bool {
	return len(t.Fresh(ids)) > 0
}

// Fresh records ids and returns the ones not observed before, in input
// order.
func (t *ExpiryTracker) Fresh(ids []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var fresh []string
	for _, id := range ids {
		if _, ok := t.seen[id]; ok {
			continue
		}
		t.seen[id] = struct{}{}
		fresh = append(fresh, id)
	}
	return fresh
}

// Seen reports whether id has been observed.
func (t *ExpiryTracker) Seen(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[id]
	return ok
}
