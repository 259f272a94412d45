// Package clock provides the shared payment countdown ticker.  A single
// ticker runs per process, and only while at least one subscriber (an open
// ticket-list view) is attached.
package clock

import (
	"sync"
	"time"
)

// DefaultInterval is the countdown cadence.
const DefaultInterval = time.Second

// Clock fans one ticker out to any number of subscribers.
type Clock struct {
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	subs   map[int]chan time.Time
	nextID int
	stop   chan struct{}
	done   chan struct{}
}

// New returns a stopped clock.  A non-positive interval uses
// DefaultInterval.
func New(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{interval: interval, now: time.Now, subs: make(map[int]chan time.Time)}
}

// Interval returns the tick cadence.
func (c *Clock) Interval() time.Duration { return c.interval }

// Subscribe attaches a listener and starts the ticker if it was idle.  The
// returned channel has a buffer of one: a subscriber that falls behind sees
// the latest wall-clock time on its next read, never a backlog of missed
// seconds.  The cancel func detaches the listener; the last one to leave
// stops the ticker.  cancel is safe to call more than once.
func (c *Clock) Subscribe() (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan time.Time, 1)
	c.subs[id] = ch
	if c.stop == nil {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.run(c.stop, c.done)
	}

	var once sync.Once
	return ch, func() { once.Do(func() { c.unsubscribe(id) }) }
}

func (c *Clock) unsubscribe(id int) {
	c.mu.Lock()
	delete(c.subs, id)
	if len(c.subs) > 0 || c.stop == nil {
		c.mu.Unlock()
		return
	}
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	close(stop)
	<-done
}

// Active reports whether the ticker is running.
func (c *Clock) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Subscribers returns the number of attached listeners.
func (c *Clock) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Clock) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.broadcast(c.now())
		}
	}
}

func (c *Clock) broadcast(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		// Replace a pending tick so readers always get the newest time.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- now:
		default:
		}
	}
}
