package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartsWithFirstAndStopsWithLastSubscriber(t *testing.T) {
	c := New(5 * time.Millisecond)
	assert.False(t, c.Active())

	a, cancelA := c.Subscribe()
	b, cancelB := c.Subscribe()
	assert.True(t, c.Active())
	assert.Equal(t, 2, c.Subscribers())

	for _, ch := range []<-chan time.Time{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("no tick delivered")
		}
	}

	cancelA()
	assert.True(t, c.Active())
	cancelB()
	assert.False(t, c.Active())
	assert.Zero(t, c.Subscribers())

	cancelB()
	assert.False(t, c.Active())
}

func TestClock_RestartsAfterIdle(t *testing.T) {
	c := New(5 * time.Millisecond)
	_, cancel := c.Subscribe()
	cancel()
	require.False(t, c.Active())

	ch, cancel := c.Subscribe()
	defer cancel()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("restarted clock did not tick")
	}
}

func TestClock_SlowSubscriberGetsLatestTick(t *testing.T) {
	c := New(2 * time.Millisecond)
	ch, cancel := c.Subscribe()
	defer cancel()

	start := time.Now()
	time.Sleep(30 * time.Millisecond)
	first := <-ch
	assert.True(t, first.After(start.Add(20*time.Millisecond)), "stale tick %s delivered", first.Sub(start))
}

func TestNew_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, New(0).Interval())
}
