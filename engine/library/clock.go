package library

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Clock supplies the current ledger time. In the engine it is the timestamp of the event being
// handled, never the wall clock.
type Clock interface {
	Now() time.Time
}

type ManualClock struct {
	now   time.Time
	mutex *deadlock.Mutex
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, mutex: &deadlock.Mutex{}}
}

func (c *ManualClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is refused.
func (c *ManualClock) Set(t time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if t.Before(c.now) {
		return InvalidState("clock cannot move backwards from %d to %d", c.now.Unix(), t.Unix())
	}
	c.now = t
	return nil
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}

// Days is a helper for the day based windows used throughout the ledger.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Reset moves the clock to t in either direction. It is only used to undo the clock move of a
// rejected event.
func (c *ManualClock) Reset(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = t
}
