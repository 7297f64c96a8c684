// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually controlled time source. Each call to Now advances
// the clock by the configured tick, so consecutive readings differ by a
// known duration.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tick    time.Duration
}

// NewFakeClock creates a FakeClock starting at initial. A zero initial time
// defaults to a fixed reference time for reproducibility.
func NewFakeClock(initial time.Time, tick time.Duration) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial, tick: tick}
}

// Now returns the current fake time, then advances it by one tick.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.tick)
	return now
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
