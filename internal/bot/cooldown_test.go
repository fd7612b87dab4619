package bot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCooldowns_AllowsOncePerPeriod(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldowns(10 * time.Second)
	c.now = clock.Now

	_, ok := c.Allow(1, "search")
	assert.True(t, ok)

	clock.Advance(3 * time.Second)
	wait, ok := c.Allow(1, "search")
	assert.False(t, ok)
	assert.InDelta(t, (7 * time.Second).Seconds(), wait.Seconds(), 0.001)

	// A rejected attempt does not push the window further out.
	clock.Advance(7 * time.Second)
	_, ok = c.Allow(1, "search")
	assert.True(t, ok)
}

func TestCooldowns_ScopedPerUserAndCommand(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldowns(10 * time.Second)
	c.now = clock.Now

	_, ok := c.Allow(1, "search")
	assert.True(t, ok)

	_, ok = c.Allow(2, "search")
	assert.True(t, ok, "other users have their own cooldown")

	_, ok = c.Allow(1, "add")
	assert.True(t, ok, "other commands have their own cooldown")

	_, ok = c.Allow(1, "search")
	assert.False(t, ok)
}

func TestCooldowns_ZeroPeriodDisables(t *testing.T) {
	c := NewCooldowns(0)
	for i := 0; i < 3; i++ {
		_, ok := c.Allow(1, "search")
		assert.True(t, ok)
	}
}

func TestCooldowns_SweepKeepsActiveLimiters(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldowns(10 * time.Second)
	c.now = clock.Now

	_, ok := c.Allow(1, "search")
	assert.True(t, ok)
	_, ok = c.Allow(2, "search")
	assert.True(t, ok)

	clock.Advance(11 * time.Second)
	_, ok = c.Allow(2, "search")
	assert.True(t, ok)

	c.sweep(clock.Now())
	assert.Len(t, c.limiters, 1, "only the limiter still cooling down survives")
}
