package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxIdleLimiters bounds the limiter map before idle entries are swept.
const maxIdleLimiters = 1024

type cooldownKey struct {
	userID  int64
	command string
}

// Cooldowns allows each user one invocation of a command per period.
type Cooldowns struct {
	period time.Duration
	now    func() time.Time

	mu       sync.Mutex
	limiters map[cooldownKey]*rate.Limiter
}

// NewCooldowns creates cooldowns of the given period.
func NewCooldowns(period time.Duration) *Cooldowns {
	return &Cooldowns{
		period:   period,
		now:      time.Now,
		limiters: make(map[cooldownKey]*rate.Limiter),
	}
}

// Allow consumes the user's token for command. When the cooldown is still
// active it returns the remaining wait and false, and nothing is consumed.
func (c *Cooldowns) Allow(userID int64, command string) (time.Duration, bool) {
	if c.period <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey{userID: userID, command: command}
	lim, ok := c.limiters[key]
	if !ok {
		if len(c.limiters) >= maxIdleLimiters {
			c.sweep(now)
		}
		lim = rate.NewLimiter(rate.Every(c.period), 1)
		c.limiters[key] = lim
	}

	if tokens := lim.TokensAt(now); tokens < 1 {
		return time.Duration((1 - tokens) * float64(c.period)), false
	}
	lim.AllowN(now, 1)
	return 0, true
}

// sweep drops limiters whose cooldown has fully elapsed.
func (c *Cooldowns) sweep(now time.Time) {
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, key)
		}
	}
}
