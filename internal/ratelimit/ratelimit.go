// Package ratelimit throttles credential endpoints per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (typically the client IP).
// Idle entries are pruned so the map cannot grow without bound.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	limit    rate.Limit
	burst    int
	lastSwep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const sweepInterval = 10 * time.Minute

// New builds a limiter allowing perMinute events per key, with a burst
// of the same size.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Limiter{
		clients:  make(map[string]*client),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		lastSwep: time.Now(),
	}
}

// Allow reports whether the key is within quota.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.lastSwep) > sweepInterval {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > sweepInterval {
				delete(l.clients, k)
			}
		}
		l.lastSwep = now
	}
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}
