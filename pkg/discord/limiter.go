package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRatePerSecond = 2
	defaultBurst         = 5

	dedupTTL = 10 * time.Minute
)

// userLimiter throttles interactions per member
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &userLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow spends one token of the member's bucket at now
func (l *userLimiter) Allow(userID string, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// interactionDedup remembers interaction ids so gateway replays are ignored
type interactionDedup struct {
	mu          sync.Mutex
	ttl         time.Duration
	seen        map[string]time.Time
	lastCleanup time.Time
}

func newInteractionDedup(ttl time.Duration) *interactionDedup {
	return &interactionDedup{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// First reports whether id is seen for the first time, recording it
func (d *interactionDedup) First(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.lastCleanup) > d.ttl/2 {
		for seenID, at := range d.seen {
			if now.Sub(at) > d.ttl {
				delete(d.seen, seenID)
			}
		}
		d.lastCleanup = now
	}

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = now
	return true
}
