// Package throttle implements the per-source-IP rate limiter guarding
// the reactor's receive path. It is the piece the teacher's own
// dht.Config (ClientPerMinuteLimit, ThrottlerTrackedClients) and
// dht.processPacket referenced as a ClientThrottle but whose
// implementation never shipped with that package -- rebuilt here for
// the DV-routing domain, with an LRU bound on tracked clients so the
// limiter itself cannot be used to exhaust memory by spraying packets
// from many distinct source addresses.
package throttle

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

const window = time.Minute

// Throttle bounds how many packets per window any single source IP may
// feed into the reactor.
type Throttle struct {
	mu    sync.Mutex
	cache *lru.Cache
	limit int
}

type counter struct {
	windowStart time.Time
	count       int
}

// New creates a throttle allowing up to perMinuteLimit packets per
// source IP per minute, tracking at most maxTrackedClients distinct
// IPs at a time (least-recently-used ones are evicted first). A
// perMinuteLimit <= 0 disables throttling entirely.
func New(perMinuteLimit int, maxTrackedClients int) *Throttle {
	return &Throttle{
		cache: lru.New(maxTrackedClients),
		limit: perMinuteLimit,
	}
}

// Allow reports whether a packet from ip should be processed. It
// advances ip's window if a minute has elapsed since it last reset.
func (t *Throttle) Allow(ip string) bool {
	if t.limit <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var c *counter
	if v, ok := t.cache.Get(ip); ok {
		c = v.(*counter)
	} else {
		c = &counter{windowStart: now}
		t.cache.Add(ip, c)
	}

	if now.Sub(c.windowStart) >= window {
		c.windowStart = now
		c.count = 0
	}
	c.count++
	return c.count <= t.limit
}

// Stop releases the throttle's tracked clients.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Clear()
}
