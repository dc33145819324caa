// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"sync"
	"time"
)

// dedupCache is a time-windowed set of recently seen frame fingerprints.
// Mesh rebroadcast delivers the same physical burst to the gateway several
// times; downstream consumers must see each event exactly once. Entries
// expire after the retention window, evaluated on a fixed sweep cadence
// rather than per access, so expiry never blocks record processing.
type dedupCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration

	stop chan struct{}
	once sync.Once
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{
		seen:   make(map[string]time.Time),
		window: window,
		stop:   make(chan struct{}),
	}
}

// CheckAndInsert atomically records a fingerprint, reporting true the first
// time it is seen within the retention window and false on any repeat.
func (c *dedupCache) CheckAndInsert(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.seen[key]; ok && now.Sub(at) < c.window {
		return false
	}
	c.seen[key] = now
	return true
}

// Len reports the number of retained fingerprints, expired or not.
func (c *dedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// StartSweeper expires old entries on a fixed cadence until Stop is called.
func (c *dedupCache) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep(time.Now())
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the sweeper. Safe to call more than once.
func (c *dedupCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *dedupCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, at := range c.seen {
		if now.Sub(at) >= c.window {
			delete(c.seen, key)
		}
	}
}
