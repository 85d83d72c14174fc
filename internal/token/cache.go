// Package token holds the single bearer credential used against the remote
// attendance service. The cache never persists the token and never hands out
// an expired one.
package token

import (
	"sync"
	"time"
)

// DefaultTTL is used when the remote service does not report an explicit
// expiry. Deliberately one hour short of the typical 24h token lifetime so a
// token is never used past its true expiry.
const DefaultTTL = 23 * time.Hour

type Cache struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
	nowFunc   func() time.Time
}

type Option func(*Cache)

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func NewCache(options ...Option) *Cache {
	c := &Cache{nowFunc: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns the cached token, or ok=false if there is none or its expiry
// is not strictly in the future.
func (c *Cache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value == "" || !c.expiresAt.After(c.nowFunc()) {
		return "", false
	}
	return c.value, true
}

// Set stores the token with expiry now+ttl. A non-positive ttl selects
// DefaultTTL.
func (c *Cache) Set(value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.expiresAt = c.nowFunc().Add(ttl)
}

// Clear drops the cached token unconditionally. Used before forced
// re-authentication and after an authorization failure.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = ""
	c.expiresAt = time.Time{}
}
