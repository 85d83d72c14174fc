package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	newCacheAt := func(now *time.Time) *Cache {
		return NewCache(WithNowFunc(func() time.Time { return *now }))
	}

	t.Run("empty cache misses", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)

		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("returns token before expiry", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", time.Hour)

		now = base.Add(59 * time.Minute)
		value, ok := c.Get()
		assert.True(t, ok)
		assert.Equal(t, "tok-1", value)
	})

	t.Run("misses at exact expiry instant", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", time.Hour)

		now = base.Add(time.Hour)
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("misses after expiry", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", time.Hour)

		now = base.Add(2 * time.Hour)
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("zero ttl uses 23h default", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", 0)

		now = base.Add(23*time.Hour - time.Second)
		_, ok := c.Get()
		assert.True(t, ok)

		now = base.Add(23 * time.Hour)
		_, ok = c.Get()
		assert.False(t, ok)
	})

	t.Run("Clear drops the token", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", time.Hour)

		c.Clear()
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("Set replaces previous token", func(t *testing.T) {
		now := base
		c := newCacheAt(&now)
		c.Set("tok-1", time.Hour)
		c.Set("tok-2", time.Hour)

		value, ok := c.Get()
		assert.True(t, ok)
		assert.Equal(t, "tok-2", value)
	})
}
