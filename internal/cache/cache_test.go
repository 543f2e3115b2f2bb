package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "url:abc1234", urlKey("abc1234"))
	assert.Equal(t, "clicks:abc1234", clicksKey("abc1234"))
}

func TestCache_mappingTTL(t *testing.T) {
	c := New(nil, 0, nil)

	t.Run("no expiration uses the default", func(t *testing.T) {
		assert.Equal(t, DefaultTTL, c.mappingTTL(nil))
	})

	t.Run("expiration drives the ttl", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour)

		ttl := c.mappingTTL(&expiresAt)

		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("past expiration is floored at one second", func(t *testing.T) {
		expiresAt := time.Now().Add(-time.Hour)

		assert.Equal(t, time.Second, c.mappingTTL(&expiresAt))
	})

	t.Run("configured default overrides the package default", func(t *testing.T) {
		c := New(nil, time.Minute, nil)

		assert.Equal(t, time.Minute, c.mappingTTL(nil))
	})
}
