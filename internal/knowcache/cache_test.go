package knowcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilCacheIsAMiss(t *testing.T) {
	var c *Cache
	_, ok := c.Get(context.Background(), "go")
	assert.False(t, ok)
	// Put on a nil cache is a no-op, not a panic.
	c.Put(context.Background(), "go", "a summary")
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, "summary:go", key("  Go "))
	assert.Equal(t, key("GO"), key("go"))
}
