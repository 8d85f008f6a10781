package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", []string{"a", "b"}, time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	c := NewTTLCache()
	c.now = func() time.Time { return current }

	c.Set("k", "v", 5*time.Minute)

	current = base.Add(4 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	current = base.Add(6 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	// expired entries are dropped on read
	c.mu.Lock()
	_, present := c.entries["k"]
	c.mu.Unlock()
	assert.False(t, present)
}

func TestTTLCache_Overwrite(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}
