package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", 3*time.Second))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(3 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_Del(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "a", "1", 0))

	n, err := c.Del(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type row struct {
		Email string `json:"email"`
	}
	require.NoError(t, SetJSON(ctx, c, ActiveLocationsKey("ABC123"), []row{{Email: "a@x.io"}}, time.Minute))

	var out []row
	hit, err := GetJSON(ctx, c, ActiveLocationsKey("ABC123"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a@x.io", out[0].Email)

	hit, err = GetJSON(ctx, c, ActiveLocationsKey("OTHER1"), &out)
	require.NoError(t, err)
	assert.False(t, hit)
}
