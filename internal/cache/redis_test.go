package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
}

func TestOpenRedis(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := OpenRedis(s.Addr(), "", 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, 2, client.Options().DB)

	_, err = OpenRedis("not-a-real-host:6379", "", 0)
	assert.Error(t, err)
}

func TestRedisCache_JSONRoundTripAndExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := OpenRedis(s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client)
	ctx := context.Background()

	var got reading
	found, err := cache.GetJSON(ctx, "weather:pune", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.SetJSON(ctx, "weather:pune", reading{Location: "Pune", Temperature: 24.5}, 10*time.Minute))

	found, err = cache.GetJSON(ctx, "weather:pune", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Pune", got.Location)
	assert.Equal(t, 24.5, got.Temperature)

	s.FastForward(11 * time.Minute)
	found, err = cache.GetJSON(ctx, "weather:pune", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := OpenRedis(s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, s.Set("weather:delhi", "not json"))

	var got reading
	found, err := NewRedisCache(client).GetJSON(context.Background(), "weather:delhi", &got)
	assert.Error(t, err)
	assert.False(t, found)
}
