package market

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SentimentCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSentimentCache(client, time.Minute), mr
}

func TestNewSentimentCacheNilClient(t *testing.T) {
	assert.Nil(t, NewSentimentCache(nil, time.Minute))
}

func TestSentimentCacheSetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	err := cache.Set(ctx, "BTC-USD", "reddit", SourceScore{Score: 0.4, Count: 7, Timestamp: now})
	require.NoError(t, err)
	err = cache.Set(ctx, "BTC-USD", "news", SourceScore{Score: -0.2, Count: 12, Timestamp: now})
	require.NoError(t, err)

	// Another symbol must not leak into the result
	err = cache.Set(ctx, "ETH-USD", "reddit", SourceScore{Score: 0.9, Count: 3, Timestamp: now})
	require.NoError(t, err)

	scores := cache.Get(ctx, "BTC-USD")
	require.Len(t, scores, 2)
	assert.InDelta(t, 0.4, scores["reddit"].Score, 1e-9)
	assert.Equal(t, 7, scores["reddit"].Count)
	assert.InDelta(t, -0.2, scores["news"].Score, 1e-9)
	assert.Equal(t, 12, scores["news"].Count)
}

func TestSentimentCacheGetMissEmpty(t *testing.T) {
	cache, _ := newTestCache(t)

	scores := cache.Get(context.Background(), "DOGE-USD")
	require.NotNil(t, scores)
	assert.Empty(t, scores)
}

func TestSentimentCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "BTC-USD", "reddit", SourceScore{Score: 0.5, Count: 1, Timestamp: time.Now()})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	assert.Empty(t, cache.Get(ctx, "BTC-USD"))
}

func TestSentimentCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "BTC-USD", "reddit", SourceScore{Score: 0.5, Count: 1, Timestamp: time.Now()}))
	require.NoError(t, cache.Delete(ctx, "BTC-USD", "reddit"))
	assert.Empty(t, cache.Get(ctx, "BTC-USD"))
}

func TestSentimentCacheCorruptEntrySkipped(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "BTC-USD", "news", SourceScore{Score: 0.1, Count: 2, Timestamp: time.Now()}))
	mr.Set("lysara:sentiment:BTC-USD:reddit", "{not json")

	scores := cache.Get(ctx, "BTC-USD")
	require.Len(t, scores, 1)
	assert.Contains(t, scores, "news")
}

func TestSentimentCacheHealth(t *testing.T) {
	cache, mr := newTestCache(t)

	assert.NoError(t, cache.Health(context.Background()))

	mr.Close()
	assert.Error(t, cache.Health(context.Background()))
}
