package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SentimentCache provides Redis-based storage for per-symbol sentiment
// source scores. Collectors write entries; the strategy loop reads them
// when building a snapshot.
type SentimentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSentimentCache creates a Redis-backed sentiment cache.
// If client is nil, returns nil (optional Redis support).
func NewSentimentCache(client *redis.Client, ttl time.Duration) *SentimentCache {
	if client == nil {
		return nil
	}

	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &SentimentCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves all cached sentiment source scores for a symbol.
// A cache miss or Redis error yields an empty map, never a failure,
// so the decision cycle proceeds with what is available.
func (c *SentimentCache) Get(ctx context.Context, symbol string) map[string]SourceScore {
	scores := make(map[string]SourceScore)
	if c == nil || c.client == nil {
		return scores
	}

	// Short timeout so a slow Redis never stalls the decision cycle
	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	pattern := c.buildKeyPattern(symbol)
	iter := c.client.Scan(cacheCtx, 0, pattern, 0).Iterator()
	for iter.Next(cacheCtx) {
		key := iter.Val()
		cached, err := c.client.Get(cacheCtx, key).Result()
		if err != nil {
			if err != redis.Nil {
				log.Debug().
					Err(err).
					Str("key", key).
					Msg("Redis get error - treating as cache miss")
			}
			continue
		}

		var score SourceScore
		if err := json.Unmarshal([]byte(cached), &score); err != nil {
			log.Warn().
				Err(err).
				Str("key", key).
				Msg("Failed to unmarshal cached sentiment score")
			continue
		}
		scores[sourceFromKey(key)] = score
	}

	if err := iter.Err(); err != nil {
		log.Debug().
			Err(err).
			Str("symbol", symbol).
			Msg("Redis scan error - returning partial sentiment")
	}

	return scores
}

// Set stores one source's sentiment score for a symbol with the
// configured TTL.
func (c *SentimentCache) Set(ctx context.Context, symbol, source string, score SourceScore) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	key := c.buildKey(symbol, source)

	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal sentiment score: %w", err)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to cache sentiment score")
		return err
	}

	log.Debug().
		Str("symbol", symbol).
		Str("source", source).
		Float64("score", score.Score).
		Int("count", score.Count).
		Dur("ttl", c.ttl).
		Msg("Cached sentiment score")

	return nil
}

// Delete removes one source's entry for a symbol.
func (c *SentimentCache) Delete(ctx context.Context, symbol, source string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Del(cacheCtx, c.buildKey(symbol, source)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

// Health checks if the Redis connection is healthy
func (c *SentimentCache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}

func (c *SentimentCache) buildKey(symbol, source string) string {
	return fmt.Sprintf("lysara:sentiment:%s:%s", symbol, source)
}

func (c *SentimentCache) buildKeyPattern(symbol string) string {
	return fmt.Sprintf("lysara:sentiment:%s:*", symbol)
}

// sourceFromKey extracts the source name, the final key segment.
func sourceFromKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}
