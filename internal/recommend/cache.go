package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// MatchCache memoizes base-matcher results in Redis. The base match is
// deterministic given the corpus, so entries only need to outlive the corpus
// refresh interval; personalization is never cached.
type MatchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchCache wraps a Redis client. A zero ttl disables expiry.
func NewMatchCache(client *redis.Client, ttl time.Duration) *MatchCache {
	return &MatchCache{client: client, ttl: ttl}
}

func matchKey(ingredients []string, topN int) string {
	return fmt.Sprintf("match:%s:%d", strings.Join(ingredients, ","), topN)
}

// Get returns the cached candidate ids, or (nil, false) on a miss. Redis
// errors count as misses: the cache is an optimization, never a dependency.
func (c *MatchCache) Get(ctx context.Context, ingredients []string, topN int) ([]int, bool) {
	data, err := c.client.Get(ctx, matchKey(ingredients, topN)).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// Set stores candidate ids, best effort.
func (c *MatchCache) Set(ctx context.Context, ingredients []string, topN int, ids []int) {
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	c.client.Set(ctx, matchKey(ingredients, topN), data, c.ttl)
}
