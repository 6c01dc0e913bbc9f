package stopcount

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const countCacheKeyFormat = "stopdensity:stopcount:%s:%s"

// CountCache remembers the stop count of a stop on a date so an interrupted day can be resumed
type CountCache struct {
	Cache *cache.Cache[string]
}

func NewCountCache(client *redis.Client, expiration time.Duration) *CountCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &CountCache{
		Cache: cache.New[string](redisStore),
	}
}

func (c *CountCache) Get(ctx context.Context, stopID string, date string) (int, bool) {
	if c == nil {
		return 0, false
	}

	value, err := c.Cache.Get(ctx, fmt.Sprintf(countCacheKeyFormat, stopID, date))
	if err != nil {
		return 0, false
	}

	count, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("stop", stopID).Str("date", date).Str("value", value).Msg("Ignoring malformed cached stop count")
		return 0, false
	}

	return count, true
}

func (c *CountCache) Set(ctx context.Context, stopID string, date string, count int) {
	if c == nil {
		return
	}

	err := c.Cache.Set(ctx, fmt.Sprintf(countCacheKeyFormat, stopID, date), strconv.Itoa(count))
	if err != nil {
		log.Warn().Err(err).Str("stop", stopID).Str("date", date).Msg("Failed to cache stop count")
	}
}
