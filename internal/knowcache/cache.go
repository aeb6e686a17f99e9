// Package knowcache caches knowledge-lookup summaries in Redis so
// repeated lookups for the same term skip the remote service. The
// cache is strictly best-effort: a nil *Cache or a Redis error just
// means a miss.
package knowcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	summaryTTL    = 6 * time.Hour
	summaryPrefix = "summary:"
)

type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

func key(term string) string {
	return fmt.Sprintf("%s%s", summaryPrefix, strings.ToLower(strings.TrimSpace(term)))
}

// Get returns the cached summary for term, if any.
func (c *Cache) Get(ctx context.Context, term string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key(term)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn("summary cache read failed", zap.String("term", term), zap.Error(err))
		return "", false
	}
	return val, true
}

// Put stores a summary with the cache TTL.
func (c *Cache) Put(ctx context.Context, term, summary string) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, key(term), summary, summaryTTL).Err(); err != nil {
		c.logger.Warn("summary cache write failed", zap.String("term", term), zap.Error(err))
	}
}
