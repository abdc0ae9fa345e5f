// internal/cache/answercache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"api-insights/internal/common/database"
	"api-insights/internal/common/logger"
	"api-insights/internal/common/metrics"
	"api-insights/internal/models"
)

// AnswerCache memoizes final answers per normalized question and
// analysis window. A cache outage degrades to recomputation, never to a
// failed request.
type AnswerCache struct {
	client *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewAnswerCache(client *database.RedisClient, ttl time.Duration, log logger.Logger) *AnswerCache {
	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "answer_cache"}),
	}
}

// Key derives the cache key from the normalized question text and the
// resolved analysis window. Two phrasings that normalize identically and
// resolve to the same window share an answer.
func Key(userQuery string, intent models.Intent) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(userQuery))))
	h.Write([]byte{0})
	h.Write([]byte(intent.TimeRange.Start.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(intent.TimeRange.End.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(intent.Target.ID))
	return "answer:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached answer for key, or nil on miss. Errors are
// logged and reported as misses.
func (c *AnswerCache) Get(ctx context.Context, key string) *models.FinalAnswer {
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("answer cache read failed", map[string]interface{}{"error": err.Error()})
			metrics.AnswerCacheHits.WithLabelValues("error").Inc()
			return nil
		}
		metrics.AnswerCacheHits.WithLabelValues("miss").Inc()
		return nil
	}

	var answer models.FinalAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		c.logger.Warn("answer cache entry corrupt", map[string]interface{}{"key": key})
		metrics.AnswerCacheHits.WithLabelValues("error").Inc()
		return nil
	}

	metrics.AnswerCacheHits.WithLabelValues("hit").Inc()
	return &answer
}

// Put stores an answer under key for the configured TTL. Failures are
// logged and dropped.
func (c *AnswerCache) Put(ctx context.Context, key string, answer models.FinalAnswer) {
	raw, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.logger.Warn("answer cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
