package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/metrics"
)

// VectorCache stores embeddings by key.
type VectorCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from a VectorCache.
// Degraded results are never cached.
type CachedEmbedder struct {
	log   *logger.Logger
	next  Embedder
	cache VectorCache
	model string
	ttl   time.Duration
}

// NewCachedEmbedder wraps next. model namespaces the keys so switching models
// never serves stale vectors.
func NewCachedEmbedder(log *logger.Logger, next Embedder, cache VectorCache, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		log:   log.With("service", "CachedEmbedder"),
		next:  next,
		cache: cache,
		model: model,
		ttl:   ttl,
	}
}

func (c *CachedEmbedder) Dimension() int { return c.next.Dimension() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) Result {
	key := CacheKey(c.model, text)

	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
	} else if ok && len(vec) == c.next.Dimension() {
		metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeCacheHit).Inc()
		return Result{Vector: vec}
	}

	res := c.next.Embed(ctx, text)
	if res.Degraded {
		return res
	}
	if err := c.cache.Set(ctx, key, res.Vector, c.ttl); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
	return res
}

// CacheKey derives the cache key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// RedisVectorCache is a VectorCache backed by Redis string values holding JSON arrays.
type RedisVectorCache struct {
	rdb *redis.Client
}

// NewRedisVectorCache connects to addr and verifies the connection.
func NewRedisVectorCache(ctx context.Context, addr, password string, db int) (*RedisVectorCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisVectorCache{rdb: rdb}, nil
}

func (r *RedisVectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached vector: %w", err)
	}
	return vec, true, nil
}

func (r *RedisVectorCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, raw, ttl).Err()
}

func (r *RedisVectorCache) Close() error {
	return r.rdb.Close()
}
