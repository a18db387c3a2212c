// Package cache provides the Redis-backed server-state cache used by the
// request layer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"snmvm/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort JSON cache. A nil *Cache, or one without a client,
// passes every call straight through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.CacheErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.CacheErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect returns a cache for the given address or redis:// URL. An empty
// address, an invalid URL or a failed ping yields a pass-through cache.
func Connect(addr string, ttl time.Duration) *Cache {
	if strings.TrimSpace(addr) == "" {
		return &Cache{ttl: ttl}
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without cache)", addr, err)
			return &Cache{ttl: ttl}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		_ = client.Close()
		return &Cache{ttl: ttl}
	}
	return New(client, ttl)
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client != nil {
		client.AddHook(metricsHook{})
	}
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client backs the cache.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Scope hashes the parts that decide what a cached payload looks like, such
// as the backend URL and the viewer. Entries of different scopes never mix.
func Scope(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

// CommentsKey is the cache key of a post's flat comment records as seen in
// scope. The records carry the viewer's own reaction, so scope must
// identify the viewer.
func CommentsKey(scope, postID string) string {
	return "snmvm:comments:" + scope + ":" + postID
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, c.ttl).Err()
}

// Invalidate removes keys; errors are counted and swallowed.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err.Error())
	}
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis. fetch must write into dest.
func (c *Cache) CacheAside(ctx context.Context, key string, dest any, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		// A broken cache must not hide the backend.
		observability.GlobalLogger.WarnContext(ctx, "cache read failed", "key", key, "error", err.Error())
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", "key", key, "error", err.Error())
	}
	return nil
}
