// Package store caches upstream provider responses between requests.
// Redis is the primary tier; a directory of JSON files is the local fallback.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix  = "valuation:cache"
	versionKey = "valuation:cache:version"
)

// NewRedis creates a Redis client and checks it with a ping.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return client, nil
}

// ResponseCache stores raw response bodies.
// With a nil client only the file tier is used; with an empty dir only Redis.
// With neither, every Fetch runs the loader.
type ResponseCache struct {
	client *redis.Client
	dir    string
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewResponseCache creates the cache. A non-positive ttl disables caching.
func NewResponseCache(client *redis.Client, dir string, ttl time.Duration, log zerolog.Logger) *ResponseCache {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("cache dir unavailable, file tier disabled")
			dir = ""
		}
	}
	return &ResponseCache{client: client, dir: dir, ttl: ttl, log: log, now: time.Now}
}

// fileEntry is the on-disk envelope of one cached body.
type fileEntry struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Body     []byte    `json:"body"`
}

// Fetch returns the cached body for key or populates it with the loader.
// Loader errors are returned as-is and never cached. Cache-tier failures are
// logged and treated as misses.
func (c *ResponseCache) Fetch(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if loader == nil {
		return nil, errors.New("cache: loader required")
	}
	if c == nil || c.ttl <= 0 {
		return loader(ctx)
	}

	// 1. Redis
	redisKey := ""
	if c.client != nil {
		k, err := c.buildKey(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Msg("redis unavailable, using file tier")
		} else {
			redisKey = k
			payload, err := c.client.Get(ctx, redisKey).Bytes()
			if err == nil {
				c.log.Debug().Str("key", key).Msg("redis cache hit")
				return payload, nil
			}
			if !errors.Is(err, redis.Nil) {
				c.log.Warn().Err(err).Str("key", key).Msg("redis get failed")
				redisKey = ""
			}
		}
	}

	// 2. File
	if body, ok := c.readFile(key); ok {
		c.log.Debug().Str("key", key).Msg("file cache hit")
		if redisKey != "" {
			c.setRedis(ctx, redisKey, body)
		}
		return body, nil
	}

	// 3. Load and populate both tiers
	body, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if redisKey != "" {
		c.setRedis(ctx, redisKey, body)
	}
	c.writeFile(key, body)
	return body, nil
}

// Bump invalidates everything cached so far: the Redis version is incremented
// and the file tier is emptied.
func (c *ResponseCache) Bump(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.client != nil {
		if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
			return fmt.Errorf("bump cache version: %w", err)
		}
	}
	if c.dir != "" {
		files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("clear file cache: %w", err)
			}
		}
	}
	return nil
}

// version returns the current cache version, initialising it when missing.
func (c *ResponseCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *ResponseCache) buildKey(ctx context.Context, key string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d", keyPrefix, key, ver), nil
}

func (c *ResponseCache) setRedis(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Internal File Helpers

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, unsafeChars.ReplaceAllString(strings.ReplaceAll(key, ":", "_"), "-")+".json")
}

func (c *ResponseCache) readFile(key string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key {
		return nil, false
	}
	if c.now().Sub(entry.StoredAt) > c.ttl {
		return nil, false
	}
	return entry.Body, true
}

func (c *ResponseCache) writeFile(key string, body []byte) {
	if c.dir == "" {
		return
	}
	raw, err := json.Marshal(fileEntry{Key: key, StoredAt: c.now(), Body: body})
	if err != nil {
		return
	}
	// write-then-rename so readers never see a partial file
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("file cache write failed")
		return
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("file cache rename failed")
	}
}
