package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache in front of another Fetcher. Redis
// failures fall back to the wrapped fetcher; they never fail a fetch.
type Cache struct {
	next   Fetcher
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

func NewCache(next Fetcher, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, prefix: "profile", log: log}
}

func (c *Cache) key(uid string) string {
	return fmt.Sprintf("%s:%s", c.prefix, uid)
}

func (c *Cache) FetchProfile(ctx context.Context, uid string) (Document, error) {
	data, err := c.rdb.Get(ctx, c.key(uid)).Bytes()
	switch {
	case err == nil:
		var doc Document
		if err := json.Unmarshal(data, &doc); err == nil {
			return doc, nil
		}
		c.log.Warn("profile cache entry corrupt", "uid", uid)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("profile cache read failed", "uid", uid, "error", err)
	}

	doc, err := c.next.FetchProfile(ctx, uid)
	if err != nil {
		return Document{}, err
	}

	byt, err := json.Marshal(doc)
	if err != nil {
		c.log.Warn("profile not cacheable", "uid", uid, "error", err)
		return doc, nil
	}
	if err := c.rdb.Set(ctx, c.key(uid), byt, c.ttl).Err(); err != nil {
		c.log.Warn("profile cache write failed", "uid", uid, "error", err)
	}
	return doc, nil
}

// Invalidate drops the cached document so the next fetch reads through.
func (c *Cache) Invalidate(ctx context.Context, uid string) error {
	return c.rdb.Del(ctx, c.key(uid)).Err()
}
