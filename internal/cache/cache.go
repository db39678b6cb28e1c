// Package cache keeps rendered public pages and drops them when the content
// behind them changes.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores JSON page payloads keyed by their public path.
type PageCache interface {
	GetJSON(ctx context.Context, path string, dest any) (bool, error)
	SetJSON(ctx context.Context, path string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, paths ...string) error
	Ping(ctx context.Context) error
	Close() error
}

const keyPrefix = "page:"

// Config defines connection parameters for Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// Redis is a PageCache on a go-redis client.
type Redis struct {
	client *redis.Client
}

// New returns a Redis page cache based on provided configuration.
func New(cfg Config) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return NewFromClient(redis.NewClient(opts))
}

func NewFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) SetJSON(ctx context.Context, path string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+path, data, ttl).Err()
}

// GetJSON loads the page at path into dest. A miss reports false with no error.
func (r *Redis) GetJSON(ctx context.Context, path string, dest any) (bool, error) {
	res, err := r.client.Get(ctx, keyPrefix+path).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", path, err)
	}
	if err := json.Unmarshal(res, dest); err != nil {
		return false, fmt.Errorf("json unmarshal: %w", err)
	}
	return true, nil
}

// Invalidate drops the cached pages at paths.
func (r *Redis) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = keyPrefix + p
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases Redis resources.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop caches nothing.
type Noop struct{}

func (Noop) GetJSON(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, ...string) error { return nil }
func (Noop) Ping(context.Context) error { return nil }
func (Noop) Close() error { return nil }

// Paths of the pages that show each kind of content.
func CatalogPaths(id string, slugs ...string) []string {
	paths := []string{"/catalog", "/catalog/" + id}
	seen := map[string]bool{}
	for _, s := range slugs {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		paths = append(paths, "/c/"+s)
	}
	return paths
}

func ProductPaths(id string) []string  { return []string{"/product", "/product/" + id} }
func BusinessPaths(id string) []string { return []string{"/business", "/business/" + id} }

// PublicPath is the cache path of a catalog's storefront.
func PublicPath(slug string) string { return "/c/" + slug }
