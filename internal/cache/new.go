package cache

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"modelwire/config"
)

// New opens the cache backend selected by configuration.
// "local" (the default) stores the report under cfg.Path, relative paths resolving against
// $MODELWIRE_CACHE_DIR when set.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Type {
	case "redis":
		redisCache, err := NewRedisCache(ctx, RedisConfig{
			URL: cfg.Redis.URL,
			Key: cfg.Redis.Key,
			TTL: cfg.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using redis cache", "key", redisCache.key)
		return redisCache, nil

	default:
		path := cfg.Path
		if path == "" {
			path = "selections.json"
		}
		if dir := os.Getenv("MODELWIRE_CACHE_DIR"); dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(dir, filepath.Base(path))
		}
		slog.Info("using local file cache", "path", path)
		return NewLocalCache(path), nil
	}
}
