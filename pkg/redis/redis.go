package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

var client *redis.Client

// Init connects the shared client. An empty host leaves redis disabled.
func Init(cfg *config.RedisConfig) error {
	if cfg.Host == "" {
		logger.Info("Redis host not configured, rate limiting disabled", nil)
		return nil
	}

	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = rdb
	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns nil when redis is disabled or unreachable.
func GetClient() *redis.Client {
	return client
}

func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		err := client.Close()
		client = nil
		return err
	}
	return nil
}

var windowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// CountInWindow increments key inside a fixed window and reports the hit count
// and the time left until the window resets.
func CountInWindow(ctx context.Context, rdb redis.Scripter, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := windowScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rate window: %w", err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate window reply: %v", vals)
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}
