package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-recruitment-intake/pkg/apperror"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// ChatOpenRateLimitConfig bounds how many chats one client may open.
func ChatOpenRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:     20,
		Window:    1 * time.Minute,
		KeyPrefix: "rl:chat:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// AdminRateLimitConfig guards the admin API against runaway dashboards.
func AdminRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:     120,
		Window:    1 * time.Minute,
		KeyPrefix: "rl:admin:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware creates a fixed-window limiter. Counters live in Redis
// when a client is given; otherwise, or when Redis fails and FailClosed is
// unset, they live in process memory.
func RateLimitMiddleware(client *goredis.Client, config RateLimitConfig, secLogger *security.SecurityLogger) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	fallback := &memoryCounter{
		cache:  cache.New(config.Window, 5*time.Minute),
		window: config.Window,
	}

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)

		var count int
		var resetAt time.Time
		var err error

		if client != nil {
			count, resetAt, err = checkRateLimitRedis(c.Request.Context(), client, fullKey, config)
			if err != nil {
				if config.FailClosed {
					logger.Log.Error("rate limit unavailable, rejecting", "key_prefix", config.KeyPrefix, "error", err)
					abortWith(c, apperror.New(http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", err))
					return
				}
				logger.Log.Warn("rate limit falling back to memory", "key_prefix", config.KeyPrefix, "error", err)
				count, resetAt = fallback.incr(fullKey)
			}
		} else {
			count, resetAt = fallback.incr(fullKey)
		}

		if count > config.Limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			secLogger.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), "", c.FullPath())

			abortWith(c, apperror.TooManyRequests("Rate limit exceeded. Please try again later."))
			return
		}

		remaining := config.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, config RateLimitConfig) (int, time.Time, error) {
	ttlSeconds := int(config.Window.Seconds())

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

// memoryCounter is the in-process fallback. Each key expires one window
// after its first hit.
type memoryCounter struct {
	mu     sync.Mutex
	cache  *cache.Cache
	window time.Duration
}

func (m *memoryCounter) incr(key string) (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Add only succeeds for a new window
	_ = m.cache.Add(key, 0, m.window)
	count, err := m.cache.IncrementInt(key, 1)
	if err != nil {
		// the window expired between Add and IncrementInt
		m.cache.Set(key, 1, m.window)
		count = 1
	}
	_, resetAt, _ := m.cache.GetWithExpiration(key)
	return count, resetAt
}
