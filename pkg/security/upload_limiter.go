package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable is returned alongside an allow decision when no
// Redis client is configured.
var ErrLimiterUnavailable = errors.New("upload limiter unavailable: redis not connected")

// UploadLimiter enforces resume upload limits with a Redis sliding window:
// per client IP per minute and per applicant e-mail per day.
type UploadLimiter struct {
	client       *goredis.Client
	maxPerMinute int
	maxPerDay    int
}

// Lua script for sliding window rate limiting
// KEYS[1] = rate limit key
// ARGV[1] = max count allowed
// ARGV[2] = window size in seconds
// ARGV[3] = current timestamp
// Returns: 1 if allowed, 0 if rate limited
const uploadRateLimitScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
redis.call('EXPIRE', key, window)
return 1
`

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// NewUploadLimiter uses client when it is non-nil. Defaults: 5 uploads per
// minute per IP, 20 per day per applicant.
func NewUploadLimiter(client *goredis.Client, perMin, perDay int) *UploadLimiter {
	if perMin <= 0 {
		perMin = 5
	}
	if perDay <= 0 {
		perDay = 20
	}
	return &UploadLimiter{
		client:       client,
		maxPerMinute: perMin,
		maxPerDay:    perDay,
	}
}

// AllowUpload fails open: without Redis, or when Redis errors, the upload is
// allowed and the error is returned for logging.
func (ul *UploadLimiter) AllowUpload(ctx context.Context, ip, email string) (Decision, error) {
	if ul == nil || ul.client == nil {
		return Decision{Allowed: true}, ErrLimiterUnavailable
	}

	now := time.Now().Unix()

	if ip != "" {
		allowed, err := ul.checkLimit(ctx, "ratelimit:upload:ip:"+ip, ul.maxPerMinute, 60, now)
		if err != nil {
			return Decision{Allowed: true}, fmt.Errorf("rate limit check failed: %w", err)
		}
		if !allowed {
			return Decision{Allowed: false, RetryAfter: time.Minute}, nil
		}
	}

	if email != "" {
		key := "ratelimit:upload:email:" + HashValue(strings.ToLower(email))
		allowed, err := ul.checkLimit(ctx, key, ul.maxPerDay, 86400, now)
		if err != nil {
			return Decision{Allowed: true}, fmt.Errorf("rate limit check failed: %w", err)
		}
		if !allowed {
			return Decision{Allowed: false, RetryAfter: time.Hour}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

func (ul *UploadLimiter) checkLimit(ctx context.Context, key string, limit, window int, now int64) (bool, error) {
	result, err := ul.client.Eval(ctx, uploadRateLimitScript, []string{key}, limit, window, now).Result()
	if err != nil {
		return false, err
	}
	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}
	return allowed == 1, nil
}
