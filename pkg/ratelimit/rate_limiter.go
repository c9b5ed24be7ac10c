package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bucket groups routes that share one request budget per client
type Bucket string

const (
	BucketDefault   Bucket = "default"
	BucketHealth    Bucket = "health"
	BucketBrowse    Bucket = "browse"    // event catalogue reads
	BucketInventory Bucket = "inventory" // seat maps, promo checks, waiting list
	BucketCheckout  Bucket = "checkout"  // order placement and cancellation
	BucketAccount   Bucket = "account"
	BucketReports   Bucket = "reports"
)

type Config struct {
	Enabled        bool
	Window         time.Duration
	DefaultLimit   int
	Limits         map[Bucket]int
	WhitelistedIPs []string
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// slidingWindow trims entries older than the window, then admits the request
// only if fewer than limit remain. Returns {count, remaining}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= limit then
	redis.call('PEXPIRE', key, ttl_ms)
	return {count + 1, 0}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, ttl_ms)
return {count + 1, limit - count - 1}
`)

// RateLimiter keeps a sliding window per client and bucket in Redis
type RateLimiter struct {
	client    *redis.Client
	config    *Config
	whitelist map[string]struct{}

	now    func() time.Time
	member func() string
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	whitelist := make(map[string]struct{}, len(config.WhitelistedIPs))
	for _, ip := range config.WhitelistedIPs {
		whitelist[ip] = struct{}{}
	}
	return &RateLimiter{
		client:    client,
		config:    config,
		whitelist: whitelist,
		now:       time.Now,
		member:    uuid.NewString,
	}
}

// IsAllowed records one request from clientIP against bucket
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, bucket Bucket) (*Result, error) {
	limit := r.Limit(bucket)
	now := r.now()

	if !r.config.Enabled || r.isWhitelisted(clientIP) {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: now.Add(r.config.Window).Unix(),
		}, nil
	}

	return r.checkLimit(ctx, Key(clientIP, bucket), limit, now)
}

// Key is the sorted-set key for a client and bucket
func Key(clientIP string, bucket Bucket) string {
	return fmt.Sprintf("ticketing:ratelimit:%s:%s", bucket, clientIP)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, now time.Time) (*Result, error) {
	windowStart := now.Add(-r.config.Window)

	values, err := slidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		r.config.Window.Milliseconds(),
		r.member(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit reply %v", values)
	}

	return &Result{
		Allowed:   values[0] <= int64(limit),
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: now.Add(r.config.Window).Unix(),
	}, nil
}

// Limit is the configured budget for bucket, falling back to the default
func (r *RateLimiter) Limit(bucket Bucket) int {
	if n, ok := r.config.Limits[bucket]; ok && n > 0 {
		return n
	}
	return r.config.DefaultLimit
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	_, ok := r.whitelist[ip]
	return ok
}
