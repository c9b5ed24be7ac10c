package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *Config {
	return &Config{
		Enabled:      true,
		Window:       time.Minute,
		DefaultLimit: 60,
		Limits: map[Bucket]int{
			BucketBrowse:    100,
			BucketInventory: 20,
			BucketCheckout:  5,
			BucketReports:   30,
			BucketHealth:    1000,
		},
		WhitelistedIPs: []string{"10.0.0.1"},
	}
}

func newTestLimiter(cfg *Config) (*RateLimiter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, cfg)
	limiter.now = func() time.Time { return fixedNow }
	limiter.member = func() string { return "req-1" }
	return limiter, mock
}

func expectWindow(mock redismock.ClientMock, key string, limit int) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(slidingWindow.Hash(), []string{key},
		fixedNow.Add(-time.Minute).UnixMilli(),
		fixedNow.UnixMilli(),
		limit,
		time.Minute.Milliseconds(),
		"req-1",
	)
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		method, path string
		want         Bucket
	}{
		{http.MethodGet, "/health", BucketHealth},
		{http.MethodGet, "/metrics", BucketHealth},
		{http.MethodPost, "/api/v1/orders", BucketCheckout},
		{http.MethodPost, "/api/v1/orders/:id/cancel", BucketCheckout},
		{http.MethodGet, "/api/v1/orders/:id", BucketAccount},
		{http.MethodGet, "/api/v1/users/orders", BucketAccount},
		{http.MethodPost, "/api/v1/events/:id/waitlist/join", BucketInventory},
		{http.MethodGet, "/api/v1/ticket-types/:id/seats", BucketInventory},
		{http.MethodGet, "/api/v1/events/:id/promos/:code", BucketInventory},
		{http.MethodGet, "/api/v1/events/:id", BucketBrowse},
		{http.MethodGet, "/api/v1/reports/utilization", BucketReports},
		{http.MethodGet, "/api/v1/reports/events/:id/occupancy", BucketReports},
		{http.MethodGet, "", BucketDefault},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BucketFor(tc.method, tc.path), tc.method+" "+tc.path)
	}
}

func TestLimit_FallsBackToDefault(t *testing.T) {
	limiter, _ := newTestLimiter(testConfig())

	assert.Equal(t, 5, limiter.Limit(BucketCheckout))
	assert.Equal(t, 60, limiter.Limit(BucketAccount))
}

func TestIsAllowed_WhitelistedSkipsRedis(t *testing.T) {
	limiter, mock := newTestLimiter(testConfig())

	result, err := limiter.IsAllowed(context.Background(), "10.0.0.1", BucketCheckout)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAllowed_DisabledSkipsRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	limiter, mock := newTestLimiter(cfg)

	result, err := limiter.IsAllowed(context.Background(), "192.168.1.9", BucketBrowse)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAllowed_SlidingWindow(t *testing.T) {
	t.Run("under the limit", func(t *testing.T) {
		limiter, mock := newTestLimiter(testConfig())
		expectWindow(mock, Key("192.168.1.9", BucketCheckout), 5).SetVal([]interface{}{int64(2), int64(3)})

		result, err := limiter.IsAllowed(context.Background(), "192.168.1.9", BucketCheckout)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Remaining)
		assert.Equal(t, fixedNow.Add(time.Minute).Unix(), result.ResetTime)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over the limit", func(t *testing.T) {
		limiter, mock := newTestLimiter(testConfig())
		expectWindow(mock, Key("192.168.1.9", BucketCheckout), 5).SetVal([]interface{}{int64(6), int64(0)})

		result, err := limiter.IsAllowed(context.Background(), "192.168.1.9", BucketCheckout)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)
	})

	t.Run("redis error", func(t *testing.T) {
		limiter, mock := newTestLimiter(testConfig())
		expectWindow(mock, Key("192.168.1.9", BucketCheckout), 5).SetErr(errors.New("connection refused"))

		_, err := limiter.IsAllowed(context.Background(), "192.168.1.9", BucketCheckout)
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(limiter *RateLimiter) *httptest.ResponseRecorder {
		engine := gin.New()
		engine.Use(Middleware(limiter))
		engine.POST("/api/v1/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	t.Run("rejects over budget", func(t *testing.T) {
		limiter, mock := newTestLimiter(testConfig())
		expectWindow(mock, Key("203.0.113.7", BucketCheckout), 5).SetVal([]interface{}{int64(6), int64(0)})

		rec := serve(limiter)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("fails open on redis errors", func(t *testing.T) {
		limiter, mock := newTestLimiter(testConfig())
		expectWindow(mock, Key("203.0.113.7", BucketCheckout), 5).SetErr(errors.New("connection refused"))

		rec := serve(limiter)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}
