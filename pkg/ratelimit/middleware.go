package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ticketing/internal/shared/utils/response"
	"ticketing/pkg/logger"
)

// Middleware enforces the bucket budget of the matched route
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		bucket := BucketFor(c.Request.Method, c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, bucket)
		if err != nil {
			// fail open while Redis is unreachable
			logger.GetDefault().WarnContext(c.Request.Context(), "Rate limit check failed",
				slog.String("bucket", string(bucket)),
				slog.String("error", err.Error()))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			c.Header("Retry-After", strconv.Itoa(int(rateLimiter.config.Window.Seconds())))
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, gin.H{
					"bucket":     bucket,
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

// BucketFor classifies a route template into a budget bucket
func BucketFor(method, path string) Bucket {
	switch {
	case path == "/health", path == "/ping", path == "/status", path == "/metrics":
		return BucketHealth

	case strings.Contains(path, "/reports/"):
		return BucketReports

	case strings.HasPrefix(path, "/api/") && strings.HasSuffix(path, "/orders") && method == http.MethodPost,
		strings.HasSuffix(path, "/orders/:id/cancel"):
		return BucketCheckout

	case strings.Contains(path, "/waitlist"),
		strings.HasSuffix(path, "/seats"),
		strings.Contains(path, "/promos/"):
		return BucketInventory

	case strings.Contains(path, "/users/"), strings.Contains(path, "/orders"):
		return BucketAccount

	case strings.Contains(path, "/events"):
		return BucketBrowse

	default:
		return BucketDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
