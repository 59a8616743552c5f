package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig holds the settings for one limiter preset.
type RateLimitConfig struct {
	// MaxRequests per Window.
	MaxRequests int
	Window      time.Duration
	// KeyPrefix namespaces the Redis counters.
	KeyPrefix string
}

// DefaultRateLimitConfig is the baseline limit for OTP and profile endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 20,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:api",
	}
}

// StrictRateLimitConfig protects register, login and the reset flow from
// brute force.
func StrictRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:api:strict",
	}
}

// RateLimiter is a Redis-backed fixed-window limiter keyed by IP and route.
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter creates a new RateLimiter.
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit returns a gin middleware enforcing the given preset. The counter key
// combines client IP and the route pattern.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// Fail open on Redis trouble; auth still holds the line.
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request.", key, err)
			c.Next()
			return
		}

		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for IP=%s path=%s. Count=%d, Limit=%d",
				clientIP, path, count, cfg.MaxRequests)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests. Please try again later.",
				"details": gin.H{"retry_after": retryAfter},
			})
			return
		}

		c.Next()
	}
}
