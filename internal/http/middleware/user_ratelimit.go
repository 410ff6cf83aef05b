package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserRateLimit limits an action per user (not per IP) using Redis. The
// action name keeps tap syncs and reward draws on separate budgets. Requires
// the JWT middleware to have run first.
func UserRateLimit(action string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "url:" + action + ":" + strconv.FormatInt(userID, 10) + ":" +
			strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-UserRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		remaining := int64(maxRequests) - val
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-UserRateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-UserRateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if val > int64(maxRequests) {
			rlBlocked.WithLabelValues(action + ":" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for " + action,
				"retry_after": int(window.Seconds()),
			})
			return
		}

		rlRequests.WithLabelValues(action + ":" + c.FullPath()).Inc()
		c.Next()
	}
}
