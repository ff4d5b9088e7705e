package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// ILimiter is satisfied by both the Redis sliding-window limiter and the
// in-memory fallback.
type ILimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit throttles per authenticated user, falling back to the client IP
// for unauthenticated routes. Over-limit requests get 429.
func RateLimit(limiter ILimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetString("user_id")
		if key == "" {
			key = ctx.ClientIP()
		}
		ok, err := limiter.Allow(ctx.Request.Context(), key)
		if err != nil {
			// The limiter backend being down should not take the API with it.
			logger.GetLogger().WithField("error", err).Warn("rate limiter unavailable, allowing request")
			ctx.Next()
			return
		}
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ResError{
				ErrorCode: "rate_limited",
				Message:   "Too many requests. Please slow down.",
			})
			return
		}
		ctx.Next()
	}
}
