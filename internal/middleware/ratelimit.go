package middleware

import (
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware applies the caller's token bucket. Use it after RequireSession.
func RateLimitMiddleware(limits *service.LimiterRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id == nil {
			_ = c.Error(apperrors.NewAuthFailed("Unauthorized"))
			c.Abort()
			return
		}
		if !limits.Allow(id.UserID) {
			c.Header("Retry-After", "1")
			_ = c.Error(apperrors.New(apperrors.ErrRateLimited, "Rate limit exceeded", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
