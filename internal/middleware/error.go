package middleware

import (
	"net/http"

	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached with c.Error as {"error", "code"}.
// It must be the outermost middleware.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperrors.Wrap(c.Errors.Last().Err)

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"status", appErr.HTTPStatus,
			"request_id", c.GetString(ContextRequestID),
			"client_ip", c.ClientIP(),
		}
		if id := IdentityFrom(c); id != nil {
			logFields = append(logFields, "user_id", id.UserID)
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "request failed", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.HTTPStatus, appErr.Public())
	}
}

// Recovery turns panics into the generic internal error.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.NewInternal(nil).Public())
	})
}
