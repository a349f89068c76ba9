package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookie      = "unifygate_session"
	ContextIdentityKey = "identity"
	ContextTokenKey    = "session_token"
)

// SessionAuthenticator is the part of service.AuthService the middleware needs.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

// SessionMiddleware resolves the caller from a bearer token or the session cookie.
// It never rejects; RequireSession does.
func SessionMiddleware(auth SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		id, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidSession) {
				logger.LogError(c.Request.Context(), err, "resolve session")
			}
			c.Next()
			return
		}
		c.Set(ContextIdentityKey, id)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// RequireSession aborts with 401 when no identity was resolved.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			_ = c.Error(apperrors.NewAuthFailed("Unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) *model.Identity {
	val, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	id, _ := val.(*model.Identity)
	return id
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
