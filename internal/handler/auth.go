package handler

import (
	"net/http"
	"time"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	actionSignIn  = "signIn"
	actionSignOut = "signOut"
)

type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// Get reports the current user, or {user: null} with 401.
func (h *AuthHandler) Get(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

func (h *AuthHandler) Post(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest("Invalid request body"))
		return
	}

	switch req.Action {
	case actionSignIn:
		h.signIn(c, req)
	case actionSignOut:
		h.signOut(c)
	default:
		c.Error(apperrors.NewInvalidRequest("Invalid action"))
	}
}

func (h *AuthHandler) signIn(c *gin.Context, req model.AuthRequest) {
	sess, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	h.setCookie(c, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"user":       sess.User,
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt.UTC(),
	})
}

func (h *AuthHandler) signOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), middleware.IdentityFrom(c)); err != nil {
		c.Error(err)
		return
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
