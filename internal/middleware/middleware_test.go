package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/unifygate/internal/config"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	calls int
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	f.calls++
	if token == "good" {
		return &model.Identity{UserID: "u1", SessionID: "s1"}, nil
	}
	return nil, service.ErrInvalidSession
}

func newRouter(auth SessionAuthenticator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), RequestLogger(), SessionMiddleware(auth))
	handlers := append([]gin.HandlerFunc{RequireSession()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": IdentityFrom(c).UserID})
	})
	r.GET("/private", handlers...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireSession(t *testing.T) {
	auth := &fakeAuth{}
	r := newRouter(auth)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
			if tt.status == http.StatusUnauthorized {
				body := decodeError(t, w)
				assert.Equal(t, "Unauthorized", body["error"])
				assert.Equal(t, string(apperrors.ErrAuthFailed), body["code"])
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limits := service.NewLimiterRegistry(config.RateLimitConfig{QPS: 0.001, Burst: 1})
	r := newRouter(&fakeAuth{}, RateLimitMiddleware(limits))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, string(apperrors.ErrRateLimited), decodeError(t, w)["code"])
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: password authentication failed for user admin"))
	})
	r.GET("/mirrored", func(c *gin.Context) {
		_ = c.Error(apperrors.New(apperrors.ErrUpstream, "HTTP 503: Service Unavailable", nil).WithStatus(503))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "pq:")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mirrored", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "HTTP 503: Service Unavailable", decodeError(t, w)["error"])
}

func TestRecoveryRendersGenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w)["error"])
}
