package handler

import (
	"net/http"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth          *AuthHandler
	Installations *InstallationHandler
	Proxy         *ProxyHandler
	LiveURL       *LiveURLHandler
	Telemetry     *TelemetryHandler
	Catalog       *CatalogHandler
	Live          *LiveHandler
}

// NewRouter wires every route. An empty metricsPath disables the metrics endpoint.
func NewRouter(h Handlers, sessions middleware.SessionAuthenticator, limits *service.LimiterRegistry, metricsPath string) *gin.Engine {
	r := gin.New()

	// ErrorHandler stays outermost so it also renders what Recovery produces
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.SessionMiddleware(sessions))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "unifygate"})
	})
	if metricsPath != "" {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.GET("/auth", h.Auth.Get)
	api.POST("/auth", h.Auth.Post)

	authed := api.Group("")
	authed.Use(middleware.RequireSession())
	{
		authed.GET("/installations", h.Installations.List)
		authed.POST("/installations", h.Installations.Create)
		authed.GET("/telemetry", h.Telemetry.List)
		authed.GET("/unify-endpoints", h.Catalog.List)
		authed.GET("/live/events", h.Live.Events)
		authed.GET("/live/stream", h.Live.Stream)
	}

	upstream := api.Group("")
	upstream.Use(middleware.RequireSession())
	upstream.Use(middleware.RateLimitMiddleware(limits))
	{
		upstream.GET("/unify/*path", h.Proxy.Forward)
		upstream.GET("/websocket", h.LiveURL.Get)
	}

	return r
}
