package handler

import (
	"net/http"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

type ProxyHandler struct {
	svc *service.ProxyService
}

func NewProxyHandler(svc *service.ProxyService) *ProxyHandler {
	return &ProxyHandler{svc: svc}
}

// Forward serves GET /api/unify/*path. The upstream body is written unchanged.
func (h *ProxyHandler) Forward(c *gin.Context) {
	payload, err := h.svc.Forward(c.Request.Context(), middleware.IdentityFrom(c),
		service.SplitPath(c.Param("path")), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}
