package handler

import (
	"net/http"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

type LiveURLHandler struct {
	svc *service.LiveService
}

func NewLiveURLHandler(svc *service.LiveService) *LiveURLHandler {
	return &LiveURLHandler{svc: svc}
}

// Get serves GET /api/websocket?installation=<id>.
func (h *LiveURLHandler) Get(c *gin.Context) {
	resp, err := h.svc.Issue(c.Request.Context(), middleware.IdentityFrom(c), c.Query("installation"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
