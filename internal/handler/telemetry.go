package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	defaultTelemetryLimit = 100
	maxTelemetryLimit     = 1000
)

type TelemetryHandler struct {
	calls *service.CallLogService
}

func NewTelemetryHandler(calls *service.CallLogService) *TelemetryHandler {
	return &TelemetryHandler{calls: calls}
}

func (h *TelemetryHandler) List(c *gin.Context) {
	id := middleware.IdentityFrom(c)

	q := model.CallQuery{
		UserID:         id.UserID,
		InstallationID: strings.TrimSpace(c.Query("installation")),
		Limit:          defaultTelemetryLimit,
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Error(apperrors.NewInvalidRequest("invalid limit"))
			return
		}
		if parsed > maxTelemetryLimit {
			parsed = maxTelemetryLimit
		}
		q.Limit = parsed
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest("invalid from: " + err.Error()))
			return
		}
		q.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest("invalid to: " + err.Error()))
			return
		}
		q.To = &t
	}

	records, err := h.calls.List(c.Request.Context(), q)
	if err != nil {
		c.Error(apperrors.NewInternal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": records})
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
