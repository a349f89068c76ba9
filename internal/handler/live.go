package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/unifygate/internal/live"
	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// OwnershipChecker answers whether a user registered an installation.
type OwnershipChecker interface {
	Owns(ctx context.Context, userID, installationID string) (bool, error)
}

type LiveHandler struct {
	feed       *live.Feed
	owners     OwnershipChecker
	relays     *live.RelayGroup // nil when upstream relaying is off
	subBuffer  int
	pingPeriod time.Duration
	upgrader   websocket.Upgrader
}

func NewLiveHandler(feed *live.Feed, owners OwnershipChecker, relays *live.RelayGroup, subBuffer int) *LiveHandler {
	return &LiveHandler{
		feed:       feed,
		owners:     owners,
		relays:     relays,
		subBuffer:  subBuffer,
		pingPeriod: live.PingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type streamFrame struct {
	Kind   string       `json:"kind"` // snapshot or event
	Events []live.Event `json:"events,omitempty"`
	Event  *live.Event  `json:"event,omitempty"`
}

// installationScope resolves and authorizes ?installation=. It writes the error itself.
func (h *LiveHandler) installationScope(c *gin.Context) (string, string, bool) {
	id := middleware.IdentityFrom(c)
	instID := strings.TrimSpace(c.Query("installation"))
	if instID == "" {
		c.Error(apperrors.NewInvalidRequest("Installation ID required"))
		return "", "", false
	}
	owns, err := h.owners.Owns(c.Request.Context(), id.UserID, instID)
	if err != nil {
		c.Error(err)
		return "", "", false
	}
	if !owns {
		c.Error(apperrors.NewNotFound("Installation not found"))
		return "", "", false
	}
	return id.UserID, instID, true
}

// Events serves GET /api/live/events, newest first.
func (h *LiveHandler) Events(c *gin.Context) {
	userID, instID, ok := h.installationScope(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events":   h.feed.Recent(userID, instID, 0),
		"capacity": h.feed.Capacity(),
	})
}

// Stream serves GET /api/live/stream: a snapshot frame, then one frame per event.
func (h *LiveHandler) Stream(c *gin.Context) {
	userID, instID, ok := h.installationScope(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn("live stream upgrade failed", "error", err, "user_id", userID)
		return
	}
	defer conn.Close()

	snapshot, events, cancel := h.feed.SubscribeWithSnapshot(userID, instID, h.subBuffer)
	defer cancel()
	if h.relays != nil {
		release := h.relays.Acquire(userID, instID)
		defer release()
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(streamFrame{Kind: "snapshot", Events: snapshot}); err != nil {
		return
	}

	// the read side only detects the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamFrame{Kind: "event", Event: &ev}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
