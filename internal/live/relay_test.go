package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpstream(t *testing.T) {
	evs := decodeUpstream([]byte(`{"type":"robot","event":"error_detected","message":"R12 stalled","severity":"error","data":{"robot":12}}`))
	require.Len(t, evs, 1)
	assert.Equal(t, "robot", evs[0].Type)
	assert.Equal(t, "error_detected", evs[0].SubType)
	assert.Equal(t, SeverityError, evs[0].Severity)
	assert.Equal(t, float64(12), evs[0].Data["robot"])

	evs = decodeUpstream([]byte(`[{"type":"port","sub_type":"bin_presented"},{"message":"no type"},{"type":"battery","severity":"loud"}]`))
	require.Len(t, evs, 2)
	assert.Equal(t, "bin_presented", evs[0].SubType)
	assert.Equal(t, SeverityInfo, evs[1].Severity)

	assert.Empty(t, decodeUpstream([]byte("ping")))
}

func newUpstreamStream(t *testing.T, frames ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestRelayPublishesIntoFeed(t *testing.T) {
	wsURL := newUpstreamStream(t, `{"type":"grid","sub_type":"bin_placed","message":"bin 7"}`)
	feed := NewFeed(10)
	ch, cancelSub := feed.Subscribe("u1", "INST-1", 4)
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	group := NewRelayGroup(ctx, feed, func(userID, installationID string) URLSource {
		return func(context.Context) (string, error) { return wsURL, nil }
	})
	release := group.Acquire("u1", "INST-1")
	again := group.Acquire("u1", "INST-1")
	assert.Equal(t, 1, group.Active())

	select {
	case ev := <-ch:
		assert.Equal(t, "grid", ev.Type)
		assert.Equal(t, "bin 7", ev.Message)
		assert.Equal(t, "INST-1", ev.InstallationID)
	case <-time.After(5 * time.Second):
		t.Fatal("no event relayed")
	}

	release()
	release()
	assert.Equal(t, 1, group.Active())
	again()
	assert.Equal(t, 0, group.Active())

	cancel()
	group.Wait()
}
