package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	ReconnBaseDelay = 1 * time.Second
	ReconnMaxDelay  = 30 * time.Second
	PingPeriod      = 15 * time.Second // keep-alive interval for both directions
)

// URLSource returns a fresh streaming URL. Unify URLs expire, so it is called on
// every (re)connect.
type URLSource func(ctx context.Context) (string, error)

// Relay copies messages from one Unify live stream into the feed.
type Relay struct {
	feed           *Feed
	userID         string
	installationID string
	source         URLSource
	dialer         *websocket.Dialer
	baseDelay      time.Duration
	maxDelay       time.Duration
}

func NewRelay(feed *Feed, userID, installationID string, source URLSource) *Relay {
	return &Relay{
		feed:           feed,
		userID:         userID,
		installationID: installationID,
		source:         source,
		dialer:         websocket.DefaultDialer,
		baseDelay:      ReconnBaseDelay,
		maxDelay:       ReconnMaxDelay,
	}
}

// Run reconnects with exponential backoff until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	delay := r.baseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		connected, err := r.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = r.baseDelay
		}
		logger.Warn("live relay disconnected", "error", err,
			"user_id", r.userID, "installation_id", r.installationID, "retry_in", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (r *Relay) session(ctx context.Context) (connected bool, err error) {
	wsURL, err := r.source(ctx)
	if err != nil {
		return false, err
	}
	conn, _, err := r.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// no data or pong within PingPeriod plus slack means the stream is dead
	readTimeout := PingPeriod + 10*time.Second
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		for _, ev := range decodeUpstream(message) {
			ev.UserID = r.userID
			ev.InstallationID = r.installationID
			r.feed.Publish(ev)
		}
	}
}

type upstreamMessage struct {
	Type     string                 `json:"type"`
	SubType  string                 `json:"sub_type"`
	Event    string                 `json:"event"`
	Message  string                 `json:"message"`
	Severity string                 `json:"severity"`
	Data     map[string]interface{} `json:"data"`
}

// decodeUpstream accepts a single object or an array of them. Anything else is a
// keep-alive or control frame and yields nothing.
func decodeUpstream(raw []byte) []Event {
	var batch []upstreamMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single upstreamMessage
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil
		}
		batch = []upstreamMessage{single}
	}

	out := make([]Event, 0, len(batch))
	for _, m := range batch {
		if m.Type == "" {
			continue
		}
		sub := m.SubType
		if sub == "" {
			sub = m.Event
		}
		out = append(out, Event{
			Type:     m.Type,
			SubType:  sub,
			Message:  m.Message,
			Data:     m.Data,
			Severity: normalizeSeverity(m.Severity),
		})
	}
	return out
}

func normalizeSeverity(s string) string {
	switch s {
	case SeverityWarning, SeverityError:
		return s
	default:
		return SeverityInfo
	}
}

// RelayGroup runs at most one relay per (user, installation) while at least one
// local subscriber holds it.
type RelayGroup struct {
	ctx    context.Context
	feed   *Feed
	source func(userID, installationID string) URLSource

	mu     sync.Mutex
	active map[string]*relayRef
	wg     sync.WaitGroup
}

type relayRef struct {
	refs   int
	cancel context.CancelFunc
}

func NewRelayGroup(ctx context.Context, feed *Feed, source func(userID, installationID string) URLSource) *RelayGroup {
	return &RelayGroup{
		ctx:    ctx,
		feed:   feed,
		source: source,
		active: make(map[string]*relayRef),
	}
}

// Acquire starts the relay if needed. The returned release is safe to call twice.
func (g *RelayGroup) Acquire(userID, installationID string) func() {
	key := userID + "/" + installationID

	g.mu.Lock()
	ref, ok := g.active[key]
	if !ok {
		ctx, cancel := context.WithCancel(g.ctx)
		ref = &relayRef{cancel: cancel}
		g.active[key] = ref
		relay := NewRelay(g.feed, userID, installationID, g.source(userID, installationID))
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			relay.Run(ctx)
		}()
	}
	ref.refs++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			ref.refs--
			if ref.refs == 0 {
				ref.cancel()
				delete(g.active, key)
			}
		})
	}
}

func (g *RelayGroup) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// Wait blocks until every relay has stopped; cancel the group's context first.
func (g *RelayGroup) Wait() {
	g.wg.Wait()
}
