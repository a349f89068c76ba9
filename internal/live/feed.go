package live

import (
	"sync"
	"time"

	"github.com/GoPolymarket/unifygate/internal/pkg/metrics"
	"github.com/google/uuid"
)

const (
	DefaultCapacity   = 100
	DefaultSubscriber = 32
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

type Event struct {
	ID             string                 `json:"id"`
	Timestamp      time.Time              `json:"timestamp"`
	Type           string                 `json:"type"`
	SubType        string                 `json:"sub_type"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Severity       string                 `json:"severity"`
	UserID         string                 `json:"-"`
	InstallationID string                 `json:"installation_id"`
}

type subscription struct {
	userID         string
	installationID string
	ch             chan Event
}

func (s *subscription) matches(ev Event) bool {
	return s.userID == ev.UserID && (s.installationID == "" || s.installationID == ev.InstallationID)
}

// Feed keeps the most recent events in a fixed ring and fans new ones out to
// subscribers. A slow subscriber loses its oldest queued events, never blocks Publish.
type Feed struct {
	mu       sync.Mutex
	capacity int
	ring     []Event
	next     int
	subs     map[uint64]*subscription
	nextID   uint64
	now      func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		ring:     make([]Event, 0, capacity),
		subs:     make(map[uint64]*subscription),
		now:      time.Now,
	}
}

func (f *Feed) Capacity() int {
	return f.capacity
}

func (f *Feed) Publish(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = f.now().UTC()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.ring) < f.capacity {
		f.ring = append(f.ring, ev)
	} else {
		f.ring[f.next] = ev
	}
	f.next = (f.next + 1) % f.capacity

	for _, sub := range f.subs {
		if sub.matches(ev) {
			deliver(sub.ch, ev)
		}
	}
	metrics.FeedEvents.WithLabelValues(ev.Type).Inc()
	return ev
}

// deliver is only called with f.mu held, so Publish is the sole sender on ch.
func deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
		metrics.FeedDropped.Inc()
	default:
	}
	select {
	case ch <- ev:
	default:
		metrics.FeedDropped.Inc()
	}
}

// Recent returns stored events for one owner, newest first. An empty installationID
// covers all of the owner's installations; limit <= 0 means everything retained.
func (f *Feed) Recent(userID, installationID string, limit int) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentLocked(userID, installationID, limit)
}

func (f *Feed) recentLocked(userID, installationID string, limit int) []Event {
	filter := subscription{userID: userID, installationID: installationID}
	total := len(f.ring)
	if limit <= 0 || limit > total {
		limit = total
	}
	out := make([]Event, 0, limit)
	for i := 0; i < total && len(out) < limit; i++ {
		idx := (f.next - 1 - i + 2*f.capacity) % f.capacity
		if idx >= total {
			continue
		}
		if ev := f.ring[idx]; filter.matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Subscribe registers a bounded queue of the given size. The returned cancel func
// removes the subscription and closes the channel; calling it more than once is safe.
func (f *Feed) Subscribe(userID, installationID string, size int) (<-chan Event, func()) {
	_, ch, cancel := f.subscribe(userID, installationID, size, false)
	return ch, cancel
}

// SubscribeWithSnapshot is Subscribe plus Recent taken atomically: every event is in
// exactly one of the snapshot or the channel.
func (f *Feed) SubscribeWithSnapshot(userID, installationID string, size int) ([]Event, <-chan Event, func()) {
	return f.subscribe(userID, installationID, size, true)
}

func (f *Feed) subscribe(userID, installationID string, size int, snapshot bool) ([]Event, <-chan Event, func()) {
	if size <= 0 {
		size = DefaultSubscriber
	}
	sub := &subscription{userID: userID, installationID: installationID, ch: make(chan Event, size)}

	f.mu.Lock()
	var recent []Event
	if snapshot {
		recent = f.recentLocked(userID, installationID, 0)
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(sub.ch)
		})
	}
	return recent, sub.ch, cancel
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
