package live

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentKeepsNewestWithinCapacity(t *testing.T) {
	f := NewFeed(3)
	for i := 0; i < 5; i++ {
		f.Publish(Event{UserID: "u1", InstallationID: "INST-1", Type: "robot", Message: fmt.Sprint(i)})
	}

	got := f.Recent("u1", "INST-1", 0)
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].Message)
	assert.Equal(t, "3", got[1].Message)
	assert.Equal(t, "2", got[2].Message)
}

func TestRecentPartialRing(t *testing.T) {
	f := NewFeed(DefaultCapacity)
	f.Publish(Event{UserID: "u1", Message: "a"})
	f.Publish(Event{UserID: "u1", Message: "b"})

	got := f.Recent("u1", "", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Message)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, SeverityInfo, got[0].Severity)
}

func TestRecentScopedByOwner(t *testing.T) {
	f := NewFeed(10)
	f.Publish(Event{UserID: "u1", InstallationID: "INST-1", Message: "mine"})
	f.Publish(Event{UserID: "u2", InstallationID: "INST-1", Message: "theirs"})
	f.Publish(Event{UserID: "u1", InstallationID: "INST-2", Message: "other site"})

	got := f.Recent("u1", "INST-1", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].Message)
	assert.Len(t, f.Recent("u1", "", 0), 2)
}

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	f := NewFeed(10)
	ch, cancel := f.Subscribe("u1", "INST-1", 4)
	defer cancel()

	f.Publish(Event{UserID: "u2", InstallationID: "INST-1", Message: "skip"})
	f.Publish(Event{UserID: "u1", InstallationID: "INST-1", Message: "hit"})

	ev := <-ch
	assert.Equal(t, "hit", ev.Message)
	assert.Len(t, ch, 0)
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	f := NewFeed(10)
	ch, cancel := f.Subscribe("u1", "", 2)
	defer cancel()

	for i := 0; i < 5; i++ {
		f.Publish(Event{UserID: "u1", Message: fmt.Sprint(i)})
	}

	require.Len(t, ch, 2)
	assert.Equal(t, "3", (<-ch).Message)
	assert.Equal(t, "4", (<-ch).Message)
}

func TestCancelClosesAndIsIdempotent(t *testing.T) {
	f := NewFeed(10)
	ch, cancel := f.Subscribe("u1", "", 1)
	assert.Equal(t, 1, f.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, f.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	// publishing after cancel must not panic on the closed channel
	f.Publish(Event{UserID: "u1"})
}

func TestSubscribeWithSnapshotSplitsEvents(t *testing.T) {
	f := NewFeed(10)
	f.Publish(Event{UserID: "u1", Message: "before"})

	snapshot, ch, cancel := f.SubscribeWithSnapshot("u1", "", 4)
	defer cancel()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "before", snapshot[0].Message)
	assert.Len(t, ch, 0)

	f.Publish(Event{UserID: "u1", Message: "after"})
	require.Len(t, ch, 1)
	assert.Equal(t, "after", (<-ch).Message)
	assert.Equal(t, 1, f.Subscribers())
}

func TestSubscribeWithSnapshotConcurrentPublish(t *testing.T) {
	f := NewFeed(1000)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			f.Publish(Event{UserID: "u1", Message: fmt.Sprint(i)})
		}
	}()

	snapshot, ch, cancel := f.SubscribeWithSnapshot("u1", "", 256)
	<-done
	cancel()

	seen := make(map[string]int)
	for _, ev := range snapshot {
		seen[ev.ID]++
	}
	for ev := range ch {
		seen[ev.ID]++
	}
	assert.Len(t, seen, 200)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}
