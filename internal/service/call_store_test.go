package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/GoPolymarket/unifygate/internal/config"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCallStoreRingAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCallStore(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(ctx, &model.CallRecord{
			UserID:         "u1",
			InstallationID: "INST-1",
			Endpoint:       fmt.Sprintf("/e%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Insert(ctx, &model.CallRecord{UserID: "u2", Endpoint: "/other", CreatedAt: base}))
	assert.Equal(t, uint64(3), store.Evicted())

	recs, err := store.List(ctx, model.CallQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/e4", recs[0].Endpoint)
	assert.Equal(t, "/e3", recs[1].Endpoint)

	from := base.Add(4 * time.Minute)
	recs, err = store.List(ctx, model.CallQuery{UserID: "u1", From: &from})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/e4", recs[0].Endpoint)

	recs, err = store.List(ctx, model.CallQuery{UserID: "u2", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
}

type recordingPublisher struct {
	got []*model.CallRecord
	err error
}

func (p *recordingPublisher) Publish(ctx context.Context, rec *model.CallRecord) error {
	p.got = append(p.got, rec)
	return p.err
}

func TestCallLogServiceMirrorsAfterInsert(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: fmt.Errorf("broker down")}
	svc := NewCallLogService(NewMemoryCallStore(10), pub)

	require.NoError(t, svc.Record(ctx, &model.CallRecord{UserID: "u1", Endpoint: "/x"}))
	assert.Len(t, pub.got, 1)

	recs, err := svc.List(ctx, model.CallQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestLimiterRegistryPerUser(t *testing.T) {
	reg := NewLimiterRegistry(config.RateLimitConfig{QPS: 1, Burst: 2})
	assert.True(t, reg.Allow("u1"))
	assert.True(t, reg.Allow("u1"))
	assert.False(t, reg.Allow("u1"))
	assert.True(t, reg.Allow("u2"))

	unlimited := NewLimiterRegistry(config.RateLimitConfig{})
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow("u1"))
	}
}

func TestMemoryRevocationStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "s1", time.Minute))
	revoked, err := store.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
