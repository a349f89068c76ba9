package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/unifygate/internal/live"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/unify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveFixture(t *testing.T, handler http.HandlerFunc) (*LiveService, *MemoryLiveConnectionStore, *live.Feed) {
	t.Helper()
	installs := NewInstallationService(NewMemoryInstallationStore(), nil)
	_, err := installs.Create(context.Background(), "u1", model.CreateInstallationRequest{
		InstallationID: "INST-1", InstallationName: "Site", UnifyAPIToken: "tok-abc",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	conns := NewMemoryLiveConnectionStore()
	feed := live.NewFeed(10)
	client := unify.NewClient(unify.WithStreamURL(ts.URL + "/connect"))
	return NewLiveService(installs, client, conns, feed), conns, feed
}

func TestIssueLiveURL(t *testing.T) {
	svc, conns, feed := newLiveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token tok-abc" || r.URL.Query().Get("installations") != "INST-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(" wss://stream.example/abc \n"))
	})

	resp, err := svc.Issue(context.Background(), u1, "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example/abc", resp.WebsocketURL)
	assert.Equal(t, "INST-1", resp.InstallationID)
	assert.Equal(t, 600, resp.ExpiresIn)

	conn, err := conns.Get(context.Background(), "u1", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, model.LiveStatusActive, conn.Status)
	assert.Equal(t, "wss://stream.example/abc", conn.ConnectionURL)
	assert.False(t, conn.LastActivity.IsZero())

	assert.Len(t, feed.Recent("u1", "INST-1", 0), 1)
}

func TestIssueReplacesPreviousConnection(t *testing.T) {
	n := 0
	svc, conns, _ := newLiveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 1 {
			_, _ = w.Write([]byte("wss://first"))
			return
		}
		_, _ = w.Write([]byte("wss://second"))
	})
	_, err := svc.Issue(context.Background(), u1, "INST-1")
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), u1, "INST-1")
	require.NoError(t, err)

	conn, err := conns.Get(context.Background(), "u1", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://second", conn.ConnectionURL)
}

func TestIssueErrors(t *testing.T) {
	svc, conns, _ := newLiveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.Issue(context.Background(), u1, "")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPStatus)
	assert.Equal(t, "Installation ID required", appErr.Message)

	_, err = svc.Issue(context.Background(), u1, "INST-404")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.HTTPStatus)

	_, err = svc.Issue(context.Background(), u1, "INST-1")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.Equal(t, "Failed to get WebSocket URL from Unify API", appErr.Message)

	_, err = conns.Get(context.Background(), "u1", "INST-1")
	assert.Error(t, err)

	_, err = svc.Issue(context.Background(), nil, "INST-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrAuthFailed))
}

type brokenConnections struct {
	*MemoryLiveConnectionStore
}

func (brokenConnections) Upsert(ctx context.Context, conn *model.LiveConnection) error {
	return errors.New("connection reset")
}

func TestIssueSurvivesConnectionStoreFailure(t *testing.T) {
	svc, conns, _ := newLiveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wss://stream.example/abc"))
	})
	svc.conns = brokenConnections{MemoryLiveConnectionStore: conns}

	resp, err := svc.Issue(context.Background(), u1, "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example/abc", resp.WebsocketURL)
	assert.Equal(t, LiveURLExpiresIn, resp.ExpiresIn)
}

func TestIssueStoresConnectionAfterCancel(t *testing.T) {
	svc, conns, _ := newLiveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wss://stream.example/abc"))
	})
	svc.conns = ctxConnections{MemoryLiveConnectionStore: conns}
	ctx, cancel := context.WithCancel(context.Background())
	svc.issuer = cancellingIssuer{StreamIssuer: svc.issuer, cancel: cancel}

	_, err := svc.Issue(ctx, u1, "INST-1")
	require.NoError(t, err)

	conn, err := conns.Get(context.Background(), "u1", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example/abc", conn.ConnectionURL)
}

type ctxConnections struct {
	*MemoryLiveConnectionStore
}

func (c ctxConnections) Upsert(ctx context.Context, conn *model.LiveConnection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemoryLiveConnectionStore.Upsert(ctx, conn)
}

// cancellingIssuer cancels the request context once the URL has been obtained.
type cancellingIssuer struct {
	StreamIssuer
	cancel context.CancelFunc
}

func (i cancellingIssuer) ConnectURL(ctx context.Context, installationID, token string) (string, error) {
	u, err := i.StreamIssuer.ConnectURL(ctx, installationID, token)
	i.cancel()
	return u, err
}
