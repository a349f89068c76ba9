package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/unifygate/internal/live"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/GoPolymarket/unifygate/internal/pkg/metrics"
)

const (
	LiveURLExpiresIn = 600

	msgInstallationRequired = "Installation ID required"
	msgLiveURLFailed        = "Failed to get WebSocket URL from Unify API"
)

// StreamIssuer obtains short-lived streaming URLs from Unify.
type StreamIssuer interface {
	ConnectURL(ctx context.Context, installationID, token string) (string, error)
}

// LiveService resolves streaming URLs and remembers the latest one per installation.
type LiveService struct {
	creds  CredentialSource
	issuer StreamIssuer
	conns  LiveConnectionRepo
	feed   *live.Feed
	now    func() time.Time
}

func NewLiveService(creds CredentialSource, issuer StreamIssuer, conns LiveConnectionRepo, feed *live.Feed) *LiveService {
	if conns == nil {
		conns = NewMemoryLiveConnectionStore()
	}
	return &LiveService{creds: creds, issuer: issuer, conns: conns, feed: feed, now: time.Now}
}

func (s *LiveService) Issue(ctx context.Context, id *model.Identity, installationID string) (*model.LiveURLResponse, error) {
	if id == nil {
		return nil, apperrors.NewAuthFailed(msgUnauthorized)
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, apperrors.NewInvalidRequest(msgInstallationRequired)
	}
	token, err := s.creds.Credential(ctx, id.UserID, installationID)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	wsURL, err := s.issuer.ConnectURL(ctx, installationID, token)
	if err != nil {
		metrics.LiveConnectionsIssued.WithLabelValues("failed").Inc()
		logger.LogError(ctx, err, "obtain live connection url",
			"user_id", id.UserID, "installation_id", installationID)
		s.publish(id, installationID, "connection_failed", live.SeverityError)
		return nil, apperrors.New(apperrors.ErrUpstreamUnreachable, msgLiveURLFailed, err).WithStatus(http.StatusBadGateway)
	}

	conn := &model.LiveConnection{
		UserID:         id.UserID,
		InstallationID: installationID,
		ConnectionURL:  wsURL,
		Status:         model.LiveStatusActive,
		LastActivity:   s.now().UTC(),
	}
	storeCtx, cancel := persistContext(ctx)
	err = s.conns.Upsert(storeCtx, conn)
	cancel()
	if err != nil {
		logger.LogError(ctx, err, "store live connection",
			"user_id", id.UserID, "installation_id", installationID)
	}
	metrics.LiveConnectionsIssued.WithLabelValues("issued").Inc()
	s.publish(id, installationID, "live_connection", live.SeverityInfo)

	return &model.LiveURLResponse{
		WebsocketURL:   wsURL,
		InstallationID: installationID,
		ExpiresIn:      LiveURLExpiresIn,
	}, nil
}

func (s *LiveService) publish(id *model.Identity, installationID, subType, severity string) {
	if s.feed == nil {
		return
	}
	msg := "Live connection issued"
	if severity == live.SeverityError {
		msg = msgLiveURLFailed
	}
	s.feed.Publish(live.Event{
		Type:           "system",
		SubType:        subType,
		Message:        msg,
		Severity:       severity,
		UserID:         id.UserID,
		InstallationID: installationID,
	})
}
