package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/unifygate/internal/catalog"
	"github.com/GoPolymarket/unifygate/internal/live"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/GoPolymarket/unifygate/internal/pkg/metrics"
	"github.com/GoPolymarket/unifygate/internal/unify"
)

const msgInvalidPath = "Invalid API path"

// UpstreamClient is the part of unify.Client the proxy needs.
type UpstreamClient interface {
	Get(ctx context.Context, endpoint, token string, params map[string]string) (unify.Payload, error)
}

// CredentialSource resolves the Unify token a user stored for an installation.
type CredentialSource interface {
	Credential(ctx context.Context, userID, installationID string) (string, error)
}

// ProxyService forwards read requests to Unify on behalf of an authenticated user and
// records one telemetry row for every upstream attempt.
type ProxyService struct {
	creds          CredentialSource
	upstream       UpstreamClient
	calls          *CallLogService
	feed           *live.Feed
	catalog        *catalog.Catalog
	enforceCatalog bool
	now            func() time.Time
}

type ProxyOption func(*ProxyService)

// WithCatalog labels metrics by endpoint name; enforce also rejects paths that fit no
// known endpoint.
func WithCatalog(c *catalog.Catalog, enforce bool) ProxyOption {
	return func(p *ProxyService) {
		p.catalog = c
		p.enforceCatalog = enforce && c != nil
	}
}

func WithFeed(feed *live.Feed) ProxyOption {
	return func(p *ProxyService) {
		p.feed = feed
	}
}

func NewProxyService(creds CredentialSource, upstream UpstreamClient, calls *CallLogService, opts ...ProxyOption) *ProxyService {
	p := &ProxyService{
		creds:    creds,
		upstream: upstream,
		calls:    calls,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SplitPath turns the wildcard part of /api/unify/*path into segments.
func SplitPath(raw string) []string {
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "/")
}

// ValidateSegments checks the path shape: installations/<id>[/...]. Segments arrive
// decoded, so empty, relative, separator, query, fragment and escape characters are
// all refused rather than re-encoded.
func ValidateSegments(segments []string) error {
	if len(segments) < 2 || segments[0] != "installations" {
		return apperrors.NewInvalidRequest(msgInvalidPath)
	}
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\?#%`) {
			return apperrors.NewInvalidRequest(msgInvalidPath)
		}
	}
	return nil
}

// LastValues flattens a query keeping the last value of repeated keys.
func LastValues(q url.Values) map[string]string {
	params := make(map[string]string, len(q))
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		params[key] = values[len(values)-1]
	}
	return params
}

// Forward runs one proxied call. Errors are always *apperrors.AppError; upstream
// failures carry the status to respond with.
func (p *ProxyService) Forward(ctx context.Context, id *model.Identity, segments []string, query url.Values) (unify.Payload, error) {
	if id == nil {
		return nil, apperrors.NewAuthFailed(msgUnauthorized)
	}
	if err := ValidateSegments(segments); err != nil {
		return nil, err
	}
	endpoint := "/" + strings.Join(segments, "/")
	label := "other"
	if p.catalog != nil {
		if ep, ok := p.catalog.Lookup(endpoint); ok {
			label = ep.Name
		} else if p.enforceCatalog {
			return nil, apperrors.NewInvalidRequest(msgInvalidPath)
		}
	}

	installationID := segments[1]
	token, err := p.creds.Credential(ctx, id.UserID, installationID)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	start := p.now()
	payload, callErr := p.upstream.Get(ctx, endpoint, token, LastValues(query))
	elapsed := p.now().Sub(start)

	rec := &model.CallRecord{
		UserID:         id.UserID,
		InstallationID: installationID,
		Endpoint:       endpoint,
		Method:         http.MethodGet,
		ResponseStatus: http.StatusOK,
		ResponseTimeMs: elapsed.Milliseconds(),
	}
	var appErr *apperrors.AppError
	if callErr != nil {
		appErr = classifyUpstream(callErr)
		msg := appErr.Public().Message
		rec.ResponseStatus = appErr.HTTPStatus
		rec.ErrorMessage = &msg
	}

	if err := p.calls.Record(ctx, rec); err != nil {
		logger.LogError(ctx, err, "write call record",
			"user_id", id.UserID, "installation_id", installationID, "endpoint", endpoint)
	}
	status := strconv.Itoa(rec.ResponseStatus)
	metrics.UpstreamCallsTotal.WithLabelValues(label, status).Inc()
	metrics.UpstreamLatency.WithLabelValues(label).Observe(elapsed.Seconds())
	p.publish(rec)

	if appErr != nil {
		return nil, appErr
	}
	return payload, nil
}

func classifyUpstream(err error) *apperrors.AppError {
	var upErr *unify.UpstreamError
	if errors.As(err, &upErr) {
		return apperrors.New(apperrors.ErrUpstream, upErr.Message, nil).WithStatus(upErr.Status)
	}
	var unreachable *unify.UnreachableError
	if errors.As(err, &unreachable) {
		return apperrors.New(apperrors.ErrUpstreamUnreachable, unreachable.Error(), nil)
	}
	return apperrors.NewInternal(err)
}

func (p *ProxyService) publish(rec *model.CallRecord) {
	if p.feed == nil {
		return
	}
	ev := live.Event{
		Type:           "system",
		SubType:        "api_request",
		Message:        "GET " + rec.Endpoint + " -> " + strconv.Itoa(rec.ResponseStatus),
		UserID:         rec.UserID,
		InstallationID: rec.InstallationID,
		Data: map[string]interface{}{
			"endpoint":         rec.Endpoint,
			"response_status":  rec.ResponseStatus,
			"response_time_ms": rec.ResponseTimeMs,
		},
		Severity: live.SeverityInfo,
	}
	switch {
	case rec.ResponseStatus >= 500:
		ev.Severity = live.SeverityError
	case rec.ResponseStatus >= 400:
		ev.Severity = live.SeverityWarning
	}
	p.feed.Publish(ev)
}
