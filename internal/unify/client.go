// Package unify talks to the Unify REST API and its live-connection issuer.
package unify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/GoPolymarket/unifygate/internal/config"
)

const (
	HeaderAPIAuthorization = "API-Authorization"
	tokenScheme            = "Token "
)

// UpstreamError means Unify answered with a non-2xx status.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// UnreachableError means no HTTP response was received at all.
type UnreachableError struct {
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("Failed to fetch from Unify API: %v", e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// ErrInvalidPayload is returned when a 2xx body does not decode as JSON.
var ErrInvalidPayload = errors.New("unify returned a non-JSON payload")

// Payload is an upstream body forwarded without interpretation.
type Payload = json.RawMessage

type Client struct {
	baseURL    string
	streamURL  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithStreamURL(stream string) Option {
	return func(c *Client) {
		if stream != "" {
			c.streamURL = stream
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    config.DefaultUnifyBaseURL,
		streamURL:  config.DefaultUnifyStreamURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig applies the upstream section; a zero timeout keeps no deadline.
func NewClientFromConfig(cfg config.UpstreamConfig) *Client {
	hc := &http.Client{}
	if t := cfg.Timeout(); t > 0 {
		hc.Timeout = t
	}
	return NewClient(WithBaseURL(cfg.BaseURL), WithStreamURL(cfg.StreamURL), WithHTTPClient(hc))
}

// Get performs one authenticated GET against endpoint (already expanded, leading '/').
// Query parameters with empty values are dropped.
func (c *Client) Get(ctx context.Context, endpoint, token string, params map[string]string) (Payload, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("build unify url: %w", err)
	}
	q := u.Query()
	for key, value := range params {
		if value == "" {
			continue
		}
		q.Add(key, value)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build unify request: %w", err)
	}
	req.Header.Set(HeaderAPIAuthorization, tokenScheme+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Message: statusMessage(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Cause: err}
	}
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}
	return Payload(body), nil
}

// ErrStreamURL is returned for any failure to obtain a live connection URL.
var ErrStreamURL = errors.New("unify live connection url unavailable")

// ConnectURL asks the live issuer for a short-lived streaming URL. The issuer answers
// with the URL as plain text.
func (c *Client) ConnectURL(ctx context.Context, installationID, token string) (string, error) {
	u, err := url.Parse(c.streamURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamURL, err)
	}
	q := u.Query()
	q.Set("installations", installationID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamURL, err)
	}
	req.Header.Set("Authorization", tokenScheme+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %s", ErrStreamURL, statusMessage(resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamURL, err)
	}
	return strings.TrimSpace(string(body)), nil
}

func statusMessage(code int) string {
	return fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
}
