// Package ingest sends telemetry events to the DevMetrics ingestion API.
//
// Delivery is fire-and-forget: one POST with a short timeout, no retries,
// no queue. A client without an API key is disabled and reports every send
// as skipped.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ingestPath     = "/api/v1/ingest"
	userAgent      = "DevMetrics-Hook/2.0"
	requestTimeout = 10 * time.Second
)

// ErrNoAPIKey marks a send that was skipped because no API key is
// configured. It is a normal no-op, not a transport failure.
var ErrNoAPIKey = errors.New("no API key configured")

// Doer is the subset of http.Client the sender needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Response is the ingestion service's reply to an accepted event. Only the
// remote session identifier is consumed, and only for start events.
type Response struct {
	ID string `json:"id"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    Doer
	logger  *slog.Logger
}

// New creates a sender for the given endpoint. An empty apiKey yields a
// disabled client. A custom Doer may be supplied for testing; otherwise a
// plain http.Client with a fixed timeout is used.
func New(baseURL, apiKey string, logger *slog.Logger, httpClient ...Doer) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
	if len(httpClient) > 0 && httpClient[0] != nil {
		c.http = httpClient[0]
	} else {
		c.http = &http.Client{Timeout: requestTimeout}
	}
	return c
}

// Enabled reports whether sends will actually reach the network.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Send posts one event and returns the parsed response. A disabled client
// returns ErrNoAPIKey without touching the network.
func (c *Client) Send(ctx context.Context, event string, data any) (*Response, error) {
	if !c.Enabled() {
		c.logger.Debug("no API key configured, skipping event", "event", event)
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request error", "event", event, "error", err)
		return nil, fmt.Errorf("send event %s: %w", event, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for the debug log; servers often
		// explain rejections there.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("http error", "event", event, "status", resp.StatusCode, "body", string(snippet))
		return nil, fmt.Errorf("send event %s: unexpected status %d", event, resp.StatusCode)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Debug("failed to decode response", "event", event, "error", err)
		return nil, fmt.Errorf("decode response for %s: %w", event, err)
	}

	c.logger.Debug("event sent", "event", event, "id", parsed.ID)
	return &parsed, nil
}
