// Package agents is a client for the narrative agent service, which turns
// a simulation snapshot into generated market events, trend analysis, and
// supplier recommendations. Generation is slow, so the client carries a
// long timeout and callers fan the three calls out concurrently.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizsim/internal/resilience"
)

// MalformedResponseError indicates the agent service returned a body that
// could not be decoded.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("agents: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Snapshot is the simulation context sent with every generation request.
type Snapshot struct {
	BusinessType string          `json:"businessType"`
	Location     string          `json:"location"`
	CensusData   json.RawMessage `json:"censusData,omitempty"`
	CurrentMonth int             `json:"currentMonth"`
	CurrentYear  int             `json:"currentYear"`
}

// Client talks to the narrative agent service.
type Client interface {
	// GenerateEvents produces market events for the coming month.
	GenerateEvents(ctx context.Context, snap Snapshot) (json.RawMessage, error)
	// AnalyzeTrends interprets search-trend data in the business's context.
	AnalyzeTrends(ctx context.Context, snap Snapshot, trendData json.RawMessage) (json.RawMessage, error)
	// AnalyzeSuppliers recommends suppliers for the business type.
	AnalyzeSuppliers(ctx context.Context, snap Snapshot) (json.RawMessage, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.http.Timeout = d
	}
}

type client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an agent service client.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) GenerateEvents(ctx context.Context, snap Snapshot) (json.RawMessage, error) {
	return c.post(ctx, "/agents/events", snap)
}

func (c *client) AnalyzeTrends(ctx context.Context, snap Snapshot, trendData json.RawMessage) (json.RawMessage, error) {
	payload := struct {
		Snapshot
		TrendData json.RawMessage `json:"trendData,omitempty"`
	}{Snapshot: snap, TrendData: trendData}
	return c.post(ctx, "/agents/trends", payload)
}

func (c *client) AnalyzeSuppliers(ctx context.Context, snap Snapshot) (json.RawMessage, error) {
	return c.post(ctx, "/agents/suppliers", snap)
}

func (c *client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "agents: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "agents: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "agents: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "agents: read body"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(eris.Errorf("agents: status %d", resp.StatusCode), resp.StatusCode)
	default:
		return nil, eris.Errorf("agents: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	if !json.Valid(raw) {
		return nil, &MalformedResponseError{Body: truncate(raw, 500), Err: eris.New("invalid JSON")}
	}
	return json.RawMessage(raw), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
