// Package acs fetches American Community Survey variables for a census
// tract from the Census Bureau data API.
package acs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizsim/internal/resilience"
)

const defaultBaseURL = "https://api.census.gov/data"

// ErrNoData means the API answered but has no rows for the tract. The API
// reports this as a response with fewer than two rows (header + values).
var ErrNoData = errors.New("acs: no data for tract")

// MalformedResponseError means the API answered with something other than
// the expected JSON table. The raw body is kept for diagnosis.
type MalformedResponseError struct {
	Body []byte
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("acs: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Geography identifies the tract to query.
type Geography struct {
	State  string
	County string
	Tract  string
}

// Table maps variable codes to their raw string values. Values may be
// empty for variables the API returned as null.
type Table map[string]string

// Client fetches ACS 5-year estimates.
type Client interface {
	// TractTable returns the requested variables for one tract. Returns
	// ErrNoData when the tract has no data for this vintage.
	TractTable(ctx context.Context, year int, variables []string, geo Geography) (Table, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an ACS client with the given API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) TractTable(ctx context.Context, year int, variables []string, geo Geography) (Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "acs: rate limit")
	}

	params := url.Values{
		"get": {strings.Join(variables, ",")},
		"for": {"tract:" + geo.Tract},
		"in":  {fmt.Sprintf("state:%s county:%s", geo.State, geo.County)},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/%d/acs/acs5?%s", c.baseURL, year, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "acs: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "acs: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "acs: read body"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(eris.Errorf("acs: status %d", resp.StatusCode), resp.StatusCode)
	case resp.StatusCode == http.StatusNoContent:
		// The API signals an unknown geography with 204.
		return nil, ErrNoData
	default:
		return nil, eris.Errorf("acs: status %d: %s", resp.StatusCode, string(body))
	}

	if len(body) == 0 {
		return nil, ErrNoData
	}

	// The API returns a JSON array of arrays: [[header...], [values...]].
	// Individual values may be null.
	var raw [][]*string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{Body: body, Err: err}
	}

	if len(raw) < 2 {
		return nil, ErrNoData
	}

	header, values := raw[0], raw[1]
	table := make(Table, len(header))
	for i, code := range header {
		if code == nil || i >= len(values) {
			continue
		}
		if values[i] != nil {
			table[*code] = *values[i]
		} else {
			table[*code] = ""
		}
	}
	return table, nil
}
