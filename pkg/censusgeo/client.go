// Package censusgeo resolves coordinates to census geography (FIPS
// state/county/tract/block) via the Census Bureau geocoder.
package censusgeo

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

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/internal/resilience"
)

const (
	defaultBaseURL = "https://geocoding.geo.census.gov/geocoder"
	benchmark      = "Public_AR_Current"
	vintage        = "Current_Current"
)

// ErrNotFound means the geocoder returned no enclosing census tract for the
// point: coordinates outside covered territory, in water, or unmapped. A
// normal outcome, not an upstream failure.
var ErrNotFound = errors.New("censusgeo: no census geography for coordinates")

// MalformedResponseError means the geocoder answered with an unexpected
// shape. The raw body is kept for diagnosis; the request is not retried.
type MalformedResponseError struct {
	Body []byte
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("censusgeo: malformed geocoder response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Client resolves coordinates to census geography.
type Client interface {
	// Resolve returns the FIPS identifier of the geography enclosing the
	// point. Resolution is idempotent; points near a boundary may resolve to
	// slightly different blocks between calls, which is provider behavior.
	Resolve(ctx context.Context, lat, lon float64) (*model.GeoIdentifier, error)
}

// Option configures the resolver.
type Option func(*resolver)

// WithBaseURL sets a custom geocoder base URL (for testing).
func WithBaseURL(u string) Option {
	return func(r *resolver) {
		r.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *resolver) {
		r.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for geocoder calls.
func WithRateLimit(rps float64) Option {
	return func(r *resolver) {
		r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type resolver struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a geocoder client. Geocoding calls are cheap and fast;
// the default timeout is short so slow upstreams surface as timeouts rather
// than stalls.
func NewClient(opts ...Option) Client {
	r := &resolver{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// geographiesResponse is the JSON shape of the coordinates lookup. The
// geography lists are keyed by display name; block lists carry a vintage
// prefix ("2020 Census Blocks").
type geographiesResponse struct {
	Result struct {
		Geographies map[string][]map[string]any `json:"geographies"`
	} `json:"result"`
}

func (r *resolver) Resolve(ctx context.Context, lat, lon float64) (*model.GeoIdentifier, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "censusgeo: rate limit")
	}

	params := url.Values{
		"x":         {fmt.Sprintf("%f", lon)},
		"y":         {fmt.Sprintf("%f", lat)},
		"benchmark": {benchmark},
		"vintage":   {vintage},
		"format":    {"json"},
	}
	reqURL := r.baseURL + "/geographies/coordinates?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "censusgeo: build request")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "censusgeo: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "censusgeo: read body"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("censusgeo: geocoder returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed geographiesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &MalformedResponseError{Body: body, Err: err}
	}

	tracts := parsed.Result.Geographies["Census Tracts"]
	if len(tracts) == 0 {
		return nil, ErrNotFound
	}

	geo := &model.GeoIdentifier{
		State:  stringField(tracts[0], "STATE"),
		County: stringField(tracts[0], "COUNTY"),
		Tract:  stringField(tracts[0], "TRACT"),
	}
	if geo.State == "" || geo.County == "" || geo.Tract == "" {
		return nil, &MalformedResponseError{Body: body, Err: errors.New("tract entry missing FIPS fields")}
	}

	if blocks := blockList(parsed.Result.Geographies); len(blocks) > 0 {
		geo.Block = stringField(blocks[0], "BLOCK")
	}

	return geo, nil
}

// blockList finds the census block list regardless of its vintage prefix.
func blockList(geographies map[string][]map[string]any) []map[string]any {
	for name, list := range geographies {
		if strings.HasSuffix(name, "Census Blocks") {
			return list
		}
	}
	return nil
}

func stringField(entry map[string]any, key string) string {
	v, _ := entry[key].(string)
	return v
}
