// Package trends is a client for the unofficial search-trends API: an
// explore handshake issues widget tokens, which unlock interest-over-time
// and related-query widget data. Responses carry a junk prefix before the
// JSON payload.
//
// The provider throttles aggressive callers, so a single blocking limiter
// paces every request the process sends.
package trends

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizsim/internal/resilience"
)

const (
	defaultBaseURL = "https://trends.google.com"
	hl             = "en-US"
	tz             = "360"
)

// TimelinePoint is one sample of search interest, with one value (0-100)
// per payload keyword.
type TimelinePoint struct {
	Time      time.Time `json:"time"`
	Values    []int     `json:"values"`
	IsPartial bool      `json:"is_partial"`
}

// RankedQuery is one related search query. Value is 0-100 for top queries
// and percent growth for rising ones.
type RankedQuery struct {
	Query string `json:"query"`
	Value int    `json:"value"`
}

// Related holds the related-query tables for one keyword.
type Related struct {
	Top    []RankedQuery `json:"top"`
	Rising []RankedQuery `json:"rising"`
}

// Payload is the result of an explore handshake: widget tokens for a fixed
// keyword set, geo, and timeframe. Tokens expire after a few hours; build a
// fresh payload per lookup.
type Payload struct {
	Keywords  []string
	Geo       string
	Timeframe string

	timeseries   widget
	relatedQuery []widget
}

// Client talks to the trend provider.
type Client interface {
	// BuildPayload performs the explore handshake for up to five keywords.
	BuildPayload(ctx context.Context, keywords []string, geo, timeframe string) (*Payload, error)
	// InterestOverTime fetches the interest timeline for a payload.
	InterestOverTime(ctx context.Context, p *Payload) ([]TimelinePoint, error)
	// RelatedQueries fetches top and rising related queries per keyword.
	RelatedQueries(ctx context.Context, p *Payload) (map[string]Related, error)
	// TrendingSearches fetches today's trending searches for a country code.
	TrendingSearches(ctx context.Context, geo string) ([]string, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL sets a custom provider base URL (for testing).
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

// WithRequestInterval sets the minimum spacing between provider requests.
func WithRequestInterval(d time.Duration) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a trend provider client. The default limiter enforces
// the provider's one-request-per-second constraint.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

func (c *client) BuildPayload(ctx context.Context, keywords []string, geo, timeframe string) (*Payload, error) {
	if len(keywords) == 0 {
		return nil, eris.New("trends: no keywords")
	}
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}

	type comparisonItem struct {
		Keyword string `json:"keyword"`
		Geo     string `json:"geo"`
		Time    string `json:"time"`
	}
	items := make([]comparisonItem, len(keywords))
	for i, kw := range keywords {
		items[i] = comparisonItem{Keyword: kw, Geo: geo, Time: timeframe}
	}
	reqPayload, err := json.Marshal(map[string]any{
		"comparisonItem": items,
		"category":       0,
		"property":       "",
	})
	if err != nil {
		return nil, eris.Wrap(err, "trends: marshal explore request")
	}

	params := url.Values{"hl": {hl}, "tz": {tz}, "req": {string(reqPayload)}}
	body, err := c.get(ctx, "/trends/api/explore", params)
	if err != nil {
		return nil, err
	}

	var resp exploreResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &resp); err != nil {
		return nil, eris.Wrap(err, "trends: parse explore response")
	}

	p := &Payload{Keywords: keywords, Geo: geo, Timeframe: timeframe}
	for _, w := range resp.Widgets {
		switch {
		case w.ID == "TIMESERIES":
			p.timeseries = w
		case strings.HasPrefix(w.ID, "RELATED_QUERIES"):
			// One widget per keyword, in keyword order.
			p.relatedQuery = append(p.relatedQuery, w)
		}
	}
	if p.timeseries.Token == "" {
		return nil, eris.New("trends: explore response missing timeseries widget")
	}
	return p, nil
}

type multilineResponse struct {
	Default struct {
		TimelineData []struct {
			Time      string `json:"time"`
			Value     []int  `json:"value"`
			IsPartial bool   `json:"isPartial"`
		} `json:"timelineData"`
	} `json:"default"`
}

func (c *client) InterestOverTime(ctx context.Context, p *Payload) ([]TimelinePoint, error) {
	params := url.Values{
		"hl":    {hl},
		"tz":    {tz},
		"req":   {string(p.timeseries.Request)},
		"token": {p.timeseries.Token},
	}
	body, err := c.get(ctx, "/trends/api/widgetdata/multiline", params)
	if err != nil {
		return nil, err
	}

	var resp multilineResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &resp); err != nil {
		return nil, eris.Wrap(err, "trends: parse timeline response")
	}

	points := make([]TimelinePoint, 0, len(resp.Default.TimelineData))
	for _, td := range resp.Default.TimelineData {
		ts, _ := strconv.ParseInt(td.Time, 10, 64)
		points = append(points, TimelinePoint{
			Time:      time.Unix(ts, 0).UTC(),
			Values:    td.Value,
			IsPartial: td.IsPartial,
		})
	}
	return points, nil
}

type relatedSearchesResponse struct {
	Default struct {
		RankedList []struct {
			RankedKeyword []struct {
				Query string `json:"query"`
				Value int    `json:"value"`
			} `json:"rankedKeyword"`
		} `json:"rankedList"`
	} `json:"default"`
}

func (c *client) RelatedQueries(ctx context.Context, p *Payload) (map[string]Related, error) {
	out := make(map[string]Related, len(p.relatedQuery))
	for i, w := range p.relatedQuery {
		if i >= len(p.Keywords) {
			break
		}

		params := url.Values{
			"hl":    {hl},
			"tz":    {tz},
			"req":   {string(w.Request)},
			"token": {w.Token},
		}
		body, err := c.get(ctx, "/trends/api/widgetdata/relatedsearches", params)
		if err != nil {
			return nil, err
		}

		var resp relatedSearchesResponse
		if err := json.Unmarshal(stripJSONPrefix(body), &resp); err != nil {
			return nil, eris.Wrap(err, "trends: parse related searches")
		}

		// Ranked lists arrive as [top, rising].
		var rel Related
		for li, list := range resp.Default.RankedList {
			for _, rk := range list.RankedKeyword {
				q := RankedQuery{Query: rk.Query, Value: rk.Value}
				if li == 0 {
					rel.Top = append(rel.Top, q)
				} else {
					rel.Rising = append(rel.Rising, q)
				}
			}
		}
		out[p.Keywords[i]] = rel
	}
	return out, nil
}

type dailyTrendsResponse struct {
	Default struct {
		TrendingSearchesDays []struct {
			TrendingSearches []struct {
				Title struct {
					Query string `json:"query"`
				} `json:"title"`
			} `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

func (c *client) TrendingSearches(ctx context.Context, geo string) ([]string, error) {
	params := url.Values{"hl": {hl}, "tz": {tz}, "geo": {geo}, "ns": {"15"}}
	body, err := c.get(ctx, "/trends/api/dailytrends", params)
	if err != nil {
		return nil, err
	}

	var resp dailyTrendsResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &resp); err != nil {
		return nil, eris.Wrap(err, "trends: parse daily trends")
	}

	var out []string
	for _, day := range resp.Default.TrendingSearchesDays {
		for _, ts := range day.TrendingSearches {
			if ts.Title.Query != "" {
				out = append(out, ts.Title.Query)
			}
		}
	}
	return out, nil
}

func (c *client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "trends: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "trends: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "trends: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "trends: read body"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(eris.Errorf("trends: status %d", resp.StatusCode), resp.StatusCode)
	default:
		return nil, eris.Errorf("trends: status %d", resp.StatusCode)
	}
}

// stripJSONPrefix drops the anti-hijacking junk (")]}'," and friends) the
// provider prepends before the JSON document.
func stripJSONPrefix(body []byte) []byte {
	for i, b := range body {
		if b == '{' || b == '[' {
			return body[i:]
		}
	}
	return body
}
