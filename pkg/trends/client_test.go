package trends

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizsim/internal/resilience"
)

const junkPrefix = ")]}',\n"

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(
		WithBaseURL(srv.URL),
		WithRequestInterval(time.Millisecond),
	)
	return srv, c
}

func exploreBody(t *testing.T, keywords int) string {
	t.Helper()
	widgets := []map[string]any{
		{"id": "TIMESERIES", "token": "ts-token", "request": map[string]any{"w": "ts"}},
	}
	for i := 0; i < keywords; i++ {
		widgets = append(widgets, map[string]any{
			"id":      "RELATED_QUERIES",
			"token":   "rq-token",
			"request": map[string]any{"w": i},
		})
	}
	b, err := json.Marshal(map[string]any{"widgets": widgets})
	require.NoError(t, err)
	return junkPrefix + string(b)
}

func TestBuildPayload(t *testing.T) {
	var gotReq string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trends/api/explore", r.URL.Path)
		gotReq = r.URL.Query().Get("req")
		w.Write([]byte(exploreBody(t, 2))) //nolint:errcheck
	})

	p, err := c.BuildPayload(context.Background(), []string{"coffee shop", "coffee shop near me"}, "US-NY", "today 1-m")
	require.NoError(t, err)

	assert.Equal(t, "ts-token", p.timeseries.Token)
	assert.Len(t, p.relatedQuery, 2)

	var req struct {
		ComparisonItem []struct {
			Keyword string `json:"keyword"`
			Geo     string `json:"geo"`
			Time    string `json:"time"`
		} `json:"comparisonItem"`
	}
	require.NoError(t, json.Unmarshal([]byte(gotReq), &req))
	require.Len(t, req.ComparisonItem, 2)
	assert.Equal(t, "coffee shop", req.ComparisonItem[0].Keyword)
	assert.Equal(t, "US-NY", req.ComparisonItem[0].Geo)
	assert.Equal(t, "today 1-m", req.ComparisonItem[0].Time)
}

func TestBuildPayloadCapsKeywords(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exploreBody(t, 5))) //nolint:errcheck
	})

	kws := []string{"a", "b", "c", "d", "e", "f", "g"}
	p, err := c.BuildPayload(context.Background(), kws, "US", "today 1-m")
	require.NoError(t, err)
	assert.Len(t, p.Keywords, 5)
}

func TestBuildPayloadNoKeywords(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.BuildPayload(context.Background(), nil, "US", "today 1-m")
	require.Error(t, err)
}

func TestBuildPayloadMissingTimeseries(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(junkPrefix + `{"widgets":[]}`)) //nolint:errcheck
	})

	_, err := c.BuildPayload(context.Background(), []string{"coffee"}, "US", "today 1-m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeseries")
}

func TestInterestOverTime(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trends/api/explore":
			w.Write([]byte(exploreBody(t, 1))) //nolint:errcheck
		case "/trends/api/widgetdata/multiline":
			assert.Equal(t, "ts-token", r.URL.Query().Get("token"))
			w.Write([]byte(junkPrefix + `{"default":{"timelineData":[
				{"time":"1717200000","value":[42],"isPartial":false},
				{"time":"1717286400","value":[58],"isPartial":true}
			]}}`)) //nolint:errcheck
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	p, err := c.BuildPayload(ctx, []string{"coffee shop"}, "US-NY", "today 1-m")
	require.NoError(t, err)

	points, err := c.InterestOverTime(ctx, p)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, []int{42}, points[0].Values)
	assert.False(t, points[0].IsPartial)
	assert.Equal(t, time.Unix(1717286400, 0).UTC(), points[1].Time)
	assert.True(t, points[1].IsPartial)
}

func TestRelatedQueries(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trends/api/explore":
			w.Write([]byte(exploreBody(t, 1))) //nolint:errcheck
		case "/trends/api/widgetdata/relatedsearches":
			w.Write([]byte(junkPrefix + `{"default":{"rankedList":[
				{"rankedKeyword":[{"query":"best coffee","value":100},{"query":"coffee near me","value":85}]},
				{"rankedKeyword":[{"query":"cold brew","value":250}]}
			]}}`)) //nolint:errcheck
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	p, err := c.BuildPayload(ctx, []string{"coffee shop"}, "US-NY", "today 1-m")
	require.NoError(t, err)

	rel, err := c.RelatedQueries(ctx, p)
	require.NoError(t, err)
	require.Contains(t, rel, "coffee shop")
	assert.Equal(t, []RankedQuery{
		{Query: "best coffee", Value: 100},
		{Query: "coffee near me", Value: 85},
	}, rel["coffee shop"].Top)
	assert.Equal(t, []RankedQuery{{Query: "cold brew", Value: 250}}, rel["coffee shop"].Rising)
}

func TestTrendingSearches(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trends/api/dailytrends", r.URL.Path)
		assert.Equal(t, "US", r.URL.Query().Get("geo"))
		w.Write([]byte(junkPrefix + `{"default":{"trendingSearchesDays":[
			{"trendingSearches":[{"title":{"query":"weather"}},{"title":{"query":"news"}}]}
		]}}`)) //nolint:errcheck
	})

	got, err := c.TrendingSearches(context.Background(), "US")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather", "news"}, got)
}

func TestRateLimitedStatusIsTransient(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.BuildPayload(context.Background(), []string{"coffee"}, "US", "today 1-m")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestMalformedExploreBody(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(")]}'\nnot json at all")) //nolint:errcheck
	})

	_, err := c.BuildPayload(context.Background(), []string{"coffee"}, "US", "today 1-m")
	require.Error(t, err)
}

func TestStripJSONPrefix(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(stripJSONPrefix([]byte(")]}',\n{\"a\":1}"))))
	assert.Equal(t, `[1,2]`, string(stripJSONPrefix([]byte("[1,2]"))))
	assert.Equal(t, "junk", string(stripJSONPrefix([]byte("junk"))))
}
