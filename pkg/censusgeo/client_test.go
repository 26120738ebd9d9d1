package censusgeo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizsim/internal/resilience"
)

const fullResponse = `{
	"result": {
		"geographies": {
			"Census Tracts": [
				{"STATE": "36", "COUNTY": "061", "TRACT": "007300", "NAME": "Census Tract 73"}
			],
			"2020 Census Blocks": [
				{"STATE": "36", "COUNTY": "061", "TRACT": "007300", "BLOCK": "1001"}
			]
		}
	}
}`

func newTestClient(handler http.HandlerFunc) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	return c, srv
}

func TestResolve_TractAndBlock(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geographies/coordinates", r.URL.Path)
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		assert.Equal(t, "Current_Current", r.URL.Query().Get("vintage"))
		w.Write([]byte(fullResponse))
	})
	defer srv.Close()

	geo, err := c.Resolve(context.Background(), 40.7484, -73.9857)
	require.NoError(t, err)

	assert.Equal(t, "36", geo.State)
	assert.Equal(t, "061", geo.County)
	assert.Equal(t, "007300", geo.Tract)
	assert.Equal(t, "1001", geo.Block)
	assert.Len(t, geo.TractKey(), 11)
	assert.Len(t, geo.BlockKey(), 15)
}

func TestResolve_TractOnly(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"geographies":{"Census Tracts":[{"STATE":"36","COUNTY":"047","TRACT":"000100"}]}}}`))
	})
	defer srv.Close()

	geo, err := c.Resolve(context.Background(), 40.69, -73.99)
	require.NoError(t, err)

	assert.Equal(t, "36047000100", geo.TractKey())
	assert.False(t, geo.HasBlock())
	assert.Empty(t, geo.BlockKey())
}

func TestResolve_NotFound(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"geographies":{}}}`))
	})
	defer srv.Close()

	_, err := c.Resolve(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, resilience.IsTransient(err))
}

func TestResolve_ServerErrorIsTransient(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer srv.Close()

	_, err := c.Resolve(context.Background(), 40.7, -74.0)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolve_MalformedBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>Service temporarily down</html>`))
	})
	defer srv.Close()

	_, err := c.Resolve(context.Background(), 40.7, -74.0)
	require.Error(t, err)

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, string(malformed.Body), "Service temporarily down")
}

func TestResolve_MissingFIPSFields(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"geographies":{"Census Tracts":[{"NAME":"Census Tract 73"}]}}}`))
	})
	defer srv.Close()

	_, err := c.Resolve(context.Background(), 40.7, -74.0)
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
}

func TestResolve_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	c := NewClient(WithBaseURL(url), WithRateLimit(1000))
	_, err := c.Resolve(context.Background(), 40.7, -74.0)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
