package acs

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

var testGeo = Geography{State: "36", County: "061", Tract: "007300"}

func newTestClient(handler http.HandlerFunc) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	return c, srv
}

func TestTractTable_Success(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2022/acs/acs5", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "NAME,B01001_001E,B17001_002E", q.Get("get"))
		assert.Equal(t, "tract:007300", q.Get("for"))
		assert.Equal(t, "state:36 county:061", q.Get("in"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Write([]byte(`[
			["NAME","B01001_001E","B17001_002E","state","county","tract"],
			["Census Tract 73, New York County, New York","4521","512","36","061","007300"]
		]`))
	})
	defer srv.Close()

	table, err := c.TractTable(context.Background(), 2022, []string{"NAME", "B01001_001E", "B17001_002E"}, testGeo)
	require.NoError(t, err)

	assert.Equal(t, "4521", table["B01001_001E"])
	assert.Equal(t, "512", table["B17001_002E"])
	assert.Equal(t, "Census Tract 73, New York County, New York", table["NAME"])
}

func TestTractTable_NullValues(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["NAME","B25031_001E"],["Tract X",null]]`))
	})
	defer srv.Close()

	table, err := c.TractTable(context.Background(), 2022, []string{"NAME", "B25031_001E"}, testGeo)
	require.NoError(t, err)
	assert.Equal(t, "", table["B25031_001E"])
}

func TestTractTable_HeaderOnlyIsNoData(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["NAME","B01001_001E"]]`))
	})
	defer srv.Close()

	_, err := c.TractTable(context.Background(), 2022, []string{"NAME", "B01001_001E"}, testGeo)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTractTable_NoContentIsNoData(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	_, err := c.TractTable(context.Background(), 2022, []string{"NAME"}, testGeo)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTractTable_ServerErrorIsTransient(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.TractTable(context.Background(), 2022, []string{"NAME"}, testGeo)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestTractTable_MalformedBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`error: invalid key`))
	})
	defer srv.Close()

	_, err := c.TractTable(context.Background(), 2022, []string{"NAME"}, testGeo)

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, string(malformed.Body), "invalid key")
}

func TestTractTable_NoKeyOmitsParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasKey := r.URL.Query()["key"]
		assert.False(t, hasKey)
		w.Write([]byte(`[["NAME"],["x"]]`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.TractTable(context.Background(), 2022, []string{"NAME"}, testGeo)
	require.NoError(t, err)
}
