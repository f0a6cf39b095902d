package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `{
  "channel": {"id": 2913, "name": "streetlight", "last_entry_id": 42},
  "feeds": [
    {"created_at": "2024-05-01T18:00:00Z", "entry_id": 40, "field1": "812", "field2": "0"},
    {"created_at": "2024-05-01T18:00:15Z", "entry_id": 41, "field1": null, "field2": "1"},
    {"created_at": "2024-05-01T18:00:30Z", "entry_id": 42, "field1": "233.5", "field2": 1}
  ]
}`

func newFeedServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestHTTPCollector_Collect(t *testing.T) {
	single := `{"channel":{"id":1},"feeds":[{"created_at":"2024-05-01T18:00:30Z","entry_id":42,"field1":"233","field2":"1"}]}`
	srv, last := newFeedServer(t, http.StatusOK, single)

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL, ReadAPIKey: "READKEY"})
	c.RegisterChannel("sl-1", "2913")

	reading, err := c.Collect(context.Background(), "sl-1")
	require.NoError(t, err)

	assert.Equal(t, "/channels/2913/feeds.json", last.URL.Path)
	assert.Equal(t, "1", last.URL.Query().Get("results"))
	assert.Equal(t, "READKEY", last.URL.Query().Get("api_key"))

	assert.Equal(t, "sl-1", reading.LightID)
	assert.Equal(t, 42, reading.EntryID)
	assert.Equal(t, 233.0, reading.AmbientLight)
	assert.Equal(t, 1.0, reading.Motion)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 0, 30, 0, time.UTC), reading.Timestamp)
}

func TestHTTPCollector_ChannelFallback(t *testing.T) {
	srv, last := newFeedServer(t, http.StatusOK, feedBody)

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL + "/"})
	_, err := c.Collect(context.Background(), "sl-9")
	require.NoError(t, err)
	assert.Equal(t, "/channels/sl-9/feeds.json", last.URL.Path)
	assert.Empty(t, last.URL.Query().Get("api_key"))

	c = NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL, DefaultChannel: "777"})
	_, err = c.Collect(context.Background(), "sl-9")
	require.NoError(t, err)
	assert.Equal(t, "/channels/777/feeds.json", last.URL.Path)
}

func TestHTTPCollector_CollectUsesNewestEntry(t *testing.T) {
	srv, _ := newFeedServer(t, http.StatusOK, feedBody)
	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL})

	reading, err := c.Collect(context.Background(), "sl-1")
	require.NoError(t, err)
	assert.Equal(t, 42, reading.EntryID)
	assert.Equal(t, 233.5, reading.AmbientLight)
}

func TestHTTPCollector_CollectLogs(t *testing.T) {
	srv, last := newFeedServer(t, http.StatusOK, feedBody)
	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL})

	logs, err := c.CollectLogs(context.Background(), "sl-1", 0)
	require.NoError(t, err)

	assert.Equal(t, "20", last.URL.Query().Get("results"))
	require.Len(t, logs, 3)
	assert.Equal(t, []int{42, 41, 40}, []int{logs[0].EntryID, logs[1].EntryID, logs[2].EntryID})
	assert.Equal(t, 0.0, logs[1].AmbientLight, "null field reads as zero")
	assert.Equal(t, 812.0, logs[2].AmbientLight)
}

func TestHTTPCollector_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectedErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: "", expectedErr: ErrChannelNotFound},
		{name: "feed rejects key", status: http.StatusOK, body: "-1", expectedErr: ErrChannelNotFound},
		{name: "empty feed", status: http.StatusOK, body: `{"channel":{},"feeds":[]}`, expectedErr: ErrNoData},
		{name: "server error", status: http.StatusInternalServerError, body: "", expectedErr: ErrCollectionFailed},
		{name: "malformed json", status: http.StatusOK, body: "{", expectedErr: ErrInvalidResponse},
		{name: "non numeric field", status: http.StatusOK, body: `{"feeds":[{"entry_id":1,"field1":"dark","field2":"0"}]}`, expectedErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFeedServer(t, tt.status, tt.body)
			c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL})

			_, err := c.Collect(context.Background(), "sl-1")
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestHTTPCollector_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Collect(context.Background(), "sl-1")

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPCollector_HealthCheck(t *testing.T) {
	srv, last := newFeedServer(t, http.StatusOK, "ok")
	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: srv.URL})

	assert.NoError(t, c.HealthCheck(context.Background()))
	assert.Equal(t, "/health", last.URL.Path)

	down, _ := newFeedServer(t, http.StatusServiceUnavailable, "")
	assert.Error(t, NewHTTPCollector(HTTPCollectorConfig{Endpoint: down.URL}).HealthCheck(context.Background()))
}

func TestFieldValue(t *testing.T) {
	tests := []struct {
		in       interface{}
		expected float64
		wantErr  bool
	}{
		{in: nil, expected: 0},
		{in: "", expected: 0},
		{in: "512", expected: 512},
		{in: "0.5", expected: 0.5},
		{in: 7.0, expected: 7},
		{in: "n/a", wantErr: true},
	}

	for _, tt := range tests {
		v, err := fieldValue(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.expected, v)
	}
}
