package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar-sim/internal/drive"
)

func newTestServer() (*Server, *drive.State, *fakeRealism, *http.ServeMux) {
	d := drive.NewState()
	r := &fakeRealism{}
	s := NewServer(newFakeSource(), d, r)
	return s, d, r, s.ServeMux()
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestSamplesEndpoint(t *testing.T) {
	t.Parallel()
	_, _, _, mux := newTestServer()

	rec := do(mux, http.MethodGet, "/lidar/samples", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body SamplesMessage
	decode(t, rec, &body)
	require.Len(t, body.Samples, 1440)
	assert.Equal(t, float32(200), body.Samples[540])
	assert.Zero(t, body.Samples[0])

	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodPost, "/lidar/samples", "{}").Code)
}

func TestControlEndpoint(t *testing.T) {
	t.Parallel()
	_, d, _, mux := newTestServer()

	rec := do(mux, http.MethodPost, "/car/control", `{"speed":2,"angle":-0.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["speed"])
	assert.Equal(t, drive.Command{Speed: 1, Angle: -0.5}, d.Current())

	tests := []struct {
		name, method, body string
		code               int
	}{
		{"missing angle", http.MethodPost, `{"speed":0.3}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, `{"speed":`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, do(mux, tt.method, "/car/control", tt.body).Code, tt.name)
	}
	assert.Equal(t, drive.Command{Speed: 1, Angle: -0.5}, d.Current(), "rejected requests leave the drive alone")

	rec = do(mux, http.MethodGet, "/car/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap drive.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, uint64(1), snap.Commands)
}

func TestClearEndpoint(t *testing.T) {
	t.Parallel()
	_, _, _, mux := newTestServer()

	tests := []struct {
		query string
		code  int
		clear bool
	}{
		{"", http.StatusOK, true},
		{"?threshold=250", http.StatusOK, false},
		{"?half_width=0&threshold=199", http.StatusOK, true},
		{"?half_width=-1", http.StatusBadRequest, false},
		{"?threshold=far", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		rec := do(mux, http.MethodGet, "/lidar/clear"+tt.query, "")
		require.Equal(t, tt.code, rec.Code, tt.query)
		if tt.code != http.StatusOK {
			continue
		}
		var body struct {
			Clear bool `json:"clear"`
		}
		decode(t, rec, &body)
		assert.Equal(t, tt.clear, body.Clear, tt.query)
	}
}

func TestRealismEndpoint(t *testing.T) {
	t.Parallel()
	_, _, r, mux := newTestServer()

	rec := do(mux, http.MethodPost, "/lidar/realism", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.Realism())

	rec = do(mux, http.MethodGet, "/lidar/realism", "")
	var body map[string]bool
	decode(t, rec, &body)
	assert.True(t, body["enabled"])

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/lidar/realism", `{}`).Code)

	readOnly := NewServer(newFakeSource(), drive.NewState(), nil).ServeMux()
	assert.Equal(t, http.StatusNotImplemented, do(readOnly, http.MethodPost, "/lidar/realism", `{"enabled":true}`).Code)
}

func TestRenderEndpoints(t *testing.T) {
	t.Parallel()
	_, _, _, mux := newTestServer()

	rec := do(mux, http.MethodGet, "/lidar/scan.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(mux, http.MethodGet, "/lidar/polar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "hokuyo-ust-10lx")
}

func TestInfoEndpoints(t *testing.T) {
	t.Parallel()
	_, _, _, mux := newTestServer()

	rec := do(mux, http.MethodGet, "/lidar/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Closest struct {
			Distance float64 `json:"distance"`
		} `json:"closest"`
		Forward float64 `json:"forward"`
		Cursor  int     `json:"cursor"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 200.0, stats.Closest.Distance)
	assert.Equal(t, 200.0, stats.Forward)
	assert.Equal(t, 77, stats.Cursor)

	rec = do(mux, http.MethodGet, "/lidar/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"num_samples":1440`)

	assert.Equal(t, http.StatusOK, do(mux, http.MethodGet, "/healthz", "").Code)

	rec = do(mux, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	rec = do(mux, http.MethodGet, "/debug/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lidar")
}
