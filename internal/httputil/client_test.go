package httputil

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestGetJSON(t *testing.T) {
	t.Parallel()

	mock := NewMockHTTPClient().AddResponse(http.StatusOK, `{"samples":[1,2,3]}`)

	var out struct {
		Samples []float64 `json:"samples"`
	}
	if err := GetJSON(context.Background(), mock, "http://sim/lidar/samples", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(out.Samples) != 3 {
		t.Errorf("samples = %v, want 3 values", out.Samples)
	}
	if mock.RequestCount() != 1 || mock.Requests[0].URL.Path != "/lidar/samples" {
		t.Errorf("unexpected requests: %v", mock.Requests)
	}
}

func TestGetJSON_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mock *MockHTTPClient
		want string
	}{
		{"status with message", NewMockHTTPClient().AddResponse(http.StatusServiceUnavailable, `{"error":"no scan yet"}`), "no scan yet"},
		{"status without message", NewMockHTTPClient().AddResponse(http.StatusNotFound, `nope`), "404"},
		{"transport", NewMockHTTPClient().AddErrorResponse(errors.New("refused")), "refused"},
		{"bad body", NewMockHTTPClient().AddResponse(http.StatusOK, `{`), "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out map[string]interface{}
			err := GetJSON(context.Background(), tt.mock, "http://sim/x", &out)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNewStandardClient(t *testing.T) {
	t.Parallel()

	if NewStandardClient(nil) != http.DefaultClient {
		t.Error("nil should map to http.DefaultClient")
	}
	c := &http.Client{}
	if NewStandardClient(c) != c {
		t.Error("expected the given client back")
	}
}
