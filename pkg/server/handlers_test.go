package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/skiff/pkg/browser"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	runtime := browser.NewManager(browser.ManagerOptions{})
	return New(Config{Addr: ":0"}, runtime, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealthWithoutDriver(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "driver not running")
}

func TestOpenSessionDriverDown(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/sessions", `{"headless": true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "launch_error", decodeError(t, rec).Kind)
}

func TestOpenSessionMalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/sessions", `{"headless": "maybe"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Kind)
}

func TestListSessionsEmpty(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sessions []browser.Info `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Sessions)
}

func TestGetUnknownSession(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/sessions/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decodeError(t, rec).Kind)
}

func TestCloseUnknownSessionReturnsNoContent(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/v1/sessions/abc", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExecuteUnknownSession(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/sessions/abc/commands",
		`{"kind": "navigate", "url": "https://example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decodeError(t, rec).Kind)
}

func TestExecuteMissingKind(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/sessions/abc/commands", `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "kind is required")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skiff_sessions_active 0")
}

func TestSessionsGaugeFollowsReap(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	runtime := browser.NewManager(browser.ManagerOptions{IdleTimeout: 10 * time.Millisecond})
	require.NoError(t, runtime.Start())
	defer runtime.Shutdown(context.Background())
	s := New(Config{Addr: ":0"}, runtime, zerolog.Nop())

	_, err := runtime.Open(context.Background(), browser.SessionOptions{Headless: true})
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "skiff_sessions_active 1")

	// Sessions reaped by the janitor must drop out of the gauge even though
	// no HTTP close ever ran.
	runtime.ReapIdle(time.Now().Add(time.Second))

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "skiff_sessions_active 0")
}

func TestErrorKindClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", browser.ErrSessionNotFound, "session_not_found"},
		{"cap", &browser.LaunchError{Reason: "cap", Err: browser.ErrTooManySessions}, "too_many_sessions"},
		{"launch", &browser.LaunchError{Reason: "no chromium"}, "launch_error"},
		{"navigation", &browser.NavigationError{URL: "https://x"}, "navigation_error"},
		{"script", &browser.ScriptError{Detail: "boom"}, "script_error"},
		{"timeout", &browser.TimeoutError{Op: "navigate"}, "timeout"},
		{"other", assert.AnError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}
