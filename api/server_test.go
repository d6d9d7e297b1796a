package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/testgen"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(Config{
		Store:      &stubStatusStore{exists: true, count: 4},
		Generator:  &stubGenerator{suite: &testgen.Suite{Output: "suite"}},
		Collection: "manual_test_context",
	}, log.NewNop())
}

func TestServer_Routes(t *testing.T) {
	handler := newTestServer(t).Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"liveness", http.MethodGet, "/health", http.StatusOK},
		{"status", http.MethodGet, "/api/status", http.StatusOK},
		{"generate wrong method", http.MethodGet, "/api/generate", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestServer_StatusThroughMiddleware(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Points)
}
