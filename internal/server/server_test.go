package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/pkg/conflict"
	"github.com/Ramsey-B/fern/pkg/health"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func newTestServer(t *testing.T, checker *health.Checker) *Server {
	t.Helper()
	containerID := "server-test-" + uuid.NewString()
	_, err := handlers.NewContainer(containerID, handlers.Deps{
		Conflicts: conflict.NewResolver(conflict.DefaultConfig(), nil, testLogger),
	})
	require.NoError(t, err)

	return New(Config{Host: "127.0.0.1", Port: 0, BodyLimit: "1K"}, Handlers{
		ContainerID: containerID,
		Conflict:    handlers.NewConflictHandler(testLogger),
	}, checker, testLogger)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthAndMetrics(t *testing.T) {
	checker := health.NewChecker("test")
	checker.Register("database", true, func(context.Context) error { return nil })
	checker.Register("redis", false, func(context.Context) error { return errors.New("down") })
	s := newTestServer(t, checker)

	rec := serve(s, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec = serve(s, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Equal(t, health.StatusUnhealthy, report.Checks["redis"].Status)

	rec = serve(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, health.NewChecker("test"))

	rec := serve(s, http.MethodPost, "/api/v1/conflicts/resolve", `{"record":{"kind":"generic"},"strategy":"manual"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolved":false`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	// handlers that were not supplied are not mounted
	rec = serve(s, http.MethodPost, "/api/v1/resolve", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, http.MethodPost, "/api/v1/conflicts/resolve", strings.Repeat("x", 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_Dependency(t *testing.T) {
	s := newTestServer(t, health.NewChecker("test"))
	assert.Equal(t, "http", s.GetName())
	assert.Equal(t, []string{"database"}, s.DependsOn())
}
