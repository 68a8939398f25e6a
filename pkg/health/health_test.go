package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *Checker)
		status Status
	}{
		{name: "no checks", setup: func(*Checker) {}, status: StatusHealthy},
		{
			name: "all healthy",
			setup: func(c *Checker) {
				c.Register("database", true, ok)
				c.Register("redis", false, ok)
			},
			status: StatusHealthy,
		},
		{
			name: "optional failure degrades",
			setup: func(c *Checker) {
				c.Register("database", true, ok)
				c.Register("redis", false, fail)
			},
			status: StatusDegraded,
		},
		{
			name: "critical failure is unhealthy",
			setup: func(c *Checker) {
				c.Register("database", true, fail)
				c.Register("redis", false, fail)
			},
			status: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			tt.setup(c)
			assert.Equal(t, tt.status, c.Check(context.Background()).Status)
		})
	}
}

func TestChecker_ReadinessHandler(t *testing.T) {
	e := echo.New()
	c := NewChecker("1.2.3")
	c.Register("database", true, fail)

	rec := httptest.NewRecorder()
	require.NoError(t, c.ReadinessHandler(e.NewContext(httptest.NewRequest(http.MethodGet, "/ready", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "still starting up")

	c.SetReady(true)
	rec = httptest.NewRecorder()
	require.NoError(t, c.ReadinessHandler(e.NewContext(httptest.NewRequest(http.MethodGet, "/ready", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "connection refused", resp.Checks["database"].Message)
	assert.Equal(t, "1.2.3", resp.Version)
}
