package obs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRouteTemplate(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Instrument())
	e.DELETE("/users/me/sessions/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/me/sessions/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodDelete, "/users/me/sessions/:id", "204"))
	assert.Equal(t, float64(2), got)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpInFlight))
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.AuthOutcome("login", "ok")
	m.AuthOutcome("login", "INVALID_CREDENTIALS")
	m.AuthOutcome("login", "INVALID_CREDENTIALS")
	m.RateLimited()
	m.RateLimiterFailed()
	m.SetBuildInfo("dev", "none")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.authOps.WithLabelValues("login", "INVALID_CREDENTIALS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimitRejected))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `auth_operations_total{op="login",outcome="ok"} 1`))
	assert.Contains(t, body, "rate_limit_backend_errors_total 1")
	assert.Contains(t, body, `build_info{commit="none",version="dev"} 1`)
}
