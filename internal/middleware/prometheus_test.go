package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"auth_service/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	e := echo.New()
	e.Use(PrometheusMetrics)
	e.GET("/teapot", func(c echo.Context) error {
		return c.NoContent(http.StatusTeapot)
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "nope")
	})

	okCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/teapot", "418")
	failCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/fail", "401")
	okBefore := testutil.ToFloat64(okCounter)
	failBefore := testutil.ToFloat64(failCounter)

	for _, path := range []string{"/teapot", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.NotZero(t, rec.Code)
	}

	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCounter))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(failCounter))
}
