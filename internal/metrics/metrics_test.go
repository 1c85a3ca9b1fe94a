package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordGuardDecision(t *testing.T) {
	before := testutil.ToFloat64(guardDecisions.WithLabelValues("legacy", "redirect"))
	RecordGuardDecision("legacy", false)
	assert.Equal(t, before+1, testutil.ToFloat64(guardDecisions.WithLabelValues("legacy", "redirect")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/v1/progress/:scope/:item", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/v1/progress/:scope/:item", "204"))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/progress/math/lesson-1", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/v1/progress/:scope/:item", "204"))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordResolution("resolved")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "coins_for_study_session_resolutions_total"))
}
