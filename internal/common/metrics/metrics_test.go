// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew_IndependentRegistries(t *testing.T) {
	m1 := New("")
	m2 := New("")
	require.NotNil(t, m1)
	assert.NotSame(t, m1.Registry(), m2.Registry())
}

func TestMiddleware_RecordsRequests(t *testing.T) {
	m := New("test_http")
	r := gin.New()
	r.Use(m.Middleware("/metrics"))
	r.GET("/rooms/:number", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/101", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/rooms/:number", "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpRequestsInFlight))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	m := New("test_domain")

	m.RecordReservationTransition("checked_in")
	m.RecordReservationTransition("checked_in")
	m.RecordInvoice("cash", "paid", 75.5)
	m.RecordChargesVoided(3)
	m.RecordChargesVoided(0)
	m.RecordCacheHit("report")
	m.RecordCacheMiss("report")
	m.RecordEventPublished("invoice.created", nil)
	m.RecordEventPublished("invoice.created", errors.New("down"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.reservationsTotal.WithLabelValues("checked_in")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invoicesTotal.WithLabelValues("cash", "paid")))
	assert.Equal(t, 75.5, testutil.ToFloat64(m.invoiceAmountTotal.WithLabelValues("cash")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.chargesVoidedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("report")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsPublishedTotal.WithLabelValues("invoice.created", "error")))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReservationTransition("confirmed")
		m.RecordInvoice("card", "paid", 10)
		m.RecordChargesVoided(1)
		m.RecordCacheHit("report")
		m.RecordCacheMiss("report")
		m.RecordEventPublished("x", nil)
	})
}
