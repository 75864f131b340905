package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/infrastructure/metrics"
)

func newHTTPMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_http_requests_total"},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_http_duration_seconds"},
			[]string{"method", "path"},
		),
		HTTPInFlight:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_http_in_flight"}),
		RateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_rate_limit_hits_total"}),
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
	}{
		{"normalizes transaction path", http.MethodGet, "/api/v1/transactions/01HX", http.StatusNotFound},
		{"keeps health path", http.MethodGet, "/health", http.StatusOK},
		{"voucher submission", http.MethodPost, "/api/v1/vouchers", http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newHTTPMetrics()

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(tc.statusCode)
			})

			NewMetricsMiddleware(m).Wrap(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))

			require.True(t, handlerCalled)
			assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPInFlight))

			counter := m.HTTPRequests.WithLabelValues(tc.method, normalizePath(tc.path), strconv.Itoa(tc.statusCode))
			assert.Equal(t, 1.0, testutil.ToFloat64(counter))
		})
	}
}

func TestMetricsMiddlewareNilMetricsPassesThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	NewMetricsMiddleware(nil).Wrap(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/api/v1/transactions/01HX", "/api/v1/transactions/:id"},
		{"/api/v1/transactions/01HX/edit", "/api/v1/transactions/:id/edit"},
		{"/api/v1/parties/acme/balance", "/api/v1/parties/:ref/balance"},
		{"/api/v1/stock/positions", "/api/v1/stock/positions"},
		{"/api/v1/transactions/", "/api/v1/transactions/"},
		{"/health", "/health"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalizePath(tc.input))
		})
	}
}
