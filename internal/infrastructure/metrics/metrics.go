package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Voucher metrics
	VouchersPosted  *prometheus.CounterVec
	VoucherErrors   *prometheus.CounterVec
	PostingDuration prometheus.Histogram

	// Edit and alignment metrics
	EditOutcomes          *prometheus.CounterVec
	AlignmentTransactions *prometheus.CounterVec

	// Stock metrics
	ReconciliationDuration prometheus.Histogram
	AdjustmentsSkipped     prometheus.Counter
	SnapshotCache          *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Database metrics
	DBRetries *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Voucher metrics
		VouchersPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_vouchers_posted_total",
				Help: "Total number of vouchers posted by kind",
			},
			[]string{"kind"},
		),
		VoucherErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_voucher_errors_total",
				Help: "Total number of rejected vouchers by error type",
			},
			[]string{"error_type"},
		),
		PostingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "factoryledger_posting_duration_seconds",
			Help:    "Duration of voucher posting",
			Buckets: prometheus.DefBuckets,
		}),

		// Edit and alignment metrics
		EditOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_edit_outcomes_total",
				Help: "Total transaction edits by outcome",
			},
			[]string{"status"},
		),
		AlignmentTransactions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_alignment_transactions_total",
				Help: "Total alignment transactions posted by target",
			},
			[]string{"target"},
		),

		// Stock metrics
		ReconciliationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "factoryledger_stock_reconciliation_duration_seconds",
			Help:    "Duration of a full original-stock replay",
			Buckets: prometheus.DefBuckets,
		}),
		AdjustmentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factoryledger_stock_adjustments_skipped_total",
			Help: "Total stock adjustments that could not be reconciled",
		}),
		SnapshotCache: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_stock_snapshot_cache_total",
				Help: "Stock snapshot cache lookups by result",
			},
			[]string{"result"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "factoryledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "factoryledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Database metrics
		DBRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factoryledger_db_retries_total",
				Help: "Total retried database operations by error code",
			},
			[]string{"code"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factoryledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}
