package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	// Replace global default registry to allow test inspection.
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry

	m := New()

	if m.VouchersPosted == nil || m.HTTPRequests == nil || m.SnapshotCache == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.VouchersPosted.WithLabelValues("RV").Inc()
	m.VouchersPosted.WithLabelValues("RV").Inc()
	m.AdjustmentsSkipped.Add(3)

	if got := testutil.ToFloat64(m.VouchersPosted.WithLabelValues("RV")); got != 2 {
		t.Errorf("vouchers posted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AdjustmentsSkipped); got != 3 {
		t.Errorf("adjustments skipped = %v, want 3", got)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}
