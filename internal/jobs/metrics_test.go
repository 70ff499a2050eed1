package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("articles:auto_publish").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("articles:auto_publish").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("articles:auto_publish", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("articles:auto_publish")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAddSweep(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSweep(2, 1)
	m.AddSweep(0, 0)

	if got := testutil.ToFloat64(m.published.WithLabelValues("published")); got != 2 {
		t.Fatalf("expected 2 published, got %v", got)
	}
	if got := testutil.ToFloat64(m.published.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddSweep(1, 1)
}
