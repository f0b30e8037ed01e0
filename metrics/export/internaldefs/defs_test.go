package internaldefs

import (
	"strings"
	"testing"

	"github.com/wboard/connector"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	snapshot := connector.NewMetrics(connector.MetricsConfig{Enabled: true}).Snapshot()

	seen := make(map[connector.MetricID]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate counter def for id %d", def.ID)
		}
		seen[def.ID] = true
		if !strings.HasPrefix(def.Name, "wboard_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
	}
	for id := range snapshot.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no exporter definition", id)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(NormalizeBuckets(nil)) {
		t.Fatalf("expected %d finite bounds plus +Inf, got %d", len(NormalizeBuckets(nil))-1, len(HistogramUpperBounds))
	}

	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}
