package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(StaleResultsTotal.WithLabelValues("filter"))
	StaleResultsTotal.WithLabelValues("filter").Inc()
	if got := testutil.ToFloat64(StaleResultsTotal.WithLabelValues("filter")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestTracerNoopWithoutProvider(t *testing.T) {
	_, span := Tracer.Start(context.Background(), "test")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatal("expected unsampled span without an installed provider")
	}
}
