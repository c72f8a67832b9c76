package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserversAreNoopsBeforeInit(t *testing.T) {
	if parseTotal != nil {
		t.Skip("metrics already initialised")
	}
	ObserveParse("csv", ResultSuccess, time.Millisecond)
	IncParseFailure("")
	AddParsedRecords("csv", 3)
	ObserveUploadSize(10)
	ObserveReportExport("pdf", ResultSuccess, time.Millisecond)
	ObserveRPR(ResultSuccess)
	IncEventPublished("production.parsed", ResultSuccess)
}

func TestCountersAfterInit(t *testing.T) {
	Init(nil, nil)
	before := counterValue(t, parseTotal.WithLabelValues("xml", ResultFailure))
	ObserveParse("xml", ResultFailure, 5*time.Millisecond)
	if got := counterValue(t, parseTotal.WithLabelValues("xml", ResultFailure)); got != before+1 {
		t.Fatalf("expected parse counter %v, got %v", before+1, got)
	}

	before = counterValue(t, parsedRecords.WithLabelValues("xml"))
	AddParsedRecords("xml", 0)
	AddParsedRecords("xml", 4)
	if got := counterValue(t, parsedRecords.WithLabelValues("xml")); got != before+4 {
		t.Fatalf("expected parsed records %v, got %v", before+4, got)
	}

	before = counterValue(t, parseFailures.WithLabelValues("unknown"))
	IncParseFailure("")
	if got := counterValue(t, parseFailures.WithLabelValues("unknown")); got != before+1 {
		t.Fatalf("expected unknown reason counter %v, got %v", before+1, got)
	}
}
