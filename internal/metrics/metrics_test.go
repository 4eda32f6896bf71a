package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cdcflow/logger"
)

func TestSessionCounters(t *testing.T) {
	before := testutil.ToFloat64(framesReceived.WithLabelValues("market"))
	FrameReceived("market")
	FrameReceived("market")
	if got := testutil.ToFloat64(framesReceived.WithLabelValues("market")); got != before+2 {
		t.Fatalf("expected %v frames, got %v", before+2, got)
	}

	EventPublished("user", "auth")
	if got := testutil.ToFloat64(events.WithLabelValues("user", "auth")); got < 1 {
		t.Fatalf("event not counted")
	}
}

type fixedQueue struct {
	name string
	n    int
}

func (q fixedQueue) Name() string { return q.name }
func (q fixedQueue) Len() int     { return q.n }

func TestSampleQueues(t *testing.T) {
	log := logger.New(io.Discard)
	SampleQueues(log, fixedQueue{name: "market_actions", n: 4}, nil)

	if got := testutil.ToFloat64(queueLength.WithLabelValues("market_actions")); got != 4 {
		t.Fatalf("expected gauge 4, got %v", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	ActionSubmitted("market", "subscribe")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `cdcflow_actions_submitted_total{method="subscribe",stream="market"}`) {
		t.Fatalf("counter missing from exposition:\n%s", body)
	}
}

func TestReportRecorderDispatchesMetrics(t *testing.T) {
	resetMetricHandlers()
	var names []string
	id := RegisterMetricHandler(func(m Metric) { names = append(names, m.Name) })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	log := logger.New(io.Discard)
	ReportRecorder(log, "recorder_parquet", RecorderStats{BatchesWritten: 2, RowsWritten: 10})

	if len(names) != 5 || names[0] != "batches_written" {
		t.Fatalf("unexpected metrics dispatched: %v", names)
	}
}

func TestExportEmitted(t *testing.T) {
	resetMetricHandlers()
	id := ExportEmitted()
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	log := logger.New(io.Discard)
	EmitMetric(log, "recorder_kafka", "rows_written", int64(7), "counter", nil)
	EmitMetric(log, "recorder_kafka", "label", "text", "gauge", nil)

	if got := testutil.ToFloat64(emitted.WithLabelValues("recorder_kafka", "rows_written")); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}
