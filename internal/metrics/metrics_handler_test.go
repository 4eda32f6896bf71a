package metrics

import (
	"io"
	"testing"

	"cdcflow/logger"
)

func resetMetricHandlers() {
	handlers.mu.Lock()
	handlers.byID = make(map[MetricHandlerID]MetricHandler)
	handlers.mu.Unlock()
}

func TestMetricHandlersRunInRegistrationOrder(t *testing.T) {
	resetMetricHandlers()
	var order []string
	first := RegisterMetricHandler(func(Metric) { order = append(order, "prometheus") })
	second := RegisterMetricHandler(func(Metric) { order = append(order, "audit") })
	t.Cleanup(func() {
		UnregisterMetricHandler(first)
		UnregisterMetricHandler(second)
	})
	if first == 0 || second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	EmitMetric(logger.New(io.Discard), "market_router", "actions_submitted", 1, "counter", nil)
	if len(order) != 2 || order[0] != "prometheus" || order[1] != "audit" {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
}

func TestUnregisteredHandlerStopsReceiving(t *testing.T) {
	resetMetricHandlers()
	calls := 0
	id := RegisterMetricHandler(func(Metric) { calls++ })
	log := logger.New(io.Discard)

	EmitMetric(log, "user_stream", "frames", 1, "counter", nil)
	UnregisterMetricHandler(id)
	EmitMetric(log, "user_stream", "frames", 2, "counter", nil)

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if RegisterMetricHandler(nil) != 0 {
		t.Fatalf("nil handler must get id 0")
	}
}

func TestEmitMetricCopiesStreamFields(t *testing.T) {
	resetMetricHandlers()
	var got Metric
	id := RegisterMetricHandler(func(m Metric) { got = m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	fields := logger.Fields{"stream": "market"}
	EmitMetric(nil, "session", "events", 7, "", fields)
	fields["stream"] = "user"

	if got.Type != "counter" {
		t.Fatalf("expected default type counter, got %s", got.Type)
	}
	if got.Fields["stream"] != "market" {
		t.Fatalf("handler saw caller's later mutation: %v", got.Fields)
	}
	if _, ok := got.Fields["metric"]; ok {
		t.Fatalf("log-only keys leaked into handler fields: %v", got.Fields)
	}
	if v, ok := got.Float(); !ok || v != 7 {
		t.Fatalf("expected numeric 7, got %v %v", v, ok)
	}
}

func TestEmitMetricWithoutNameIsDropped(t *testing.T) {
	resetMetricHandlers()
	id := RegisterMetricHandler(func(m Metric) { t.Fatalf("unexpected metric %+v", m) })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(nil, "recorder", "", 1, "counter", nil)
}

func TestMetricFloat(t *testing.T) {
	if _, ok := (Metric{Value: "BTC_USDT"}).Float(); ok {
		t.Fatalf("string value must not be numeric")
	}
	if v, ok := (Metric{Value: int64(3)}).Float(); !ok || v != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
}
