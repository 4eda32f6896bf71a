// Registers:
//
//	#cdcflow_frames_received_total{stream}
//	#cdcflow_frames_sent_total{stream}
//	#cdcflow_events_total{stream,kind}
//	#cdcflow_actions_submitted_total{stream,method}
//	#cdcflow_submit_failures_total{stream}
//	#cdcflow_stream_errors_total{stream,kind}
//	#cdcflow_queue_length{queue}
//	#cdcflow_emitted{component,name}
//	#go_* and process_* system metrics
//
// on a private registry exposed by Handler and Serve.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cdcflow/logger"
)

var (
	registry = prometheus.NewRegistry()

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_frames_received_total",
			Help: "Inbound websocket frames read per stream",
		},
		[]string{"stream"},
	)

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_frames_sent_total",
			Help: "Outbound websocket frames written per stream",
		},
		[]string{"stream"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_events_total",
			Help: "Events published to the fan-in",
		},
		[]string{"stream", "kind"},
	)

	actionsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_actions_submitted_total",
			Help: "Actions accepted by a router",
		},
		[]string{"stream", "method"},
	)

	submitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_submit_failures_total",
			Help: "Submissions rejected because the action queue was closed",
		},
		[]string{"stream"},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdcflow_stream_errors_total",
			Help: "Errors that terminated a stream or router, by error kind",
		},
		[]string{"stream", "kind"},
	)

	queueLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cdcflow_queue_length",
			Help: "Items waiting in a session queue",
		},
		[]string{"queue"},
	)

	emitted = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cdcflow_emitted",
			Help: "Last numeric value of each metric passed to EmitMetric",
		},
		[]string{"component", "name"},
	)
)

func init() {
	registry.MustRegister(
		framesReceived,
		framesSent,
		events,
		actionsSubmitted,
		submitFailures,
		streamErrors,
		queueLength,
		emitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the registry the session counters are registered on.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.GetLogger().WithComponent("metrics").WithFields(logger.Fields{"addr": addr}).Info("serving prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ExportEmitted mirrors numeric EmitMetric values into the registry until the
// returned id is unregistered.
func ExportEmitted() MetricHandlerID {
	return RegisterMetricHandler(func(m Metric) {
		if v, ok := m.Float(); ok {
			emitted.WithLabelValues(m.Component, m.Name).Set(v)
		}
	})
}

func FrameReceived(stream string) { framesReceived.WithLabelValues(stream).Inc() }

func FrameSent(stream string) { framesSent.WithLabelValues(stream).Inc() }

func EventPublished(stream, kind string) { events.WithLabelValues(stream, kind).Inc() }

func ActionSubmitted(stream, method string) {
	actionsSubmitted.WithLabelValues(stream, method).Inc()
}

func SubmitFailed(stream string) { submitFailures.WithLabelValues(stream).Inc() }

func StreamError(stream, kind string) { streamErrors.WithLabelValues(stream, kind).Inc() }
