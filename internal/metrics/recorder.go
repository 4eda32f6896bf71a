package metrics

import "cdcflow/logger"

// RecorderStats holds counters for one recorder sink.
type RecorderStats struct {
	BatchesWritten int64
	RowsWritten    int64
	BytesWritten   int64
	ErrorsCount    int64
	Buffered       int
}

// ReportRecorder emits sink metrics using the provided logger and component name.
func ReportRecorder(log *logger.Log, component string, stats RecorderStats) {
	l := log.WithComponent(component)

	errorRate := float64(0)
	if stats.BatchesWritten+stats.ErrorsCount > 0 {
		errorRate = float64(stats.ErrorsCount) / float64(stats.BatchesWritten+stats.ErrorsCount)
	}

	avgRowsPerBatch := float64(0)
	if stats.BatchesWritten > 0 {
		avgRowsPerBatch = float64(stats.RowsWritten) / float64(stats.BatchesWritten)
	}

	EmitMetric(log, component, "batches_written", stats.BatchesWritten, "counter", nil)
	EmitMetric(log, component, "rows_written", stats.RowsWritten, "counter", nil)
	EmitMetric(log, component, "bytes_written", stats.BytesWritten, "counter", nil)
	EmitMetric(log, component, "errors_count", stats.ErrorsCount, "counter", nil)
	EmitMetric(log, component, "rows_buffered", stats.Buffered, "gauge", nil)

	entry := l.WithFields(logger.Fields{
		"batches_written":    stats.BatchesWritten,
		"rows_written":       stats.RowsWritten,
		"bytes_written":      stats.BytesWritten,
		"errors_count":       stats.ErrorsCount,
		"error_rate":         errorRate,
		"avg_rows_per_batch": avgRowsPerBatch,
		"rows_buffered":      stats.Buffered,
	})

	if stats.ErrorsCount > 0 {
		entry.Warn(component + " metrics")
		return
	}

	entry.Info(component + " metrics")
}
