// Package recorder buffers market events as flat rows and writes them to
// Parquet files, S3 or Kafka in batches.
package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/models"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 30 * time.Second
)

// Sink stores batches. Write returns the number of bytes written.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch Batch) (int64, error)
	Close() error
}

type Options struct {
	BatchSize     int
	FlushInterval time.Duration
}

type bufferKey struct {
	kind       models.Kind
	instrument string
}

// Recorder collects rows per (kind, instrument) and flushes them to every
// sink when a buffer reaches BatchSize rows, on every FlushInterval tick and
// on Close.
type Recorder struct {
	opts  Options
	sinks []Sink
	log   *logger.Log

	mu       sync.Mutex
	buffer   map[bufferKey][]Row
	buffered int

	statsMu sync.Mutex
	stats   map[string]*metrics.RecorderStats

	flushCh   chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(opts Options, sinks ...Sink) *Recorder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	r := &Recorder{
		opts:    opts,
		sinks:   sinks,
		log:     logger.GetLogger(),
		buffer:  make(map[bufferKey][]Row),
		stats:   make(map[string]*metrics.RecorderStats),
		flushCh: make(chan struct{}, 1),
	}
	for _, s := range sinks {
		r.stats[s.Name()] = &metrics.RecorderStats{}
	}
	return r
}

// Start runs the flush worker until ctx is done or Close is called.
func (r *Recorder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.flushWorker(ctx)
}

func (r *Recorder) flushWorker(ctx context.Context) {
	defer r.wg.Done()

	log := r.log.WithComponent("recorder").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("flush worker stopped")
			return
		case <-ticker.C:
			r.flush(ctx, "interval")
		case <-r.flushCh:
			r.flush(ctx, "size")
		}
	}
}

// Record buffers the rows of ev. It reports whether ev produced any rows.
func (r *Recorder) Record(ev models.Event) bool {
	instrument, rows := Flatten(ev)
	if len(rows) == 0 {
		return false
	}
	key := bufferKey{kind: rows[0].Kind(), instrument: instrument}

	r.mu.Lock()
	r.buffer[key] = append(r.buffer[key], rows...)
	r.buffered += len(rows)
	full := len(r.buffer[key]) >= r.opts.BatchSize
	r.mu.Unlock()

	if full {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
	return true
}

// Handle records ev and never stops the listen loop. Its signature matches
// session.Handler.
func (r *Recorder) Handle(ev models.Event) (bool, error) {
	r.Record(ev)
	return false, nil
}

// Flush writes every buffered row to every sink.
func (r *Recorder) Flush(ctx context.Context) error {
	return r.flush(ctx, "manual")
}

func (r *Recorder) flush(ctx context.Context, reason string) error {
	r.mu.Lock()
	buffers := r.buffer
	r.buffer = make(map[bufferKey][]Row)
	r.buffered = 0
	r.mu.Unlock()

	if len(buffers) == 0 {
		return nil
	}

	start := time.Now()
	log := r.log.WithComponent("recorder")
	log.WithFields(logger.Fields{
		"flushed_buffers": len(buffers),
		"reason":          reason,
	}).Debug("flushing buffers")

	batches := make([]Batch, 0, len(buffers))
	for key, rows := range buffers {
		batches = append(batches, Batch{
			ID:         uuid.NewString(),
			Kind:       key.kind,
			Instrument: key.instrument,
			Rows:       rows,
			CreatedAt:  start,
		})
	}

	var g errgroup.Group
	for _, sink := range r.sinks {
		sink := sink
		g.Go(func() error {
			return r.writeAll(ctx, sink, batches)
		})
	}
	err := g.Wait()

	logger.LogPerformanceEntry(log, "recorder", "flush", time.Since(start), logger.Fields{
		"reason":  reason,
		"batches": len(batches),
	})
	for _, sink := range r.sinks {
		metrics.ReportRecorder(r.log, "recorder_"+sink.Name(), r.sinkStats(sink.Name()))
	}
	return err
}

func (r *Recorder) writeAll(ctx context.Context, sink Sink, batches []Batch) error {
	log := r.log.WithComponent("recorder")
	var errs []error
	for _, batch := range batches {
		n, err := sink.Write(ctx, batch)
		r.statsMu.Lock()
		st := r.stats[sink.Name()]
		if err != nil {
			st.ErrorsCount++
		} else {
			st.BatchesWritten++
			st.RowsWritten += int64(len(batch.Rows))
			st.BytesWritten += n
		}
		r.statsMu.Unlock()

		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"sink":     sink.Name(),
				"batch_id": batch.ID,
			}).Warn("failed to write batch")
			errs = append(errs, err)
			continue
		}
		logger.IncrementRecorderWrite(sink.Name(), n)
		logger.LogDataFlowEntry(log, "recorder", sink.Name(), len(batch.Rows), string(batch.Kind))
	}
	return errors.Join(errs...)
}

func (r *Recorder) sinkStats(name string) metrics.RecorderStats {
	r.mu.Lock()
	buffered := r.buffered
	r.mu.Unlock()

	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	st := *r.stats[name]
	st.Buffered = buffered
	return st
}

// Stats returns the counters of the named sink.
func (r *Recorder) Stats(name string) metrics.RecorderStats {
	r.statsMu.Lock()
	_, ok := r.stats[name]
	r.statsMu.Unlock()
	if !ok {
		return metrics.RecorderStats{}
	}
	return r.sinkStats(name)
}

// Close stops the flush worker, flushes what is buffered and closes every
// sink.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()

		errs := []error{r.flush(context.Background(), "close")}
		for _, s := range r.sinks {
			errs = append(errs, s.Close())
		}
		err = errors.Join(errs...)
		r.log.WithComponent("recorder").Info("recorder closed")
	})
	return err
}
