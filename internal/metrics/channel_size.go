package metrics

import (
	"context"
	"time"

	"cdcflow/logger"
)

// Sized is anything with a name and a current length, typically a session
// queue.
type Sized interface {
	Name() string
	Len() int
}

// StartQueueSizeMetrics samples the length of each queue every interval and
// records it as a gauge until ctx is cancelled. When interval <= 0 a one-second
// cadence is used.
func StartQueueSizeMetrics(ctx context.Context, interval time.Duration, queues ...Sized) {
	if len(queues) == 0 {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}

	log := logger.GetLogger()
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				SampleQueues(log, queues...)
			}
		}
	}()
}

// SampleQueues records one length sample per queue.
func SampleQueues(log *logger.Log, queues ...Sized) {
	for _, q := range queues {
		if q == nil {
			continue
		}
		n := q.Len()
		queueLength.WithLabelValues(q.Name()).Set(float64(n))
		log.WithComponent("queues").WithFields(logger.Fields{
			"queue":  q.Name(),
			"length": n,
		}).Debug("queue length")
	}
}
