package session

import (
	"context"
	"errors"
	"sync"

	"cdcflow/actions"
	"cdcflow/internal/channel"
	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/models"
	"cdcflow/stream"
)

// router owns one stream's action queue. Records are processed strictly in
// submission order.
type router struct {
	kind    models.Stream
	stream  *stream.Stream
	actions *channel.Queue[actions.Record]
	log     *logger.Entry
}

func newRouter(s *stream.Stream) *router {
	kind := s.Kind()
	return &router{
		kind:    kind,
		stream:  s,
		actions: channel.NewQueue[actions.Record](string(kind) + "_actions"),
		log:     logger.GetLogger().WithComponent(string(kind) + "_router").WithStream(string(kind)),
	}
}

// run pops records and processes them against the stream's frame sink. It
// returns nil once the action queue is closed and drained, after asking the
// stream to flush its remaining frames.
func (r *router) run(ctx context.Context) error {
	defer r.stream.CloseFrames()
	for {
		rec, err := r.actions.Pop(ctx)
		if errors.Is(err, channel.ErrClosed) {
			r.log.Debug("action queue drained")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := rec.Action.Process(r.stream.Frames(), rec.ID); err != nil {
			r.log.WithError(err).WithRequest(int64(rec.ID), rec.Action.Method()).Error("failed to process action")
			return err
		}
	}
}

// idCounter hands out correlation ids. The lock is held across the queue
// push so ids are never burned by failed submissions.
type idCounter struct {
	mu   sync.Mutex
	next uint64
}

func (c *idCounter) submit(r *router, a actions.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := r.actions.Push(actions.Record{ID: c.next, Action: a}); err != nil {
		metrics.SubmitFailed(string(r.kind))
		return err
	}
	c.next++
	metrics.ActionSubmitted(string(r.kind), a.Method())
	return nil
}

func (c *idCounter) peek() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
