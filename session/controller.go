package session

import (
	"context"
	"errors"
	"time"

	"cdcflow/actions"
	"cdcflow/apierr"
	"cdcflow/internal/channel"
	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/models"
)

// Controller is the running session. What may be submitted depends on its
// type parameters; see SubmitMarketAction, SubmitUserAction,
// SubmitPrivateAction and Authenticate.
type Controller[A AuthState, U UserState, M MarketState] struct {
	core *core
}

// SubmitMarketAction queues a on the market stream and assigns it the next
// correlation id.
func SubmitMarketAction[A AuthState, U UserState](c *Controller[A, U, MarketStream], a actions.MarketAction) error {
	return c.core.ids.submit(c.core.market, a)
}

// SubmitUserAction queues a public action on the user stream.
func SubmitUserAction[A AuthState, M MarketState](c *Controller[A, UserStream, M], a actions.UserAction) error {
	return c.core.ids.submit(c.core.user, a)
}

// SubmitPrivateAction queues a credentialed action on the user stream.
func SubmitPrivateAction[M MarketState](c *Controller[Authenticated, UserStream, M], a actions.PrivateAction) error {
	return c.core.ids.submit(c.core.user, a)
}

// Authenticate submits public/auth signed with the credentials given to
// WithAuth. The outcome arrives as an AuthResult event.
func Authenticate[M MarketState](c *Controller[Authenticated, UserStream, M]) error {
	creds := c.core.creds
	return c.core.ids.submit(c.core.user, actions.Auth{APIKey: creds.apiKey, SecretKey: creds.secretKey})
}

// NextID returns the id the next accepted submission will carry.
func (c *Controller[A, U, M]) NextID() uint64 {
	return c.core.ids.peek()
}

// StartQueueMetrics samples every session queue's length until ctx is done.
func (c *Controller[A, U, M]) StartQueueMetrics(ctx context.Context, interval time.Duration) {
	metrics.StartQueueSizeMetrics(ctx, interval, c.core.queues()...)
}

// Close stops accepting actions, lets queued actions reach the wire and then
// closes both streams. It is safe to call more than once.
func (c *Controller[A, U, M]) Close() error {
	c.core.close()
	return nil
}

// Handler receives each event in arrival order. Returning stop ends the
// listen loop without error; a non-nil error ends it with that error.
type Handler func(models.Event) (stop bool, err error)

// ListenHandle resolves when the session stops.
type ListenHandle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the session has stopped and returns its outcome.
func (h *ListenHandle) Wait() error {
	<-h.done
	return h.err
}

// Done is closed once the session has stopped.
func (h *ListenHandle) Done() <-chan struct{} {
	return h.done
}

// Listen feeds events to handler until the handler stops, any session task
// ends, or ctx is done, then shuts the session down. The first outcome wins.
// Only one Listen may run per session; later calls resolve immediately with
// an error.
func (c *Controller[A, U, M]) Listen(ctx context.Context, handler Handler) *ListenHandle {
	h := &ListenHandle{done: make(chan struct{})}

	rx, ok := c.core.fanIn.Take()
	if !ok {
		h.err = apierr.InvalidRequest("listener already attached")
		close(h.done)
		return h
	}

	go c.core.listen(ctx, rx, handler, h)
	return h
}

func (c *core) listen(ctx context.Context, rx *channel.Receiver, handler Handler, h *ListenHandle) {
	log := logger.GetLogger().WithComponent("listener")
	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.report("listener", consume(listenCtx, rx, handler))
	}()

	var res taskResult
	select {
	case res = <-c.results:
	case <-ctx.Done():
		res = taskResult{task: "context", err: ctx.Err()}
	case <-c.closing:
		res = taskResult{task: "close"}
	}

	// Once Close has started, tasks finishing is the drain itself; Close
	// owns the teardown.
	if res.task != "context" && c.isClosing() {
		select {
		case <-c.closed:
			if res.err == nil {
				res = c.firstFailure()
			}
		case <-ctx.Done():
			res = taskResult{task: "context", err: ctx.Err()}
		}
	}
	cancel()
	c.shutdown()

	if res.err != nil {
		log.WithError(res.err).WithFields(logger.Fields{"task": res.task}).Warn("session stopped with error")
	} else {
		log.WithFields(logger.Fields{"task": res.task}).Info("session stopped")
	}
	h.err = res.err
	close(h.done)
}

func consume(ctx context.Context, rx *channel.Receiver, handler Handler) error {
	for {
		ev, err := rx.Next(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		stop, err := handler(ev)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
