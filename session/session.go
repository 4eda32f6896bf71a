// Package session assembles the market and user streams into one controller.
// Capabilities are tracked in the controller's type parameters, so submitting
// a private action to a session without credentials or a user stream does not
// compile.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cdcflow/internal/channel"
	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/models"
	"cdcflow/stream"
)

// Capability markers.
type (
	Unauthenticated struct{}
	Authenticated   struct{}
	NoUserStream    struct{}
	UserStream      struct{}
	NoMarketStream  struct{}
	MarketStream    struct{}
)

// AuthState is satisfied by the authentication markers.
type AuthState interface {
	Unauthenticated | Authenticated
}

// UserState is satisfied by the user stream markers.
type UserState interface {
	NoUserStream | UserStream
}

// MarketState is satisfied by the market stream markers.
type MarketState interface {
	NoMarketStream | MarketStream
}

const (
	defaultCloseTimeout = 5 * time.Second
	resultBuffer        = 8
)

type options struct {
	writeTimeout time.Duration
	closeTimeout time.Duration
	dialer       *websocket.Dialer
}

// Option configures a Builder.
type Option func(*options)

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithCloseTimeout bounds how long Close waits for queued actions to flush.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) { o.closeTimeout = d }
}

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

type credentials struct {
	apiKey    string
	secretKey string
}

type taskResult struct {
	task string
	err  error
}

// core is the state shared by a builder chain and the controller it builds.
type core struct {
	opts   options
	ctx    context.Context
	cancel context.CancelFunc
	ids    idCounter
	fanIn  *channel.FanIn
	creds  *credentials
	market *router
	user   *router

	results chan taskResult
	wg      sync.WaitGroup

	closeOnce    sync.Once
	shutdownOnce sync.Once
	closing      chan struct{}
	closed       chan struct{}
	log          *logger.Entry
}

func newCore(opts options) *core {
	ctx, cancel := context.WithCancel(context.Background())
	return &core{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		fanIn:   channel.NewFanIn(),
		results: make(chan taskResult, resultBuffer),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
		log:     logger.GetLogger().WithComponent("session"),
	}
}

func (c *core) streamConfig(kind models.Stream, url string) stream.Config {
	return stream.Config{
		Stream:       kind,
		URL:          url,
		WriteTimeout: c.opts.writeTimeout,
		Dialer:       c.opts.dialer,
	}
}

// spawn runs fn as a session task whose result is reported once.
func (c *core) spawn(name string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.report(name, fn(c.ctx))
	}()
}

func (c *core) report(task string, err error) {
	if err != nil {
		c.log.WithError(err).WithFields(logger.Fields{"task": task}).Warn("session task failed")
	} else {
		c.log.WithFields(logger.Fields{"task": task}).Debug("session task finished")
	}
	select {
	case c.results <- taskResult{task: task, err: err}:
	default:
	}
}

// attach starts the stream and router tasks for a freshly dialed stream.
func (c *core) attach(s *stream.Stream) *router {
	r := newRouter(s)
	c.spawn(string(s.Kind())+"_stream", s.Run)
	c.spawn(string(s.Kind())+"_router", r.run)
	return r
}

func (c *core) routers() []*router {
	var out []*router
	for _, r := range []*router{c.market, c.user} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// queues lists every session queue for size sampling.
func (c *core) queues() []metrics.Sized {
	var out []metrics.Sized
	for _, r := range c.routers() {
		out = append(out, r.actions, r.stream.FrameQueue())
	}
	return out
}

// close stops accepting actions, waits for queued actions to be written and
// then tears the session down.
func (c *core) close() {
	c.closeOnce.Do(func() {
		close(c.closing)
		for _, r := range c.routers() {
			r.actions.Close()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		timeout := c.opts.closeTimeout
		if timeout <= 0 {
			timeout = defaultCloseTimeout
		}
		select {
		case <-done:
		case <-time.After(timeout):
			c.log.Warn("timed out flushing queued actions")
		}
		c.shutdown()
		close(c.closed)
	})
}

func (c *core) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// firstFailure returns the first buffered task error, if any.
func (c *core) firstFailure() taskResult {
	for {
		select {
		case res := <-c.results:
			if res.err != nil {
				return res
			}
		default:
			return taskResult{task: "close"}
		}
	}
}

// shutdown cancels every task, closes every queue and connection and waits
// for the tasks to return.
func (c *core) shutdown() {
	c.shutdownOnce.Do(func() {
		c.cancel()
		for _, r := range c.routers() {
			r.actions.Close()
			r.stream.Close()
		}
		c.wg.Wait()
		c.fanIn.Close()
		c.log.WithFields(logger.Fields{"next_id": c.ids.peek()}).Info("session closed")
	})
}
