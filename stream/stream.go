// Package stream pumps one websocket connection: outbound frames are drained
// from a queue and written, inbound frames are decoded, classified and
// published to the session's event fan-in.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"cdcflow/apierr"
	"cdcflow/codec"
	"cdcflow/internal/channel"
	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/models"
)

const defaultWriteTimeout = 10 * time.Second

// Config describes one stream connection.
type Config struct {
	Stream       models.Stream
	URL          string
	Header       http.Header
	WriteTimeout time.Duration
	Dialer       *websocket.Dialer
}

// Stream owns one websocket connection and its outbound frame queue.
type Stream struct {
	kind       models.Stream
	conn       *websocket.Conn
	frames     *channel.Queue[codec.Frame]
	events     channel.Publisher
	classifier *Classifier
	timeout    time.Duration
	log        *logger.Entry

	closing   atomic.Bool
	closeOnce sync.Once
}

// Dial connects to cfg.URL and publishes the stream's handshake event before
// returning. No goroutines are started; call Run to pump the connection.
func Dial(ctx context.Context, cfg Config, events channel.Publisher) (*Stream, error) {
	log := logger.GetLogger().WithComponent(string(cfg.Stream) + "_stream").WithStream(string(cfg.Stream)).WithFields(logger.Fields{"url": cfg.URL})

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		log.WithError(err).Warn("failed to connect websocket")
		return nil, apierr.Unclassified(fmt.Errorf("connect %s stream: %w", cfg.Stream, err))
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	s := &Stream{
		kind:       cfg.Stream,
		conn:       conn,
		frames:     channel.NewQueue[codec.Frame](string(cfg.Stream) + "_frames"),
		events:     events,
		classifier: NewClassifier(cfg.Stream),
		timeout:    timeout,
		log:        log,
	}
	conn.SetPingHandler(s.onPing)

	if err := events.Publish(models.NewEvent(cfg.Stream, nil, models.Handshake{Stream: cfg.Stream})); err != nil {
		s.Close()
		return nil, err
	}
	log.Info("websocket connected")
	return s, nil
}

// Kind returns the stream name.
func (s *Stream) Kind() models.Stream { return s.kind }

// Frames is the sink actions write their commands to.
func (s *Stream) Frames() codec.FrameSink { return s.frames }

// FrameQueue exposes the outbound queue for size sampling.
func (s *Stream) FrameQueue() *channel.Queue[codec.Frame] { return s.frames }

// CloseFrames stops accepting outbound frames. Frames already queued are
// still written, followed by a close frame, before the write loop exits.
func (s *Stream) CloseFrames() { s.frames.Close() }

// Close tears the connection down immediately.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.frames.Close()
		_ = s.conn.Close()
		s.log.Debug("websocket closed")
	})
}

// Run pumps the connection until the write loop or read loop ends, then
// closes the connection and waits for the other loop. A nil result means the
// stream was shut down deliberately.
func (s *Stream) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, 2)
	go func() { results <- s.writeLoop(ctx) }()
	go func() { results <- s.readLoop() }()

	var err error
	pending := 2
	select {
	case err = <-results:
		pending--
	case <-ctx.Done():
	}
	cancel()
	s.Close()

	for ; pending > 0; pending-- {
		if e := <-results; err == nil {
			err = e
		}
	}

	if err != nil {
		metrics.StreamError(string(s.kind), apierr.KindOf(err).String())
		s.log.WithError(err).Error("stream terminated")
	}
	return err
}

func (s *Stream) writeLoop(ctx context.Context) error {
	for {
		frame, err := s.frames.Pop(ctx)
		if errors.Is(err, channel.ErrClosed) {
			if !s.closing.Load() {
				_ = s.write(codec.Frame{Kind: codec.FrameClose})
			}
			return nil
		}
		if err != nil {
			return nil
		}
		if err := s.write(frame); err != nil {
			if s.closing.Load() {
				return nil
			}
			return apierr.Send(fmt.Errorf("write %s frame: %w", frame.Kind, err))
		}
		metrics.FrameSent(string(s.kind))
	}
}

func (s *Stream) write(frame codec.Frame) error {
	deadline := time.Now().Add(s.timeout)
	switch frame.Kind {
	case codec.FramePong:
		return s.conn.WriteControl(websocket.PongMessage, frame.Payload, deadline)
	case codec.FrameClose:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		return s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	default:
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		return s.conn.WriteMessage(websocket.TextMessage, frame.Payload)
	}
}

func (s *Stream) readLoop() error {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return apierr.Unclassified(fmt.Errorf("read %s stream: %w", s.kind, err))
		}
		metrics.FrameReceived(string(s.kind))
		logger.IncrementFrameRead(string(s.kind), len(data))

		if err := s.handle(msgType, data); err != nil {
			return err
		}
	}
}

func (s *Stream) handle(msgType int, data []byte) error {
	var (
		env *codec.Envelope
		err error
	)
	switch msgType {
	case websocket.TextMessage:
		env, err = codec.DecodeText(data)
	case websocket.BinaryMessage:
		env, err = codec.DecodeBinary(data)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	ev, ok, err := s.classifier.Classify(env, data, s.frames)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.events.Publish(ev); err != nil {
		return err
	}
	metrics.EventPublished(string(s.kind), string(ev.Kind()))
	logger.IncrementEventPublished(string(ev.Kind()))
	return nil
}

func (s *Stream) onPing(appData string) error {
	err := s.frames.Push(codec.Frame{Kind: codec.FramePong, Payload: []byte(appData)})
	if err != nil && s.closing.Load() {
		return nil
	}
	return err
}
