package main

import (
	"context"
	"errors"
	"time"

	"cdcflow/actions"
	"cdcflow/apierr"
	"cdcflow/config"
	"cdcflow/logger"
	"cdcflow/models"
	"cdcflow/recorder"
	"cdcflow/session"
)

// controller is what main needs from any built session, whatever its
// capabilities.
type controller interface {
	Listen(ctx context.Context, handler session.Handler) *session.ListenHandle
	StartQueueMetrics(ctx context.Context, interval time.Duration)
	Close() error
}

// openSession builds the session described by sc, authenticates when asked
// and submits the configured subscriptions. Credentials go out before user
// channel subscriptions.
func openSession(ctx context.Context, sc config.SessionConfig) (controller, error) {
	b := session.NewBuilder(
		session.WithWriteTimeout(sc.WriteTimeout),
		session.WithCloseTimeout(sc.CloseTimeout),
	)
	market := sc.Subscriptions.MarketChannels()
	user := sc.Subscriptions.UserChannels()

	switch {
	case sc.Authenticate && sc.Market.Enabled:
		mb, err := b.WithAuth(sc.APIKey, sc.SecretKey).WithMarketStream(ctx, sc.Market.URL)
		if err != nil {
			return nil, err
		}
		ub, err := mb.WithUserStream(ctx, sc.User.URL)
		if err != nil {
			return nil, err
		}
		c := ub.Build()
		return started(c, session.Authenticate(c), subscribeMarket(c, market), subscribeUser(c, user))

	case sc.Authenticate:
		ub, err := b.WithAuth(sc.APIKey, sc.SecretKey).WithUserStream(ctx, sc.User.URL)
		if err != nil {
			return nil, err
		}
		c := ub.Build()
		return started(c, session.Authenticate(c), subscribeUser(c, user))

	case sc.Market.Enabled && sc.User.Enabled:
		mb, err := b.WithMarketStream(ctx, sc.Market.URL)
		if err != nil {
			return nil, err
		}
		ub, err := mb.WithUserStream(ctx, sc.User.URL)
		if err != nil {
			return nil, err
		}
		c := ub.Build()
		return started(c, subscribeMarket(c, market), subscribeUser(c, user))

	case sc.Market.Enabled:
		mb, err := b.WithMarketStream(ctx, sc.Market.URL)
		if err != nil {
			return nil, err
		}
		c := mb.Build()
		return started(c, subscribeMarket(c, market))

	default:
		ub, err := b.WithUserStream(ctx, sc.User.URL)
		if err != nil {
			return nil, err
		}
		c := ub.Build()
		return started(c, subscribeUser(c, user))
	}
}

func started(c controller, errs ...error) (controller, error) {
	if err := errors.Join(errs...); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func subscribeMarket[A session.AuthState, U session.UserState](c *session.Controller[A, U, session.MarketStream], channels []string) error {
	if len(channels) == 0 {
		return nil
	}
	return session.SubmitMarketAction(c, actions.Subscribe{Channels: channels})
}

func subscribeUser[A session.AuthState, M session.MarketState](c *session.Controller[A, session.UserStream, M], channels []string) error {
	if len(channels) == 0 {
		return nil
	}
	return session.SubmitUserAction(c, actions.Subscribe{Channels: channels})
}

// eventHandler logs every event, stops on a failed authentication and feeds
// market data to rec when one is configured.
func eventHandler(log *logger.Log, rec *recorder.Recorder) session.Handler {
	l := log.WithComponent("listener")
	return func(ev models.Event) (bool, error) {
		switch d := ev.Data.(type) {
		case models.AuthResult:
			if d.Code != 0 {
				return true, apierr.AuthFailed(d.Code)
			}
			l.Info("authenticated")
		case models.Rejection:
			l.WithFields(logger.Fields{
				"method":  d.Method,
				"code":    ev.Code,
				"message": ev.Message,
			}).Warn("request rejected")
		}

		l.WithStream(string(ev.Stream)).WithRequest(ev.ID, ev.Method).
			WithFields(logger.Fields{"kind": ev.Kind()}).Debug("event received")

		if rec != nil {
			return rec.Handle(ev)
		}
		return false, nil
	}
}
