package session

import (
	"context"

	"cdcflow/apierr"
	"cdcflow/models"
	"cdcflow/stream"
)

// Builder assembles a session one capability at a time. Each step returns a
// builder whose type records what has been established.
type Builder[A AuthState, U UserState, M MarketState] struct {
	core *core
}

// NewBuilder starts an unauthenticated builder with no streams.
func NewBuilder(opts ...Option) *Builder[Unauthenticated, NoUserStream, NoMarketStream] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder[Unauthenticated, NoUserStream, NoMarketStream]{core: newCore(o)}
}

// WithAuth stores the credentials used by Authenticate. It cannot fail.
func (b *Builder[A, U, M]) WithAuth(apiKey, secretKey string) *Builder[Authenticated, U, M] {
	b.core.creds = &credentials{apiKey: apiKey, secretKey: secretKey}
	return &Builder[Authenticated, U, M]{core: b.core}
}

// WithMarketStream connects the market stream and starts its tasks. On
// failure every task this builder already started is shut down.
func (b *Builder[A, U, M]) WithMarketStream(ctx context.Context, url string) (*Builder[A, U, MarketStream], error) {
	if b.core.market != nil {
		return nil, apierr.InvalidRequest("market stream already established")
	}
	s, err := b.dial(ctx, models.StreamMarket, url, "websocket_market_api")
	if err != nil {
		return nil, err
	}
	b.core.market = b.core.attach(s)
	return &Builder[A, U, MarketStream]{core: b.core}, nil
}

// WithUserStream connects the user stream and starts its tasks. Credentials
// are not required to open it; private actions still need WithAuth.
func (b *Builder[A, U, M]) WithUserStream(ctx context.Context, url string) (*Builder[A, UserStream, M], error) {
	if b.core.user != nil {
		return nil, apierr.InvalidRequest("user stream already established")
	}
	s, err := b.dial(ctx, models.StreamUser, url, "websocket_user_api")
	if err != nil {
		return nil, err
	}
	b.core.user = b.core.attach(s)
	return &Builder[A, UserStream, M]{core: b.core}, nil
}

func (b *Builder[A, U, M]) dial(ctx context.Context, kind models.Stream, url, field string) (*stream.Stream, error) {
	if url == "" {
		b.core.shutdown()
		return nil, apierr.MissingConfiguration(field)
	}
	s, err := stream.Dial(ctx, b.core.streamConfig(kind, url), b.core.fanIn.Publisher())
	if err != nil {
		b.core.shutdown()
		return nil, err
	}
	return s, nil
}

// Build returns the controller for the established capabilities.
func (b *Builder[A, U, M]) Build() *Controller[A, U, M] {
	return &Controller[A, U, M]{core: b.core}
}
