package stream

import (
	"errors"

	"cdcflow/actions"
	"cdcflow/apierr"
	"cdcflow/codec"
	"cdcflow/logger"
	"cdcflow/models"
)

const methodPing = "ping"

var errHeartbeatWithoutID = errors.New("heartbeat without id")

// methodHandler turns one envelope into a payload. ok is false when the
// envelope produces no event.
type methodHandler func(env *codec.Envelope, out codec.FrameSink) (p models.Payload, ok bool, err error)

type channelDecoder func(result []byte) (models.Payload, error)

// Classifier is a stream's dispatch table, built once per stream kind.
type Classifier struct {
	stream   models.Stream
	methods  map[string]methodHandler
	channels map[string]channelDecoder
	log      *logger.Entry
}

// NewClassifier returns the dispatch table for the given stream.
func NewClassifier(stream models.Stream) *Classifier {
	c := &Classifier{
		stream: stream,
		log:    logger.GetLogger().WithComponent(string(stream) + "_stream"),
	}
	c.methods = map[string]methodHandler{
		codec.MethodHeartbeat:     c.heartbeat,
		actions.MethodSubscribe:   c.subscription,
		actions.MethodUnsubscribe: silent,
		methodPing:                silent,
	}

	switch stream {
	case models.StreamMarket:
		c.channels = map[string]channelDecoder{
			"book":        decodeWith(models.DecodeBook),
			"ticker":      decodeWith(models.DecodeTicker),
			"trade":       decodeWith(models.DecodeTrade),
			"candlestick": decodeWith(models.DecodeCandlestick),
			"otc_book":    decodeWith(models.DecodeOtcBook),
		}
	case models.StreamUser:
		c.channels = map[string]channelDecoder{
			"user.order":   decodeWith(models.DecodeUserOrder),
			"user.trade":   decodeWith(models.DecodeUserTrade),
			"user.balance": decodeWith(models.DecodeUserBalance),
		}
		for method, h := range c.userMethods() {
			c.methods[method] = h
		}
	}
	return c
}

func (c *Classifier) userMethods() map[string]methodHandler {
	return map[string]methodHandler{
		actions.MethodAuth:                  authResult,
		actions.MethodGetInstruments:        c.ack(decodeWith(models.DecodeInstruments)),
		actions.MethodCreateWithdrawal:      c.ack(decodeAck[models.CreateWithdrawalAck]),
		actions.MethodGetWithdrawalHistory:  c.ack(decodeAck[models.WithdrawalHistory]),
		actions.MethodGetAccountSummary:     c.ack(decodeAck[models.AccountSummary]),
		actions.MethodCreateOrder:           c.ack(decodeAck[models.CreateOrderAck]),
		actions.MethodCancelOrder:           cancelOrder,
		actions.MethodCreateOrderList:       c.ack(decodeAck[models.CreateOrderListAck]),
		actions.MethodCancelOrderList:       c.ack(decodeAck[models.CancelOrderListAck]),
		actions.MethodCancelAllOrders:       cancelAllOrders,
		actions.MethodGetOrderHistory:       c.ack(decodeAck[models.OrderHistory]),
		actions.MethodGetOpenOrders:         c.ack(decodeAck[models.OpenOrders]),
		actions.MethodGetOrderDetail:        c.ack(decodeAck[models.OrderDetail]),
		actions.MethodGetTrades:             c.ack(decodeAck[models.Trades]),
		actions.MethodGetDepositAddress:     c.ack(decodeAck[models.DepositAddress]),
		actions.MethodSetCancelOnDisconnect: c.ack(decodeAck[models.CancelOnDisconnect]),
		actions.MethodGetCancelOnDisconnect: c.ack(decodeAck[models.CancelOnDisconnect]),
	}
}

// Classify maps a decoded envelope to at most one event. raw is the original
// frame, kept on unsupported-method and unsupported-subscription errors. out
// receives the heartbeat response.
func (c *Classifier) Classify(env *codec.Envelope, raw []byte, out codec.FrameSink) (models.Event, bool, error) {
	h, found := c.methods[env.Method]
	if !found {
		return models.Event{}, false, apierr.UnsupportedMethod(env.Method, raw)
	}
	p, ok, err := h(env, out)
	if err != nil {
		var e *apierr.Error
		if errors.As(err, &e) && e.Kind == apierr.KindUnsupportedSubscription && e.Raw == nil {
			e.Raw = raw
		}
		return models.Event{}, false, err
	}
	if !ok {
		return models.Event{}, false, nil
	}
	return models.NewEvent(c.stream, env, p), true, nil
}

// Classify runs env through a one-off classifier for stream.
func Classify(stream models.Stream, env *codec.Envelope, raw []byte, out codec.FrameSink) (models.Event, bool, error) {
	return NewClassifier(stream).Classify(env, raw, out)
}

func (c *Classifier) heartbeat(env *codec.Envelope, out codec.FrameSink) (models.Payload, bool, error) {
	if env.ID < 0 {
		return nil, false, apierr.Decode(errHeartbeatWithoutID)
	}
	if err := codec.RespondHeartbeat(out, uint64(env.ID)); err != nil {
		return nil, false, err
	}
	return models.Heartbeat{Stream: c.stream}, true, nil
}

func (c *Classifier) subscription(env *codec.Envelope, _ codec.FrameSink) (models.Payload, bool, error) {
	if !env.HasResult() {
		return c.noResult(env)
	}
	sub, err := codec.ParseSubscription(env.Result)
	if err != nil {
		return nil, false, err
	}
	decode, found := c.channels[sub.Channel]
	if !found {
		return nil, false, apierr.UnsupportedSubscription(env.Method, sub.Channel, nil)
	}
	p, err := decode(env.Result)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// ack publishes the decoded result of a command. An envelope without a result
// is a rejection when its code is non-zero and is otherwise skipped.
func (c *Classifier) ack(decode channelDecoder) methodHandler {
	return func(env *codec.Envelope, _ codec.FrameSink) (models.Payload, bool, error) {
		if !env.HasResult() {
			return c.noResult(env)
		}
		p, err := decode(env.Result)
		if err != nil {
			return nil, false, err
		}
		return p, true, nil
	}
}

func (c *Classifier) noResult(env *codec.Envelope) (models.Payload, bool, error) {
	if !env.Succeeded() {
		return models.Rejection{Method: env.Method}, true, nil
	}
	c.log.WithRequest(env.ID, env.Method).Debug("response without result")
	return nil, false, nil
}

func authResult(env *codec.Envelope, _ codec.FrameSink) (models.Payload, bool, error) {
	return models.AuthResult{Code: env.StatusCode()}, true, nil
}

func cancelOrder(env *codec.Envelope, _ codec.FrameSink) (models.Payload, bool, error) {
	var id uint64
	if env.ID > 0 {
		id = uint64(env.ID)
	}
	return models.CancelOrderAck{RequestID: id}, true, nil
}

func cancelAllOrders(*codec.Envelope, codec.FrameSink) (models.Payload, bool, error) {
	return models.CancelAllOrdersAck{}, true, nil
}

func silent(*codec.Envelope, codec.FrameSink) (models.Payload, bool, error) {
	return nil, false, nil
}

func decodeWith[T models.Payload](decode func([]byte) (T, error)) channelDecoder {
	return func(result []byte) (models.Payload, error) {
		p, err := decode(result)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func decodeAck[T models.Payload](result []byte) (models.Payload, error) {
	return models.DecodeAck[T]("result", result)
}
