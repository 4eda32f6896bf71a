package models

import "cdcflow/codec"

// Stream names one of the two session connections.
type Stream string

const (
	StreamMarket Stream = "market"
	StreamUser   Stream = "user"
)

// Kind is a stable name for a payload variant, used in logs and metrics.
type Kind string

const (
	KindHandshake          Kind = "handshake"
	KindHeartbeat          Kind = "heartbeat"
	KindAuth               Kind = "auth"
	KindRejection          Kind = "rejection"
	KindTicker             Kind = "ticker"
	KindBook               Kind = "book"
	KindTrade              Kind = "trade"
	KindCandlestick        Kind = "candlestick"
	KindOtcBook            Kind = "otc_book"
	KindUserOrder          Kind = "user_order"
	KindUserTrade          Kind = "user_trade"
	KindUserBalance        Kind = "user_balance"
	KindInstruments        Kind = "instruments"
	KindCreateWithdrawal   Kind = "create_withdrawal"
	KindWithdrawalHistory  Kind = "withdrawal_history"
	KindAccountSummary     Kind = "account_summary"
	KindCreateOrder        Kind = "create_order"
	KindCancelOrder        Kind = "cancel_order"
	KindCreateOrderList    Kind = "create_order_list"
	KindCancelOrderList    Kind = "cancel_order_list"
	KindCancelAllOrders    Kind = "cancel_all_orders"
	KindOrderHistory       Kind = "order_history"
	KindOpenOrders         Kind = "open_orders"
	KindOrderDetail        Kind = "order_detail"
	KindTrades             Kind = "trades"
	KindDepositAddress     Kind = "deposit_address"
	KindCancelOnDisconnect Kind = "cancel_on_disconnect"
)

// Payload is the closed set of decoded inbound data. Only this package
// declares variants.
type Payload interface {
	Kind() Kind
	payload()
}

// Event is one classified inbound occurrence: the envelope metadata paired
// with exactly one payload variant.
type Event struct {
	Stream        Stream
	ID            int64
	Method        string
	Code          int64
	Message       string
	Original      string
	DetailCode    string
	DetailMessage string
	Data          Payload
}

// NewEvent copies env's metadata into an Event carrying data.
func NewEvent(stream Stream, env *codec.Envelope, data Payload) Event {
	ev := Event{Stream: stream, ID: codec.NoID, Data: data}
	if env == nil {
		return ev
	}
	ev.ID = env.ID
	ev.Method = env.Method
	ev.Code = env.StatusCode()
	ev.Message = deref(env.Message)
	ev.Original = deref(env.Original)
	ev.DetailCode = deref(env.DetailCode)
	ev.DetailMessage = deref(env.DetailMessage)
	return ev
}

// Kind returns the payload kind, or "" when the event carries no data.
func (e Event) Kind() Kind {
	if e.Data == nil {
		return ""
	}
	return e.Data.Kind()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Handshake marks that a stream's connection completed.
type Handshake struct{ Stream Stream }

// Heartbeat marks a venue heartbeat that has been answered.
type Heartbeat struct{ Stream Stream }

// AuthResult carries the status of a public/auth request. A non-zero code is
// a rejection; the application decides whether to stop listening.
type AuthResult struct{ Code int64 }

// Rejection is published for a request the venue refused without a result.
type Rejection struct{ Method string }

func (Handshake) Kind() Kind  { return KindHandshake }
func (Heartbeat) Kind() Kind  { return KindHeartbeat }
func (AuthResult) Kind() Kind { return KindAuth }
func (Rejection) Kind() Kind  { return KindRejection }

func (Handshake) payload()  {}
func (Heartbeat) payload()  {}
func (AuthResult) payload() {}
func (Rejection) payload()  {}
