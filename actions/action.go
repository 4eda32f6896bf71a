// Package actions defines the closed set of outbound commands a session can
// send. Marker interfaces decide which stream, and which capability, each
// command needs.
package actions

import (
	"cdcflow/codec"
)

// Action encodes and transmits exactly one command with the given
// correlation id.
type Action interface {
	Method() string
	Process(out codec.FrameSink, id uint64) error
}

// MarketAction may be submitted to the market stream.
type MarketAction interface {
	Action
	marketStream()
}

// UserAction may be submitted to the user stream without credentials.
type UserAction interface {
	Action
	userStream()
}

// PrivateAction needs an authenticated session with a user stream.
type PrivateAction interface {
	Action
	privateMethod()
}

// Record is the unit queued by a router: an action and the id it was
// assigned at submission.
type Record struct {
	ID     uint64
	Action Action
}

const (
	MethodSubscribe             = "subscribe"
	MethodUnsubscribe           = "unsubscribe"
	MethodAuth                  = "public/auth"
	MethodGetInstruments        = "public/get-instruments"
	MethodGetAccountSummary     = "private/get-account-summary"
	MethodCreateOrder           = "private/create-order"
	MethodCancelOrder           = "private/cancel-order"
	MethodCreateOrderList       = "private/create-order-list"
	MethodCancelOrderList       = "private/cancel-order-list"
	MethodCancelAllOrders       = "private/cancel-all-orders"
	MethodGetOrderHistory       = "private/get-order-history"
	MethodGetOpenOrders         = "private/get-open-orders"
	MethodGetOrderDetail        = "private/get-order-detail"
	MethodGetTrades             = "private/get-trades"
	MethodCreateWithdrawal      = "private/create-withdrawal"
	MethodGetWithdrawalHistory  = "private/get-withdrawal-history"
	MethodGetDepositAddress     = "private/get-deposit-address"
	MethodSetCancelOnDisconnect = "private/set-cancel-on-disconnect"
	MethodGetCancelOnDisconnect = "private/get-cancel-on-disconnect"
)

// send encodes method with params and a nonce and pushes it to out.
func send(out codec.FrameSink, id uint64, method string, params any) error {
	req, err := codec.NewRequest().
		WithID(id).
		WithMethod(method).
		WithParams(params).
		WithNonce().
		Build()
	if err != nil {
		return err
	}
	return codec.Send(out, req)
}
