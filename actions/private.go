package actions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cdcflow/apierr"
	"cdcflow/codec"
)

// GetInstruments lists tradable instruments. It needs no credentials.
type GetInstruments struct{}

func (GetInstruments) Method() string { return MethodGetInstruments }

func (GetInstruments) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetInstruments, nil)
}

func (GetInstruments) userStream() {}

// Auth authenticates the user stream. It is the only signed command.
type Auth struct {
	APIKey    string
	SecretKey string
}

func (Auth) Method() string { return MethodAuth }

func (a Auth) Process(out codec.FrameSink, id uint64) error {
	req, err := codec.NewRequest().
		WithID(id).
		WithMethod(MethodAuth).
		WithAPIKey(a.APIKey).
		WithNonce().
		WithDigitalSignature(a.SecretKey).
		Build()
	if err != nil {
		return err
	}
	return codec.Send(out, req)
}

func (a Auth) String() string { return "Auth{APIKey: " + a.APIKey + ", SecretKey: <redacted>}" }

// Paginated is the shared paging window of history queries.
type Paginated struct {
	InstrumentName string  `json:"instrument_name,omitempty"`
	StartTS        *uint64 `json:"start_ts,omitempty"`
	EndTS          *uint64 `json:"end_ts,omitempty"`
	PageSize       *uint64 `json:"page_size,omitempty"`
	Page           *uint64 `json:"page,omitempty"`
}

type GetAccountSummary struct {
	Currency string `json:"currency,omitempty"`
}

func (GetAccountSummary) Method() string { return MethodGetAccountSummary }

func (a GetAccountSummary) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetAccountSummary, a)
}

// CreateOrder places a BUY or SELL order. A missing ClientOID is filled with
// a generated one.
type CreateOrder struct {
	InstrumentName string           `json:"instrument_name"`
	Side           string           `json:"side"`
	Type           string           `json:"type"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Notional       *decimal.Decimal `json:"notional,omitempty"`
	ClientOID      string           `json:"client_oid,omitempty"`
	TimeInForce    string           `json:"time_in_force,omitempty"`
	ExecInst       string           `json:"exec_inst,omitempty"`
	TriggerPrice   *decimal.Decimal `json:"trigger_price,omitempty"`
}

func (CreateOrder) Method() string { return MethodCreateOrder }

func (o CreateOrder) Process(out codec.FrameSink, id uint64) error {
	if err := o.validate(); err != nil {
		return err
	}
	if o.ClientOID == "" {
		o.ClientOID = NewClientOrderID()
	}
	return send(out, id, MethodCreateOrder, o)
}

func (o CreateOrder) validate() error {
	switch {
	case o.InstrumentName == "":
		return apierr.InvalidRequest("instrument_name")
	case o.Side == "":
		return apierr.InvalidRequest("side")
	case o.Type == "":
		return apierr.InvalidRequest("type")
	}
	return nil
}

// NewClientOrderID returns a 36 character client order id.
func NewClientOrderID() string {
	return uuid.NewString()
}

type CancelOrder struct {
	InstrumentName string `json:"instrument_name"`
	OrderID        string `json:"order_id"`
}

func (CancelOrder) Method() string { return MethodCancelOrder }

func (c CancelOrder) Process(out codec.FrameSink, id uint64) error {
	if c.OrderID == "" {
		return apierr.InvalidRequest("order_id")
	}
	return send(out, id, MethodCancelOrder, c)
}

// CreateOrderList places 1-10 orders; ContingencyType must be LIST.
type CreateOrderList struct {
	ContingencyType string        `json:"contingency_type"`
	OrderList       []CreateOrder `json:"order_list"`
}

func (CreateOrderList) Method() string { return MethodCreateOrderList }

func (l CreateOrderList) Process(out codec.FrameSink, id uint64) error {
	if len(l.OrderList) == 0 {
		return apierr.InvalidRequest("order_list")
	}
	if l.ContingencyType == "" {
		l.ContingencyType = "LIST"
	}
	orders := make([]CreateOrder, len(l.OrderList))
	for i, o := range l.OrderList {
		if err := o.validate(); err != nil {
			return err
		}
		if o.ClientOID == "" {
			o.ClientOID = NewClientOrderID()
		}
		orders[i] = o
	}
	l.OrderList = orders
	return send(out, id, MethodCreateOrderList, l)
}

// CancelOrderList cancels either a list of plain orders or one contingency
// order.
type CancelOrderList struct {
	OrderList      []CancelOrder `json:"order_list,omitempty"`
	InstrumentName string        `json:"instrument_name,omitempty"`
	ContingencyID  string        `json:"contingency_id,omitempty"`
}

func (CancelOrderList) Method() string { return MethodCancelOrderList }

func (l CancelOrderList) Process(out codec.FrameSink, id uint64) error {
	if len(l.OrderList) == 0 && l.ContingencyID == "" {
		return apierr.InvalidRequest("order_list")
	}
	return send(out, id, MethodCancelOrderList, l)
}

type CancelAllOrders struct {
	InstrumentName string `json:"instrument_name"`
}

func (CancelAllOrders) Method() string { return MethodCancelAllOrders }

func (c CancelAllOrders) Process(out codec.FrameSink, id uint64) error {
	if c.InstrumentName == "" {
		return apierr.InvalidRequest("instrument_name")
	}
	return send(out, id, MethodCancelAllOrders, c)
}

type GetOrderHistory struct {
	Paginated
}

func (GetOrderHistory) Method() string { return MethodGetOrderHistory }

func (h GetOrderHistory) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetOrderHistory, h.Paginated)
}

type GetOpenOrders struct {
	InstrumentName string  `json:"instrument_name,omitempty"`
	PageSize       *uint64 `json:"page_size,omitempty"`
	Page           *uint64 `json:"page,omitempty"`
}

func (GetOpenOrders) Method() string { return MethodGetOpenOrders }

func (o GetOpenOrders) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetOpenOrders, o)
}

type GetOrderDetail struct {
	OrderID string `json:"order_id"`
}

func (GetOrderDetail) Method() string { return MethodGetOrderDetail }

func (d GetOrderDetail) Process(out codec.FrameSink, id uint64) error {
	if d.OrderID == "" {
		return apierr.InvalidRequest("order_id")
	}
	return send(out, id, MethodGetOrderDetail, d)
}

type GetTrades struct {
	Paginated
}

func (GetTrades) Method() string { return MethodGetTrades }

func (g GetTrades) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetTrades, g.Paginated)
}

// Cancel-on-disconnect scopes.
const (
	ScopeAccount    = "ACCOUNT"
	ScopeConnection = "CONNECTION"
)

type SetCancelOnDisconnect struct {
	Scope string `json:"scope"`
}

func (SetCancelOnDisconnect) Method() string { return MethodSetCancelOnDisconnect }

func (s SetCancelOnDisconnect) Process(out codec.FrameSink, id uint64) error {
	if s.Scope != ScopeAccount && s.Scope != ScopeConnection {
		return apierr.InvalidRequest("scope")
	}
	return send(out, id, MethodSetCancelOnDisconnect, s)
}

type GetCancelOnDisconnect struct{}

func (GetCancelOnDisconnect) Method() string { return MethodGetCancelOnDisconnect }

func (GetCancelOnDisconnect) Process(out codec.FrameSink, id uint64) error {
	return send(out, id, MethodGetCancelOnDisconnect, nil)
}

func (Auth) privateMethod()                  {}
func (GetAccountSummary) privateMethod()     {}
func (CreateOrder) privateMethod()           {}
func (CancelOrder) privateMethod()           {}
func (CreateOrderList) privateMethod()       {}
func (CancelOrderList) privateMethod()       {}
func (CancelAllOrders) privateMethod()       {}
func (GetOrderHistory) privateMethod()       {}
func (GetOpenOrders) privateMethod()         {}
func (GetOrderDetail) privateMethod()        {}
func (GetTrades) privateMethod()             {}
func (SetCancelOnDisconnect) privateMethod() {}
func (GetCancelOnDisconnect) privateMethod() {}
