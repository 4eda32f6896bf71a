package models

import "github.com/shopspring/decimal"

// Instrument describes one tradable pair returned by public/get-instruments.
type Instrument struct {
	InstrumentName       string
	QuoteCurrency        string
	BaseCurrency         string
	PriceDecimals        uint8
	QuantityDecimals     uint8
	MarginTradingEnabled bool
	MaxQuantity          decimal.Decimal
	MinQuantity          decimal.Decimal
	MaxPrice             decimal.Decimal
	MinPrice             decimal.Decimal
	LastUpdateDate       uint64
	QuantityTickSize     decimal.Decimal
	PriceTickSize        decimal.Decimal
}

type rawInstrument struct {
	InstrumentName       string `json:"instrument_name"`
	QuoteCurrency        string `json:"quote_currency"`
	BaseCurrency         string `json:"base_currency"`
	PriceDecimals        uint8  `json:"price_decimals"`
	QuantityDecimals     uint8  `json:"quantity_decimals"`
	MarginTradingEnabled bool   `json:"margin_trading_enabled"`
	MaxQuantity          string `json:"max_quantity"`
	MinQuantity          string `json:"min_quantity"`
	MaxPrice             string `json:"max_price"`
	MinPrice             string `json:"min_price"`
	LastUpdateDate       uint64 `json:"last_update_date"`
	QuantityTickSize     string `json:"quantity_tick_size"`
	PriceTickSize        string `json:"price_tick_size"`
}

type Instruments struct {
	Instruments []Instrument
}

func DecodeInstruments(result []byte) (Instruments, error) {
	var raw struct {
		Instruments []rawInstrument `json:"instruments"`
	}
	if err := decodeResult("instruments", result, &raw); err != nil {
		return Instruments{}, err
	}
	out := Instruments{Instruments: make([]Instrument, 0, len(raw.Instruments))}
	for _, r := range raw.Instruments {
		inst := Instrument{
			InstrumentName:       r.InstrumentName,
			QuoteCurrency:        r.QuoteCurrency,
			BaseCurrency:         r.BaseCurrency,
			PriceDecimals:        r.PriceDecimals,
			QuantityDecimals:     r.QuantityDecimals,
			MarginTradingEnabled: r.MarginTradingEnabled,
			LastUpdateDate:       r.LastUpdateDate,
		}
		fields := []struct {
			name string
			src  string
			dst  *decimal.Decimal
		}{
			{"max_quantity", r.MaxQuantity, &inst.MaxQuantity},
			{"min_quantity", r.MinQuantity, &inst.MinQuantity},
			{"max_price", r.MaxPrice, &inst.MaxPrice},
			{"min_price", r.MinPrice, &inst.MinPrice},
			{"quantity_tick_size", r.QuantityTickSize, &inst.QuantityTickSize},
			{"price_tick_size", r.PriceTickSize, &inst.PriceTickSize},
		}
		for _, f := range fields {
			d, err := parseDecimal(f.name, f.src)
			if err != nil {
				return Instruments{}, err
			}
			*f.dst = d
		}
		out.Instruments = append(out.Instruments, inst)
	}
	return out, nil
}

type AccountSummary struct {
	Accounts []Balance `json:"accounts"`
}

type CreateOrderAck struct {
	OrderID   ID     `json:"order_id"`
	ClientOID string `json:"client_oid,omitempty"`
}

// CancelOrderAck confirms private/cancel-order; the venue returns no data so
// only the request id is carried.
type CancelOrderAck struct {
	RequestID uint64
}

// OrderListResult is one entry of a create or cancel order list response.
// OrderID and ClientOID are only set for creations.
type OrderListResult struct {
	Index     uint64 `json:"index"`
	Code      int64  `json:"code"`
	Message   string `json:"message,omitempty"`
	OrderID   ID     `json:"order_id,omitempty"`
	ClientOID string `json:"client_oid,omitempty"`
}

type CreateOrderListAck struct {
	ResultList []OrderListResult `json:"result_list"`
}

type CancelOrderListAck struct {
	ResultList []OrderListResult `json:"result_list"`
}

type CancelAllOrdersAck struct{}

type OrderHistory struct {
	OrderList []OrderItem `json:"order_list"`
}

type OpenOrders struct {
	Count     uint64      `json:"count"`
	OrderList []OrderItem `json:"order_list"`
}

// TradeItem is an executed trade returned by get-trades and get-order-detail.
type TradeItem struct {
	Side               string          `json:"side"`
	InstrumentName     string          `json:"instrument_name"`
	Fee                decimal.Decimal `json:"fee"`
	TradeID            ID              `json:"trade_id"`
	CreateTime         uint64          `json:"create_time"`
	TradedPrice        decimal.Decimal `json:"traded_price"`
	TradedQuantity     decimal.Decimal `json:"traded_quantity"`
	FeeCurrency        string          `json:"fee_currency"`
	OrderID            ID              `json:"order_id"`
	ClientOrderID      string          `json:"client_order_id,omitempty"`
	LiquidityIndicator string          `json:"liquidity_indicator,omitempty"`
}

type OrderDetail struct {
	TradeList []TradeItem `json:"trade_list"`
	OrderInfo OrderItem   `json:"order_info"`
}

type Trades struct {
	TradeList []TradeItem `json:"trade_list"`
}

type Withdrawal struct {
	ID         ID              `json:"id"`
	ClientWID  string          `json:"client_wid,omitempty"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	Address    string          `json:"address,omitempty"`
	CreateTime uint64          `json:"create_time"`
	Status     string          `json:"status,omitempty"`
	TxID       string          `json:"txid,omitempty"`
	NetworkID  string          `json:"network_id,omitempty"`
}

type CreateWithdrawalAck struct {
	Withdrawal
}

type WithdrawalHistory struct {
	WithdrawalList []Withdrawal `json:"withdrawal_list"`
}

type DepositAddressItem struct {
	ID         ID     `json:"id"`
	Currency   string `json:"currency"`
	Network    string `json:"network"`
	Address    string `json:"address,omitempty"`
	CreateTime uint64 `json:"create_time"`
	Status     string `json:"status"`
}

type DepositAddress struct {
	DepositAddressList []DepositAddressItem `json:"deposit_address_list"`
}

// CancelOnDisconnect reports the cancel-on-disconnect scope; Event.Method
// tells a set acknowledgement from a get.
type CancelOnDisconnect struct {
	Scope string `json:"scope"`
}

// DecodeAck decodes the result of a command whose payload needs no string
// coercion beyond what its field types do themselves.
func DecodeAck[T Payload](method string, result []byte) (T, error) {
	var out T
	if err := decodeResult(method, result, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (Instruments) Kind() Kind         { return KindInstruments }
func (AccountSummary) Kind() Kind      { return KindAccountSummary }
func (CreateOrderAck) Kind() Kind      { return KindCreateOrder }
func (CancelOrderAck) Kind() Kind      { return KindCancelOrder }
func (CreateOrderListAck) Kind() Kind  { return KindCreateOrderList }
func (CancelOrderListAck) Kind() Kind  { return KindCancelOrderList }
func (CancelAllOrdersAck) Kind() Kind  { return KindCancelAllOrders }
func (OrderHistory) Kind() Kind        { return KindOrderHistory }
func (OpenOrders) Kind() Kind          { return KindOpenOrders }
func (OrderDetail) Kind() Kind         { return KindOrderDetail }
func (Trades) Kind() Kind              { return KindTrades }
func (CreateWithdrawalAck) Kind() Kind { return KindCreateWithdrawal }
func (WithdrawalHistory) Kind() Kind   { return KindWithdrawalHistory }
func (DepositAddress) Kind() Kind      { return KindDepositAddress }
func (CancelOnDisconnect) Kind() Kind  { return KindCancelOnDisconnect }

func (Instruments) payload()         {}
func (AccountSummary) payload()      {}
func (CreateOrderAck) payload()      {}
func (CancelOrderAck) payload()      {}
func (CreateOrderListAck) payload()  {}
func (CancelOrderListAck) payload()  {}
func (CancelAllOrdersAck) payload()  {}
func (OrderHistory) payload()        {}
func (OpenOrders) payload()          {}
func (OrderDetail) payload()         {}
func (Trades) payload()              {}
func (CreateWithdrawalAck) payload() {}
func (WithdrawalHistory) payload()   {}
func (DepositAddress) payload()      {}
func (CancelOnDisconnect) payload()  {}
