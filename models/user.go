package models

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// OrderItem is an order as reported by user.order pushes and order queries.
type OrderItem struct {
	Status             string              `json:"status"`
	Reason             string              `json:"reason,omitempty"`
	Side               string              `json:"side"`
	Price              decimal.Decimal     `json:"price"`
	Quantity           decimal.Decimal     `json:"quantity"`
	OrderID            ID                  `json:"order_id"`
	ClientOID          string              `json:"client_oid"`
	CreateTime         uint64              `json:"create_time"`
	UpdateTime         uint64              `json:"update_time"`
	Type               string              `json:"type"`
	InstrumentName     string              `json:"instrument_name"`
	CumulativeQuantity decimal.Decimal     `json:"cumulative_quantity"`
	CumulativeValue    decimal.Decimal     `json:"cumulative_value"`
	AvgPrice           decimal.Decimal     `json:"avg_price"`
	FeeCurrency        string              `json:"fee_currency"`
	TimeInForce        string              `json:"time_in_force"`
	ExecInst           string              `json:"exec_inst,omitempty"`
	TriggerPrice       decimal.NullDecimal `json:"trigger_price"`
}

// UserOrderUpdate is the user.order channel payload.
type UserOrderUpdate struct {
	Channel        string      `json:"channel"`
	Subscription   string      `json:"subscription"`
	InstrumentName string      `json:"instrument_name"`
	Data           []OrderItem `json:"data"`
}

func DecodeUserOrder(result []byte) (UserOrderUpdate, error) {
	var out UserOrderUpdate
	if err := decodeResult("user.order", result, &out); err != nil {
		return UserOrderUpdate{}, err
	}
	return out, nil
}

type UserTrade struct {
	Side           string
	Fee            decimal.Decimal
	TradeID        uint64
	CreateTime     uint64
	TradedPrice    decimal.Decimal
	TradedQuantity decimal.Decimal
	FeeCurrency    string
	OrderID        uint64
}

type rawUserTrade struct {
	Side           string          `json:"side"`
	Fee            decimal.Decimal `json:"fee"`
	TradeID        string          `json:"trade_id"`
	CreateTime     uint64          `json:"create_time"`
	TradedPrice    decimal.Decimal `json:"traded_price"`
	TradedQuantity decimal.Decimal `json:"traded_quantity"`
	FeeCurrency    string          `json:"fee_currency"`
	OrderID        string          `json:"order_id"`
}

// UserTradeUpdate is the user.trade channel payload.
type UserTradeUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Data           []UserTrade
}

type rawUserTradeUpdate struct {
	Channel        string         `json:"channel"`
	Subscription   string         `json:"subscription"`
	InstrumentName string         `json:"instrument_name"`
	Data           []rawUserTrade `json:"data"`
}

func DecodeUserTrade(result []byte) (UserTradeUpdate, error) {
	var raw rawUserTradeUpdate
	if err := decodeResult("user.trade", result, &raw); err != nil {
		return UserTradeUpdate{}, err
	}
	out := UserTradeUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
		Data:           make([]UserTrade, 0, len(raw.Data)),
	}
	for _, r := range raw.Data {
		tradeID, err := parseUint("trade_id", r.TradeID)
		if err != nil {
			return UserTradeUpdate{}, err
		}
		orderID, err := parseUint("order_id", r.OrderID)
		if err != nil {
			return UserTradeUpdate{}, err
		}
		out.Data = append(out.Data, UserTrade{
			Side:           r.Side,
			Fee:            r.Fee,
			TradeID:        tradeID,
			CreateTime:     r.CreateTime,
			TradedPrice:    r.TradedPrice,
			TradedQuantity: r.TradedQuantity,
			FeeCurrency:    r.FeeCurrency,
			OrderID:        orderID,
		})
	}
	return out, nil
}

// Balance is one currency position, used by user.balance pushes and the
// account summary.
type Balance struct {
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Order     decimal.Decimal `json:"order"`
	Stake     decimal.Decimal `json:"stake"`
}

// UserBalanceUpdate is the user.balance channel payload.
type UserBalanceUpdate struct {
	Balances []Balance
}

// DecodeUserBalance accepts either the bare balance list or a subscription
// result wrapping it under "data".
func DecodeUserBalance(result []byte) (UserBalanceUpdate, error) {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Balance
		if err := decodeResult("user.balance", trimmed, &list); err != nil {
			return UserBalanceUpdate{}, err
		}
		return UserBalanceUpdate{Balances: list}, nil
	}
	var wrapped struct {
		Data []Balance `json:"data"`
	}
	if err := decodeResult("user.balance", trimmed, &wrapped); err != nil {
		return UserBalanceUpdate{}, err
	}
	return UserBalanceUpdate{Balances: wrapped.Data}, nil
}

func (UserOrderUpdate) Kind() Kind   { return KindUserOrder }
func (UserTradeUpdate) Kind() Kind   { return KindUserTrade }
func (UserBalanceUpdate) Kind() Kind { return KindUserBalance }

func (UserOrderUpdate) payload()   {}
func (UserTradeUpdate) payload()   {}
func (UserBalanceUpdate) payload() {}
