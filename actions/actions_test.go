package actions

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcflow/apierr"
	"cdcflow/codec"
)

type recordingSink struct {
	frames []codec.Frame
	err    error
}

func (s *recordingSink) Push(f codec.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

type wireRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	APIKey string          `json:"api_key"`
	Sig    string          `json:"sig"`
	Nonce  uint64          `json:"nonce"`
}

func processOne(t *testing.T, a Action, id uint64) wireRequest {
	t.Helper()
	sink := &recordingSink{}
	require.NoError(t, a.Process(sink, id))
	require.Len(t, sink.frames, 1)
	assert.Equal(t, codec.FrameText, sink.frames[0].Kind)

	var req wireRequest
	require.NoError(t, json.Unmarshal(sink.frames[0].Payload, &req))
	return req
}

func TestSubscribeEncodesChannels(t *testing.T) {
	req := processOne(t, Subscribe{Channels: []string{TickerChannel("BTC_USDT"), BookChannel("ETH_USDT", 10)}}, 3)

	assert.Equal(t, uint64(3), req.ID)
	assert.Equal(t, MethodSubscribe, req.Method)
	assert.JSONEq(t, `{"channels":["ticker.BTC_USDT","book.ETH_USDT.10"]}`, string(req.Params))
	assert.NotZero(t, req.Nonce)
	assert.Empty(t, req.Sig)
}

func TestSubscribeRequiresChannels(t *testing.T) {
	sink := &recordingSink{}
	err := Subscribe{}.Process(sink, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrInvalidRequest))
	assert.Empty(t, sink.frames)
}

func TestAuthIsSigned(t *testing.T) {
	req := processOne(t, Auth{APIKey: "key", SecretKey: "secret"}, 11)

	assert.Equal(t, MethodAuth, req.Method)
	assert.Equal(t, "key", req.APIKey)
	want := codec.Sign("secret", codec.SigPayload(MethodAuth, 11, "key", "", req.Nonce))
	assert.Equal(t, want, req.Sig)
	assert.Len(t, req.Params, 0)
}

func TestAuthRequiresCredentials(t *testing.T) {
	err := Auth{SecretKey: "secret"}.Process(&recordingSink{}, 0)
	require.Error(t, err)
	var e *apierr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "api_key", e.Field)

	err = Auth{APIKey: "key"}.Process(&recordingSink{}, 0)
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "secret_key", e.Field)
}

func TestAuthStringRedactsSecret(t *testing.T) {
	s := Auth{APIKey: "key", SecretKey: "hunter2"}.String()
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "key")
}

func TestCreateOrderFillsClientOID(t *testing.T) {
	price := decimal.RequireFromString("50000.5")
	qty := decimal.RequireFromString("0.01")
	req := processOne(t, CreateOrder{
		InstrumentName: "BTC_USDT",
		Side:           "BUY",
		Type:           "LIMIT",
		Price:          &price,
		Quantity:       &qty,
	}, 1)

	var params map[string]any
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, MethodCreateOrder, req.Method)
	assert.Equal(t, "50000.5", params["price"])
	assert.Equal(t, "0.01", params["quantity"])
	assert.NotContains(t, params, "notional")
	oid, ok := params["client_oid"].(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len(oid), 36)
	assert.NotEmpty(t, oid)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		order CreateOrder
		field string
	}{
		{"instrument", CreateOrder{Side: "BUY", Type: "LIMIT"}, "instrument_name"},
		{"side", CreateOrder{InstrumentName: "BTC_USDT", Type: "LIMIT"}, "side"},
		{"type", CreateOrder{InstrumentName: "BTC_USDT", Side: "SELL"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Process(&recordingSink{}, 0)
			var e *apierr.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, apierr.KindInvalidRequest, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestCreateOrderListUsesListMethod(t *testing.T) {
	req := processOne(t, CreateOrderList{OrderList: []CreateOrder{
		{InstrumentName: "BTC_USDT", Side: "BUY", Type: "MARKET"},
		{InstrumentName: "ETH_USDT", Side: "SELL", Type: "MARKET", ClientOID: "mine"},
	}}, 4)

	assert.Equal(t, "private/create-order-list", req.Method)
	var params struct {
		ContingencyType string `json:"contingency_type"`
		OrderList       []struct {
			ClientOID string `json:"client_oid"`
		} `json:"order_list"`
	}
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "LIST", params.ContingencyType)
	require.Len(t, params.OrderList, 2)
	assert.NotEmpty(t, params.OrderList[0].ClientOID)
	assert.Equal(t, "mine", params.OrderList[1].ClientOID)
}

func TestPaginatedQueriesOmitUnsetFields(t *testing.T) {
	page := uint64(2)
	req := processOne(t, GetOrderHistory{Paginated{InstrumentName: "BTC_USDT", Page: &page}}, 9)
	assert.Equal(t, MethodGetOrderHistory, req.Method)
	assert.JSONEq(t, `{"instrument_name":"BTC_USDT","page":2}`, string(req.Params))

	req = processOne(t, GetTrades{}, 10)
	assert.JSONEq(t, `{}`, string(req.Params))
}

func TestNoParamCommandsOmitParams(t *testing.T) {
	for _, a := range []Action{GetInstruments{}, GetCancelOnDisconnect{}} {
		req := processOne(t, a, 0)
		assert.Equal(t, a.Method(), req.Method)
		assert.Len(t, req.Params, 0, a.Method())
	}
}

func TestSetCancelOnDisconnectScope(t *testing.T) {
	req := processOne(t, SetCancelOnDisconnect{Scope: ScopeConnection}, 2)
	assert.JSONEq(t, `{"scope":"CONNECTION"}`, string(req.Params))

	err := SetCancelOnDisconnect{Scope: "SESSION"}.Process(&recordingSink{}, 0)
	assert.True(t, errors.Is(err, apierr.ErrInvalidRequest))
}

func TestCreateWithdrawalValidation(t *testing.T) {
	err := CreateWithdrawal{Currency: "BTC", Address: "addr"}.Process(&recordingSink{}, 0)
	var e *apierr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "amount", e.Field)

	req := processOne(t, CreateWithdrawal{Currency: "BTC", Address: "addr", Amount: decimal.RequireFromString("1.5")}, 5)
	assert.JSONEq(t, `{"currency":"BTC","amount":"1.5","address":"addr"}`, string(req.Params))
}

func TestProcessWrapsSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("socket gone")}
	err := GetAccountSummary{}.Process(sink, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrSendFailure))
}

func TestIsUserChannel(t *testing.T) {
	assert.True(t, IsUserChannel(UserOrderChannel("BTC_USDT")))
	assert.True(t, IsUserChannel(UserBalanceChannel))
	assert.False(t, IsUserChannel(TradeChannel("BTC_USDT")))
	assert.Equal(t, "candlestick.1m.BTC_USDT", CandlestickChannel("1m", "BTC_USDT"))
}
