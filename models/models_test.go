package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcflow/apierr"
	"cdcflow/codec"
)

const tickerResult = `{
	"channel": "ticker",
	"subscription": "ticker.BTC_USDT",
	"instrument_name": "BTC_USDT",
	"data": [{
		"h": "51790.00", "l": "47895.50", "a": "51174.500000",
		"i": "BTC_USDT", "v": "879.82", "vv": "45039798.36", "oi": "0",
		"c": "0.03955106", "b": "51170.000000", "bs": "0.1000",
		"k": "51180.000000", "ks": "0.2000", "t": 1613580710768
	}]
}`

func TestDecodeTicker(t *testing.T) {
	upd, err := DecodeTicker([]byte(tickerResult))
	require.NoError(t, err)

	assert.Equal(t, "BTC_USDT", upd.InstrumentName)
	require.Len(t, upd.Data, 1)
	tk := upd.Data[0]
	assert.True(t, tk.High.Equal(decimal.RequireFromString("51790")))
	assert.True(t, tk.LastPrice.Valid)
	assert.True(t, tk.BestAskSize.Decimal.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, uint64(1613580710768), tk.Timestamp)
	assert.Equal(t, KindTicker, upd.Kind())
}

func TestDecodeTickerOptionalMissing(t *testing.T) {
	upd, err := DecodeTicker([]byte(`{"channel":"ticker","subscription":"ticker.X","instrument_name":"X",
		"data":[{"h":"1","i":"X","v":"2","vv":"3","oi":"0","t":1}]}`))
	require.NoError(t, err)
	require.Len(t, upd.Data, 1)
	assert.False(t, upd.Data[0].Low.Valid)
	assert.False(t, upd.Data[0].BestBid.Valid)
}

func TestDecodeTickerBadNumber(t *testing.T) {
	_, err := DecodeTicker([]byte(`{"channel":"ticker","subscription":"ticker.X","instrument_name":"X",
		"data":[{"h":"high","i":"X","v":"2","vv":"3","oi":"0","t":1}]}`))
	require.Error(t, err)

	var e *apierr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apierr.KindNumericParseFailure, e.Kind)
	assert.Equal(t, "h", e.Field)
}

func TestDecodeBook(t *testing.T) {
	upd, err := DecodeBook([]byte(`{"channel":"book","subscription":"book.ETH_CRO.10","instrument_name":"ETH_CRO","depth":10,
		"data":[{"bids":[["11746.488","128","8"]],"asks":[["11747.488","201","12"]],"tt":1,"t":2,"u":3,"cs":-4}]}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(10), upd.Depth)
	require.Len(t, upd.Data, 1)
	book := upd.Data[0]
	require.Len(t, book.Bids, 1)
	assert.Equal(t, uint64(8), book.Bids[0].Orders)
	assert.True(t, book.Asks[0].Price.Equal(decimal.RequireFromString("11747.488")))
	assert.Equal(t, int64(-4), book.Checksum)
}

func TestDecodeBookBadLevel(t *testing.T) {
	_, err := DecodeBook([]byte(`{"channel":"book","subscription":"book.X","instrument_name":"X","depth":1,
		"data":[{"bids":[["1","1","many"]],"asks":[],"tt":1,"t":2,"u":3,"cs":0}]}`))
	assert.True(t, errors.Is(err, apierr.ErrNumericParseFailure))
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := DecodeTrade([]byte(`{"data": [`))
	assert.True(t, errors.Is(err, apierr.ErrDecodeFailure))
}

func TestDecodeOtcBook(t *testing.T) {
	upd, err := DecodeOtcBook([]byte(`{"channel":"otc_book","subscription":"otc_book.BTC_USDT","instrument_name":"BTC_USDT","t":5,
		"data":[{"bids":[["100.5","2","1",1700000000000,42]],"asks":[]}]}`))
	require.NoError(t, err)
	require.Len(t, upd.Data, 1)
	require.Len(t, upd.Data[0].Bids, 1)
	assert.Equal(t, uint64(42), upd.Data[0].Bids[0].QuoteID)
	assert.Equal(t, uint64(5), upd.Timestamp)
}

func TestDecodeUserTrade(t *testing.T) {
	upd, err := DecodeUserTrade([]byte(`{"channel":"user.trade","subscription":"user.trade.ETH_CRO","instrument_name":"ETH_CRO",
		"data":[{"side":"SELL","fee":0.01,"trade_id":"367107655537806900","create_time":1,"traded_price":7,"traded_quantity":1,
		"fee_currency":"CRO","order_id":"367107623521528450"}]}`))
	require.NoError(t, err)
	require.Len(t, upd.Data, 1)
	assert.Equal(t, uint64(367107655537806900), upd.Data[0].TradeID)
	assert.Equal(t, uint64(367107623521528450), upd.Data[0].OrderID)

	_, err = DecodeUserTrade([]byte(`{"channel":"user.trade","subscription":"s","instrument_name":"i",
		"data":[{"side":"SELL","fee":0,"trade_id":"abc","create_time":1,"traded_price":7,"traded_quantity":1,"fee_currency":"CRO","order_id":"1"}]}`))
	assert.True(t, errors.Is(err, apierr.ErrNumericParseFailure))
}

func TestDecodeUserBalanceShapes(t *testing.T) {
	list, err := DecodeUserBalance([]byte(`[{"currency":"CRO","balance":"100","available":"90","order":"10","stake":"0"}]`))
	require.NoError(t, err)
	require.Len(t, list.Balances, 1)
	assert.Equal(t, "CRO", list.Balances[0].Currency)

	wrapped, err := DecodeUserBalance([]byte(`{"channel":"user.balance","subscription":"user.balance","data":[{"currency":"BTC","balance":1,"available":1,"order":0,"stake":0}]}`))
	require.NoError(t, err)
	require.Len(t, wrapped.Balances, 1)
	assert.Equal(t, "BTC", wrapped.Balances[0].Currency)
}

func TestDecodeAckID(t *testing.T) {
	ack, err := DecodeAck[CreateOrderAck]("private/create-order", []byte(`{"order_id":"337843775021233500","client_oid":"my_order_0002"}`))
	require.NoError(t, err)
	assert.Equal(t, ID(337843775021233500), ack.OrderID)

	ack, err = DecodeAck[CreateOrderAck]("private/create-order", []byte(`{"order_id":12}`))
	require.NoError(t, err)
	assert.Equal(t, ID(12), ack.OrderID)

	_, err = DecodeAck[CreateOrderAck]("private/create-order", []byte(`{"order_id":"x1"}`))
	assert.True(t, errors.Is(err, apierr.ErrNumericParseFailure))
}

func TestDecodeInstruments(t *testing.T) {
	inst, err := DecodeInstruments([]byte(`{"instruments":[{"instrument_name":"BTC_USDT","quote_currency":"USDT","base_currency":"BTC",
		"price_decimals":2,"quantity_decimals":6,"margin_trading_enabled":true,"max_quantity":"100000000","min_quantity":"0.000001",
		"max_price":"1000000","min_price":"0.01","last_update_date":1,"quantity_tick_size":"0.000001","price_tick_size":"0.01"}]}`))
	require.NoError(t, err)
	require.Len(t, inst.Instruments, 1)
	assert.True(t, inst.Instruments[0].PriceTickSize.Equal(decimal.RequireFromString("0.01")))
}

func TestNewEventCopiesEnvelope(t *testing.T) {
	env, err := codec.DecodeText([]byte(`{"id":9,"method":"public/auth","code":10002,"message":"UNAUTHORIZED","detail_code":"1"}`))
	require.NoError(t, err)

	ev := NewEvent(StreamUser, env, AuthResult{Code: env.StatusCode()})
	assert.Equal(t, StreamUser, ev.Stream)
	assert.Equal(t, int64(9), ev.ID)
	assert.Equal(t, int64(10002), ev.Code)
	assert.Equal(t, "UNAUTHORIZED", ev.Message)
	assert.Equal(t, "1", ev.DetailCode)
	assert.Equal(t, KindAuth, ev.Kind())

	marker := NewEvent(StreamMarket, nil, Handshake{Stream: StreamMarket})
	assert.Equal(t, codec.NoID, marker.ID)
}
