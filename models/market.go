package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"cdcflow/apierr"
)

// Ticker is one entry of a ticker.{instrument} push.
type Ticker struct {
	Instrument   string
	High         decimal.Decimal
	Low          decimal.NullDecimal
	LastPrice    decimal.NullDecimal
	Volume       decimal.Decimal
	VolumeValue  decimal.Decimal
	OpenInterest decimal.Decimal
	Change       decimal.NullDecimal
	BestBid      decimal.NullDecimal
	BestBidSize  decimal.NullDecimal
	BestAsk      decimal.NullDecimal
	BestAskSize  decimal.NullDecimal
	Timestamp    uint64
}

type rawTicker struct {
	H  string  `json:"h"`
	L  *string `json:"l"`
	A  *string `json:"a"`
	I  string  `json:"i"`
	V  string  `json:"v"`
	VV string  `json:"vv"`
	OI string  `json:"oi"`
	C  *string `json:"c"`
	B  *string `json:"b"`
	BS *string `json:"bs"`
	K  *string `json:"k"`
	KS *string `json:"ks"`
	T  uint64  `json:"t"`
}

// TickerUpdate is the ticker channel payload.
type TickerUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Data           []Ticker
}

type rawTickerUpdate struct {
	Channel        string      `json:"channel"`
	Subscription   string      `json:"subscription"`
	InstrumentName string      `json:"instrument_name"`
	Data           []rawTicker `json:"data"`
}

// DecodeTicker decodes the result of a ticker subscription push.
func DecodeTicker(result []byte) (TickerUpdate, error) {
	var raw rawTickerUpdate
	if err := decodeResult("ticker", result, &raw); err != nil {
		return TickerUpdate{}, err
	}
	out := TickerUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
		Data:           make([]Ticker, 0, len(raw.Data)),
	}
	for _, r := range raw.Data {
		t, err := r.parse()
		if err != nil {
			return TickerUpdate{}, err
		}
		out.Data = append(out.Data, t)
	}
	return out, nil
}

func (r rawTicker) parse() (Ticker, error) {
	t := Ticker{Instrument: r.I, Timestamp: r.T}
	var err error
	if t.High, err = parseDecimal("h", r.H); err != nil {
		return Ticker{}, err
	}
	if t.Volume, err = parseDecimal("v", r.V); err != nil {
		return Ticker{}, err
	}
	if t.VolumeValue, err = parseDecimal("vv", r.VV); err != nil {
		return Ticker{}, err
	}
	if t.OpenInterest, err = parseDecimal("oi", r.OI); err != nil {
		return Ticker{}, err
	}
	optional := []struct {
		field string
		src   *string
		dst   *decimal.NullDecimal
	}{
		{"l", r.L, &t.Low},
		{"a", r.A, &t.LastPrice},
		{"c", r.C, &t.Change},
		{"b", r.B, &t.BestBid},
		{"bs", r.BS, &t.BestBidSize},
		{"k", r.K, &t.BestAsk},
		{"ks", r.KS, &t.BestAskSize},
	}
	for _, o := range optional {
		if *o.dst, err = parseOptionalDecimal(o.field, o.src); err != nil {
			return Ticker{}, err
		}
	}
	return t, nil
}

// BookLevel is one price level: price, size and number of orders.
type BookLevel struct {
	Price  decimal.Decimal
	Size   decimal.Decimal
	Orders uint64
}

type Book struct {
	Bids      []BookLevel
	Asks      []BookLevel
	TradeTime uint64
	Timestamp uint64
	UpdateID  uint64
	Checksum  int64
}

type rawBook struct {
	Bids [][3]string `json:"bids"`
	Asks [][3]string `json:"asks"`
	TT   uint64      `json:"tt"`
	T    uint64      `json:"t"`
	U    uint64      `json:"u"`
	CS   int64       `json:"cs"`
}

// BookUpdate is the book channel payload.
type BookUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Depth          uint64
	Data           []Book
}

type rawBookUpdate struct {
	Channel        string    `json:"channel"`
	Subscription   string    `json:"subscription"`
	InstrumentName string    `json:"instrument_name"`
	Depth          uint64    `json:"depth"`
	Data           []rawBook `json:"data"`
}

func DecodeBook(result []byte) (BookUpdate, error) {
	var raw rawBookUpdate
	if err := decodeResult("book", result, &raw); err != nil {
		return BookUpdate{}, err
	}
	out := BookUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
		Depth:          raw.Depth,
		Data:           make([]Book, 0, len(raw.Data)),
	}
	for _, r := range raw.Data {
		bids, err := parseLevels("bids", r.Bids)
		if err != nil {
			return BookUpdate{}, err
		}
		asks, err := parseLevels("asks", r.Asks)
		if err != nil {
			return BookUpdate{}, err
		}
		out.Data = append(out.Data, Book{
			Bids:      bids,
			Asks:      asks,
			TradeTime: r.TT,
			Timestamp: r.T,
			UpdateID:  r.U,
			Checksum:  r.CS,
		})
	}
	return out, nil
}

func parseLevels(side string, raw [][3]string) ([]BookLevel, error) {
	levels := make([]BookLevel, 0, len(raw))
	for _, l := range raw {
		price, err := parseDecimal(side+".price", l[0])
		if err != nil {
			return nil, err
		}
		size, err := parseDecimal(side+".size", l[1])
		if err != nil {
			return nil, err
		}
		orders, err := parseUint(side+".orders", l[2])
		if err != nil {
			return nil, err
		}
		levels = append(levels, BookLevel{Price: price, Size: size, Orders: orders})
	}
	return levels, nil
}

type Trade struct {
	Side       string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Timestamp  uint64
	TradeID    string
	Instrument string
}

type rawTrade struct {
	S string `json:"s"`
	P string `json:"p"`
	Q string `json:"q"`
	T uint64 `json:"t"`
	D string `json:"d"`
	I string `json:"i"`
}

// TradeUpdate is the trade channel payload.
type TradeUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Data           []Trade
}

type rawTradeUpdate struct {
	Channel        string     `json:"channel"`
	Subscription   string     `json:"subscription"`
	InstrumentName string     `json:"instrument_name"`
	Data           []rawTrade `json:"data"`
}

func DecodeTrade(result []byte) (TradeUpdate, error) {
	var raw rawTradeUpdate
	if err := decodeResult("trade", result, &raw); err != nil {
		return TradeUpdate{}, err
	}
	out := TradeUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
		Data:           make([]Trade, 0, len(raw.Data)),
	}
	for _, r := range raw.Data {
		price, err := parseDecimal("p", r.P)
		if err != nil {
			return TradeUpdate{}, err
		}
		qty, err := parseDecimal("q", r.Q)
		if err != nil {
			return TradeUpdate{}, err
		}
		out.Data = append(out.Data, Trade{
			Side:       r.S,
			Price:      price,
			Quantity:   qty,
			Timestamp:  r.T,
			TradeID:    r.D,
			Instrument: r.I,
		})
	}
	return out, nil
}

type Candlestick struct {
	EndTime    uint64
	UpdateTime uint64
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
}

type rawCandlestick struct {
	T  uint64 `json:"t"`
	UT uint64 `json:"ut"`
	O  string `json:"o"`
	H  string `json:"h"`
	L  string `json:"l"`
	C  string `json:"c"`
	V  string `json:"v"`
}

// CandlestickUpdate is the candlestick channel payload.
type CandlestickUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Interval       string
	Data           []Candlestick
}

type rawCandlestickUpdate struct {
	Channel        string           `json:"channel"`
	Subscription   string           `json:"subscription"`
	InstrumentName string           `json:"instrument_name"`
	Interval       string           `json:"interval"`
	Data           []rawCandlestick `json:"data"`
}

func DecodeCandlestick(result []byte) (CandlestickUpdate, error) {
	var raw rawCandlestickUpdate
	if err := decodeResult("candlestick", result, &raw); err != nil {
		return CandlestickUpdate{}, err
	}
	out := CandlestickUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
		Interval:       raw.Interval,
		Data:           make([]Candlestick, 0, len(raw.Data)),
	}
	for _, r := range raw.Data {
		c := Candlestick{EndTime: r.T, UpdateTime: r.UT}
		fields := []struct {
			name string
			src  string
			dst  *decimal.Decimal
		}{
			{"o", r.O, &c.Open},
			{"h", r.H, &c.High},
			{"l", r.L, &c.Low},
			{"c", r.C, &c.Close},
			{"v", r.V, &c.Volume},
		}
		for _, f := range fields {
			d, err := parseDecimal(f.name, f.src)
			if err != nil {
				return CandlestickUpdate{}, err
			}
			*f.dst = d
		}
		out.Data = append(out.Data, c)
	}
	return out, nil
}

// OtcLevel is one quote of an otc_book push.
type OtcLevel struct {
	Price      decimal.Decimal
	Size       decimal.Decimal
	Orders     uint64
	ExpireTime uint64
	QuoteID    uint64
}

type OtcBook struct {
	Bids []OtcLevel
	Asks []OtcLevel
}

type rawOtcBook struct {
	Bids [][5]json.RawMessage `json:"bids"`
	Asks [][5]json.RawMessage `json:"asks"`
}

// OtcBookUpdate is the otc_book channel payload. Data is absent when the
// venue has no quotes.
type OtcBookUpdate struct {
	Channel        string
	Subscription   string
	InstrumentName string
	Timestamp      uint64
	Data           []OtcBook
}

type rawOtcBookUpdate struct {
	Channel        string       `json:"channel"`
	Subscription   string       `json:"subscription"`
	InstrumentName string       `json:"instrument_name"`
	T              *uint64      `json:"t"`
	Data           []rawOtcBook `json:"data"`
}

func DecodeOtcBook(result []byte) (OtcBookUpdate, error) {
	var raw rawOtcBookUpdate
	if err := decodeResult("otc_book", result, &raw); err != nil {
		return OtcBookUpdate{}, err
	}
	out := OtcBookUpdate{
		Channel:        raw.Channel,
		Subscription:   raw.Subscription,
		InstrumentName: raw.InstrumentName,
	}
	if raw.T != nil {
		out.Timestamp = *raw.T
	}
	for _, r := range raw.Data {
		bids, err := parseOtcLevels("bids", r.Bids)
		if err != nil {
			return OtcBookUpdate{}, err
		}
		asks, err := parseOtcLevels("asks", r.Asks)
		if err != nil {
			return OtcBookUpdate{}, err
		}
		out.Data = append(out.Data, OtcBook{Bids: bids, Asks: asks})
	}
	return out, nil
}

func parseOtcLevels(side string, raw [][5]json.RawMessage) ([]OtcLevel, error) {
	levels := make([]OtcLevel, 0, len(raw))
	for _, l := range raw {
		var strs [3]string
		for i := 0; i < 3; i++ {
			if err := json.Unmarshal(l[i], &strs[i]); err != nil {
				return nil, apierr.Decode(fmt.Errorf("%s level field %d: %w", side, i, err))
			}
		}
		var lvl OtcLevel
		var err error
		if lvl.Price, err = parseDecimal(side+".price", strs[0]); err != nil {
			return nil, err
		}
		if lvl.Size, err = parseDecimal(side+".size", strs[1]); err != nil {
			return nil, err
		}
		if lvl.Orders, err = parseUint(side+".orders", strs[2]); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(l[3], &lvl.ExpireTime); err != nil {
			return nil, apierr.NumericParse(side+".expire_time", err)
		}
		if err := json.Unmarshal(l[4], &lvl.QuoteID); err != nil {
			return nil, apierr.NumericParse(side+".quote_id", err)
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

func (TickerUpdate) Kind() Kind      { return KindTicker }
func (BookUpdate) Kind() Kind        { return KindBook }
func (TradeUpdate) Kind() Kind       { return KindTrade }
func (CandlestickUpdate) Kind() Kind { return KindCandlestick }
func (OtcBookUpdate) Kind() Kind     { return KindOtcBook }

func (TickerUpdate) payload()      {}
func (BookUpdate) payload()        {}
func (TradeUpdate) payload()       {}
func (CandlestickUpdate) payload() {}
func (OtcBookUpdate) payload()     {}
