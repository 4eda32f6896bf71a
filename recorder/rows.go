package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"cdcflow/models"
)

// Row is one flattened record of a market event.
type Row interface {
	Kind() models.Kind
}

// TradeRow is one executed trade.
type TradeRow struct {
	Instrument string  `parquet:"name=instrument, type=BYTE_ARRAY, convertedtype=UTF8" json:"instrument"`
	TradeID    string  `parquet:"name=trade_id, type=BYTE_ARRAY, convertedtype=UTF8" json:"trade_id"`
	Side       string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8" json:"side"`
	Price      float64 `parquet:"name=price, type=DOUBLE" json:"price"`
	Quantity   float64 `parquet:"name=quantity, type=DOUBLE" json:"quantity"`
	Timestamp  int64   `parquet:"name=timestamp, type=INT64" json:"timestamp"`
}

// TickerRow is one ticker snapshot. Absent optional prices are written as 0.
type TickerRow struct {
	Instrument  string  `parquet:"name=instrument, type=BYTE_ARRAY, convertedtype=UTF8" json:"instrument"`
	High        float64 `parquet:"name=high, type=DOUBLE" json:"high"`
	Low         float64 `parquet:"name=low, type=DOUBLE" json:"low"`
	LastPrice   float64 `parquet:"name=last_price, type=DOUBLE" json:"last_price"`
	Change      float64 `parquet:"name=change, type=DOUBLE" json:"change"`
	Volume      float64 `parquet:"name=volume, type=DOUBLE" json:"volume"`
	VolumeValue float64 `parquet:"name=volume_value, type=DOUBLE" json:"volume_value"`
	BestBid     float64 `parquet:"name=best_bid, type=DOUBLE" json:"best_bid"`
	BestAsk     float64 `parquet:"name=best_ask, type=DOUBLE" json:"best_ask"`
	Timestamp   int64   `parquet:"name=timestamp, type=INT64" json:"timestamp"`
}

// BookRow is one price level of a book snapshot.
type BookRow struct {
	Instrument string  `parquet:"name=instrument, type=BYTE_ARRAY, convertedtype=UTF8" json:"instrument"`
	Timestamp  int64   `parquet:"name=timestamp, type=INT64" json:"timestamp"`
	UpdateID   int64   `parquet:"name=update_id, type=INT64" json:"update_id"`
	Side       string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8" json:"side"` // "bid" or "ask"
	Level      int32   `parquet:"name=level, type=INT32" json:"level"`                        // 1 = best
	Price      float64 `parquet:"name=price, type=DOUBLE" json:"price"`
	Quantity   float64 `parquet:"name=quantity, type=DOUBLE" json:"quantity"`
	Orders     int64   `parquet:"name=orders, type=INT64" json:"orders"`
}

func (TradeRow) Kind() models.Kind  { return models.KindTrade }
func (TickerRow) Kind() models.Kind { return models.KindTicker }
func (BookRow) Kind() models.Kind   { return models.KindBook }

// Batch groups rows of one kind for one instrument.
type Batch struct {
	ID         string
	Kind       models.Kind
	Instrument string
	Rows       []Row
	CreatedAt  time.Time
}

// Flatten turns a trade, ticker or book event into rows. Other events yield
// no rows.
func Flatten(ev models.Event) (string, []Row) {
	switch d := ev.Data.(type) {
	case models.TradeUpdate:
		rows := make([]Row, 0, len(d.Data))
		for _, t := range d.Data {
			rows = append(rows, TradeRow{
				Instrument: instrumentOr(d.InstrumentName, t.Instrument),
				TradeID:    t.TradeID,
				Side:       t.Side,
				Price:      t.Price.InexactFloat64(),
				Quantity:   t.Quantity.InexactFloat64(),
				Timestamp:  int64(t.Timestamp),
			})
		}
		return d.InstrumentName, rows
	case models.TickerUpdate:
		rows := make([]Row, 0, len(d.Data))
		for _, t := range d.Data {
			rows = append(rows, TickerRow{
				Instrument:  instrumentOr(d.InstrumentName, t.Instrument),
				High:        t.High.InexactFloat64(),
				Low:         nullFloat(t.Low),
				LastPrice:   nullFloat(t.LastPrice),
				Change:      nullFloat(t.Change),
				Volume:      t.Volume.InexactFloat64(),
				VolumeValue: t.VolumeValue.InexactFloat64(),
				BestBid:     nullFloat(t.BestBid),
				BestAsk:     nullFloat(t.BestAsk),
				Timestamp:   int64(t.Timestamp),
			})
		}
		return d.InstrumentName, rows
	case models.BookUpdate:
		var rows []Row
		for _, b := range d.Data {
			rows = appendLevels(rows, d.InstrumentName, b, "bid", b.Bids)
			rows = appendLevels(rows, d.InstrumentName, b, "ask", b.Asks)
		}
		return d.InstrumentName, rows
	default:
		return "", nil
	}
}

func appendLevels(rows []Row, instrument string, b models.Book, side string, levels []models.BookLevel) []Row {
	for i, l := range levels {
		rows = append(rows, BookRow{
			Instrument: instrument,
			Timestamp:  int64(b.Timestamp),
			UpdateID:   int64(b.UpdateID),
			Side:       side,
			Level:      int32(i + 1),
			Price:      l.Price.InexactFloat64(),
			Quantity:   l.Size.InexactFloat64(),
			Orders:     int64(l.Orders),
		})
	}
	return rows
}

func instrumentOr(instrument, fallback string) string {
	if instrument != "" {
		return instrument
	}
	return fallback
}

func nullFloat(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.InexactFloat64()
}
