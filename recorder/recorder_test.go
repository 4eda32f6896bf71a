package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"cdcflow/models"
)

func tradeEvent(instrument string, n int) models.Event {
	trades := make([]models.Trade, n)
	for i := range trades {
		trades[i] = models.Trade{
			Side:       "BUY",
			Price:      decimal.RequireFromString("51174.5"),
			Quantity:   decimal.RequireFromString("0.25"),
			Timestamp:  1613581138462,
			TradeID:    "1613581138462",
			Instrument: instrument,
		}
	}
	return models.Event{
		Stream: models.StreamMarket,
		Data:   models.TradeUpdate{Channel: "trade", InstrumentName: instrument, Data: trades},
	}
}

type fakeSink struct {
	mu      sync.Mutex
	name    string
	batches []Batch
	err     error
	closed  bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(_ context.Context, b Batch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.batches = append(f.batches, b)
	return int64(len(b.Rows) * 10), nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestFlattenBook(t *testing.T) {
	ev := models.Event{Data: models.BookUpdate{
		InstrumentName: "ETH_USDT",
		Data: []models.Book{{
			Bids:      []models.BookLevel{{Price: decimal.RequireFromString("100"), Size: decimal.RequireFromString("1"), Orders: 2}},
			Asks:      []models.BookLevel{{Price: decimal.RequireFromString("101"), Size: decimal.RequireFromString("3"), Orders: 1}, {Price: decimal.RequireFromString("102"), Size: decimal.RequireFromString("4"), Orders: 5}},
			Timestamp: 1000,
			UpdateID:  7,
		}},
	}}

	instrument, rows := Flatten(ev)
	assert.Equal(t, "ETH_USDT", instrument)
	require.Len(t, rows, 3)
	assert.Equal(t, BookRow{Instrument: "ETH_USDT", Timestamp: 1000, UpdateID: 7, Side: "bid", Level: 1, Price: 100, Quantity: 1, Orders: 2}, rows[0])
	assert.Equal(t, "ask", rows[2].(BookRow).Side)
	assert.Equal(t, int32(2), rows[2].(BookRow).Level)
}

func TestFlattenTickerWithMissingPrices(t *testing.T) {
	ev := models.Event{Data: models.TickerUpdate{
		InstrumentName: "BTC_USDT",
		Data: []models.Ticker{{
			High:      decimal.RequireFromString("51790"),
			LastPrice: decimal.NewNullDecimal(decimal.RequireFromString("51174.5")),
			Timestamp: 1,
		}},
	}}

	_, rows := Flatten(ev)
	require.Len(t, rows, 1)
	row := rows[0].(TickerRow)
	assert.Equal(t, 51174.5, row.LastPrice)
	assert.Zero(t, row.BestBid)
	assert.Equal(t, models.KindTicker, row.Kind())
}

func TestFlattenIgnoresOtherEvents(t *testing.T) {
	_, rows := Flatten(models.Event{Data: models.Heartbeat{Stream: models.StreamMarket}})
	assert.Empty(t, rows)

	r := New(Options{}, &fakeSink{name: "fake"})
	assert.False(t, r.Record(models.Event{Data: models.Handshake{}}))
}

func TestRecorderFlushesOnClose(t *testing.T) {
	sink := &fakeSink{name: "fake"}
	r := New(Options{BatchSize: 100, FlushInterval: time.Hour}, sink)
	r.Start(context.Background())

	stop, err := r.Handle(tradeEvent("BTC_USDT", 2))
	require.NoError(t, err)
	assert.False(t, stop)
	r.Record(tradeEvent("ETH_USDT", 1))
	r.Record(tradeEvent("BTC_USDT", 1))

	require.NoError(t, r.Close())
	assert.True(t, sink.closed)
	require.Len(t, sink.batches, 2)

	rows := map[string]int{}
	for _, b := range sink.batches {
		assert.Equal(t, models.KindTrade, b.Kind)
		assert.NotEmpty(t, b.ID)
		rows[b.Instrument] += len(b.Rows)
	}
	assert.Equal(t, map[string]int{"BTC_USDT": 3, "ETH_USDT": 1}, rows)

	st := r.Stats("fake")
	assert.Equal(t, int64(2), st.BatchesWritten)
	assert.Equal(t, int64(4), st.RowsWritten)
	assert.Equal(t, int64(40), st.BytesWritten)
}

func TestRecorderFlushesWhenBatchFull(t *testing.T) {
	sink := &fakeSink{name: "fake"}
	r := New(Options{BatchSize: 3, FlushInterval: time.Hour}, sink)
	r.Start(context.Background())
	defer r.Close()

	r.Record(tradeEvent("BTC_USDT", 3))
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRecorderCountsSinkErrors(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", err: errors.New("disk full")}
	r := New(Options{}, good, bad)

	r.Record(tradeEvent("BTC_USDT", 1))
	err := r.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 1, good.count())
	assert.Equal(t, int64(1), r.Stats("bad").ErrorsCount)
	assert.Equal(t, int64(0), r.Stats("bad").BatchesWritten)
	assert.Equal(t, int64(0), r.Stats("unknown").ErrorsCount)
}

func TestParquetSinkWritesLocalFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewParquetSink(WithLocalDir(dir), WithCompression("snappy"))
	require.NoError(t, err)

	_, rows := Flatten(tradeEvent("BTC_USDT", 4))
	batch := Batch{ID: "b1", Kind: models.KindTrade, Instrument: "BTC_USDT", Rows: rows,
		CreatedAt: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}

	n, err := sink.Write(context.Background(), batch)
	require.NoError(t, err)
	assert.Positive(t, n)

	file := filepath.Join(dir, "kind=trade", "instrument=BTC_USDT", "2024", "03", "09", "b1.parquet")
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, n, info.Size())

	fr, err := local.NewLocalFileReader(file)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(TradeRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(4), pr.GetNumRows())
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestParquetSinkUploadsToS3(t *testing.T) {
	putter := &fakePutter{}
	sink, err := NewParquetSink(WithS3(putter, "market-data", "cdcflow"))
	require.NoError(t, err)

	_, rows := Flatten(tradeEvent("BTC_USDT", 2))
	n, err := sink.Write(context.Background(), Batch{ID: "b2", Kind: models.KindTrade, Instrument: "BTC_USDT",
		Rows: rows, CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "market-data", *putter.inputs[0].Bucket)
	assert.Equal(t, "cdcflow/kind=trade/instrument=BTC_USDT/2024/01/02/b2.parquet", *putter.inputs[0].Key)
	assert.Equal(t, int64(len(putter.bodies[0])), n)
	assert.True(t, strings.HasPrefix(string(putter.bodies[0]), "PAR1"))
}

func TestNewParquetSinkRequiresDestination(t *testing.T) {
	_, err := NewParquetSink()
	assert.Error(t, err)
}

type fakeMessageWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeMessageWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkKeysByInstrument(t *testing.T) {
	w := &fakeMessageWriter{}
	sink := newKafkaSink(w, "trades")

	_, rows := Flatten(tradeEvent("BTC_USDT", 2))
	n, err := sink.Write(context.Background(), Batch{ID: "b3", Kind: models.KindTrade, Instrument: "BTC_USDT", Rows: rows})
	require.NoError(t, err)
	assert.Positive(t, n)

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "BTC_USDT", string(w.msgs[0].Key))

	var row TradeRow
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &row))
	assert.Equal(t, 51174.5, row.Price)
	assert.Equal(t, "BUY", row.Side)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSinkRequiresBrokers(t *testing.T) {
	_, err := NewKafkaSink(nil, "trades")
	assert.Error(t, err)
}
