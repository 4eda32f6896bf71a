package actions

import (
	"fmt"
	"strings"

	"cdcflow/apierr"
	"cdcflow/codec"
)

type channelParams struct {
	Channels []string `json:"channels"`
}

// Subscribe asks the venue to start pushing the named channels, e.g.
// "ticker.BTC_USDT" on the market stream or "user.order.BTC_USDT" on the user
// stream.
type Subscribe struct {
	Channels []string
}

func (Subscribe) Method() string { return MethodSubscribe }

func (s Subscribe) Process(out codec.FrameSink, id uint64) error {
	if len(s.Channels) == 0 {
		return apierr.InvalidRequest("channels")
	}
	return send(out, id, MethodSubscribe, channelParams{Channels: s.Channels})
}

// Unsubscribe stops the named channels.
type Unsubscribe struct {
	Channels []string
}

func (Unsubscribe) Method() string { return MethodUnsubscribe }

func (u Unsubscribe) Process(out codec.FrameSink, id uint64) error {
	if len(u.Channels) == 0 {
		return apierr.InvalidRequest("channels")
	}
	return send(out, id, MethodUnsubscribe, channelParams{Channels: u.Channels})
}

func (Subscribe) marketStream()   {}
func (Subscribe) userStream()     {}
func (Unsubscribe) marketStream() {}
func (Unsubscribe) userStream()   {}

// Channel name helpers.

func TickerChannel(instrument string) string { return "ticker." + instrument }

func TradeChannel(instrument string) string { return "trade." + instrument }

func OtcBookChannel(instrument string) string { return "otc_book." + instrument }

func BookChannel(instrument string, depth int) string {
	return fmt.Sprintf("book.%s.%d", instrument, depth)
}

func CandlestickChannel(interval, instrument string) string {
	return "candlestick." + interval + "." + instrument
}

func UserOrderChannel(instrument string) string { return "user.order." + instrument }

func UserTradeChannel(instrument string) string { return "user.trade." + instrument }

const UserBalanceChannel = "user.balance"

// IsUserChannel reports whether a channel name belongs on the user stream.
func IsUserChannel(channel string) bool {
	return strings.HasPrefix(channel, "user.")
}
