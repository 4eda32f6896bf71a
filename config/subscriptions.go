package config

import (
	"fmt"

	"cdcflow/actions"
)

// SubscriptionSet describes which channels to subscribe for each instrument.
// Market lists channel kinds (ticker, trade, book, candlestick, otc_book);
// User lists user channel kinds (order, trade, balance).
type SubscriptionSet struct {
	Instruments    []string `yaml:"instruments"`
	Market         []string `yaml:"market"`
	User           []string `yaml:"user"`
	BookDepth      int      `yaml:"book_depth"`
	CandleInterval string   `yaml:"candle_interval"`
}

func (s SubscriptionSet) validate() error {
	for _, kind := range s.Market {
		switch kind {
		case "ticker", "trade", "otc_book":
		case "book":
			if s.BookDepth <= 0 {
				return fmt.Errorf("session.subscriptions.book_depth must be greater than 0 for book")
			}
		case "candlestick":
			if s.CandleInterval == "" {
				return fmt.Errorf("session.subscriptions.candle_interval is required for candlestick")
			}
		default:
			return fmt.Errorf("session.subscriptions.market: unknown channel %q", kind)
		}
	}
	for _, kind := range s.User {
		switch kind {
		case "order", "trade", "balance":
		default:
			return fmt.Errorf("session.subscriptions.user: unknown channel %q", kind)
		}
	}
	return nil
}

// MarketChannels expands the set into market channel names.
func (s SubscriptionSet) MarketChannels() []string {
	var out []string
	for _, inst := range s.Instruments {
		for _, kind := range s.Market {
			switch kind {
			case "ticker":
				out = append(out, actions.TickerChannel(inst))
			case "trade":
				out = append(out, actions.TradeChannel(inst))
			case "otc_book":
				out = append(out, actions.OtcBookChannel(inst))
			case "book":
				out = append(out, actions.BookChannel(inst, s.BookDepth))
			case "candlestick":
				out = append(out, actions.CandlestickChannel(s.CandleInterval, inst))
			}
		}
	}
	return out
}

// UserChannels expands the set into user channel names. Balance is account
// wide and appears once.
func (s SubscriptionSet) UserChannels() []string {
	var out []string
	for _, kind := range s.User {
		switch kind {
		case "balance":
			out = append(out, actions.UserBalanceChannel)
		case "order":
			for _, inst := range s.Instruments {
				out = append(out, actions.UserOrderChannel(inst))
			}
		case "trade":
			for _, inst := range s.Instruments {
				out = append(out, actions.UserTradeChannel(inst))
			}
		}
	}
	return out
}
