// Package exchange implements the Exchange Runtime: order
// placement/cancel/poll, reconciling the deployed order set against the
// Hub's target, and the shared ExchangeInfo cache. Grounded on
// original_source/discretionary_engine/src/exchange_apis/binance/mod.rs's
// binance_runtime (poller/info-refresher/main-loop structure) and, for
// the RWMutex-guarded order-state idiom, execution/executor.go.
package exchange

import (
	"context"
	"time"

	"github.com/kestrelquant/execengine/model"
)

// OrderStatus is the venue-reported state of a placed order.
type OrderStatus int

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
	StatusUnknown // venue returned "unknown order" (e.g. Binance -2011) on a poll/cancel
)

// PollResult is a venue's answer to "what's the state of this order".
type PollResult struct {
	Status      OrderStatus
	ExecutedQty float64
	AvgPrice    float64
}

// Balances is the balances() response shape.
type Balances struct {
	TotalUSD float64
	PerAsset map[string]float64
}

// Ohlc is one kline/candle.
type Ohlc struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Client is the venue adaptor contract the core consumes (spec.md §6).
// It is intentionally small: wire-level detail (HMAC signing, retry,
// WebSocket reconnection) is entirely the implementation's concern.
type Client interface {
	Balances(ctx context.Context, instrument string, asset string) (Balances, error)
	Klines(ctx context.Context, symbol model.Symbol, timeframe string, limit int) ([]Ohlc, error)
	Price(ctx context.Context, symbol model.Symbol) (float64, error)
	Place(ctx context.Context, order model.Order[model.PositionOrderId]) (venueOrderID string, err error)
	Cancel(ctx context.Context, symbol model.Symbol, venueOrderID string) error
	Poll(ctx context.Context, symbol model.Symbol, venueOrderID string) (PollResult, error)
	ExchangeInfo(ctx context.Context) (map[model.Symbol]model.SymbolInfo, error)
	Venue() model.Venue
}

// ErrUnknownOrder is returned by Cancel when the venue reports the order
// as not found (e.g. Binance -2011): spec.md §7 treats this as success
// after a bounded re-sync retry, which is handled in Runtime, not here.
var ErrUnknownOrder = &unknownOrderError{}

type unknownOrderError struct{}

func (*unknownOrderError) Error() string { return "exchange: unknown order" }
