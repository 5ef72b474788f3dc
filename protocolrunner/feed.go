package protocolrunner

import (
	"context"
	"time"
)

// PriceTick is a single market-data observation.
type PriceTick struct {
	Price float64
	Time  time.Time
}

// PriceFeed is the market-data capability protocols consume. It is kept
// deliberately minimal: attach() only needs a per-asset stream of price
// observations, not full order-book or kline access. The concrete
// exchange/binance adaptor's WebSocket client implements this.
type PriceFeed interface {
	// Subscribe returns a channel of price ticks for asset. The channel
	// is closed when ctx is cancelled or the underlying stream ends.
	Subscribe(ctx context.Context, asset string) (<-chan PriceTick, error)
}
