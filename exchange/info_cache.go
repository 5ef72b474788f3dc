package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelquant/execengine/model"
	"github.com/rs/zerolog/log"
)

// InfoCache is the per-venue ExchangeInfo cache: a read-mostly map behind
// a reader-writer lock, refreshed periodically. Grounded on
// core/symbols.go's SymbolManager (identical RWMutex-guarded-map shape).
type InfoCache struct {
	mu      sync.RWMutex
	symbols map[model.Symbol]model.SymbolInfo
	client  Client
}

func NewInfoCache(client Client) *InfoCache {
	return &InfoCache{symbols: make(map[model.Symbol]model.SymbolInfo), client: client}
}

// Get returns the cached info for symbol, and whether it was present.
func (c *InfoCache) Get(symbol model.Symbol) (model.SymbolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.symbols[symbol]
	return info, ok
}

// MinQtyGlobal implements position.MinQtyLookup: the maximum across
// applicable order types of the venue's minimum quantity for the asset.
func (c *InfoCache) MinQtyGlobal(symbol model.Symbol) float64 {
	info, ok := c.Get(symbol)
	if !ok {
		return 0
	}
	return info.MaxApplicableMinQty()
}

// SlotMinQty implements position.MinQtyLookup. With a single filter set
// per symbol this is the same threshold regardless of order type; kept
// as its own method so a future per-order-type filter table has a seam.
func (c *InfoCache) SlotMinQty(symbol model.Symbol, _ model.ConceptualOrderType) float64 {
	return c.MinQtyGlobal(symbol)
}

// Refresh re-fetches exchange info and swaps it in under a brief
// exclusive write lock. On error it reports but does not halt
// (spec.md §4.4 "Info refresher").
func (c *InfoCache) Refresh(ctx context.Context) error {
	fresh, err := c.client.ExchangeInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Str("venue", c.client.Venue().String()).Msg("⚠️ exchange info refresh failed, keeping stale cache")
		return err
	}
	c.mu.Lock()
	c.symbols = fresh
	c.mu.Unlock()
	return nil
}

// RunRefresher loops Refresh every interval until ctx is cancelled.
func (c *InfoCache) RunRefresher(ctx context.Context, interval time.Duration) error {
	if err := c.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ initial exchange info fetch failed, will retry on schedule")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
