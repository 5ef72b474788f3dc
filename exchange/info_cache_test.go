package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrelquant/execengine/model"
)

// fakeClient is a minimal Client stub: each test wires only the methods
// it needs, the rest panic if called unexpectedly.
type fakeClient struct {
	venue        model.Venue
	exchangeInfo map[model.Symbol]model.SymbolInfo
	infoErr      error
}

func (f *fakeClient) Balances(ctx context.Context, instrument, asset string) (Balances, error) {
	panic("not used")
}
func (f *fakeClient) Klines(ctx context.Context, symbol model.Symbol, timeframe string, limit int) ([]Ohlc, error) {
	panic("not used")
}
func (f *fakeClient) Price(ctx context.Context, symbol model.Symbol) (float64, error) {
	panic("not used")
}
func (f *fakeClient) Place(ctx context.Context, order model.Order[model.PositionOrderId]) (string, error) {
	panic("not used")
}
func (f *fakeClient) Cancel(ctx context.Context, symbol model.Symbol, venueOrderID string) error {
	panic("not used")
}
func (f *fakeClient) Poll(ctx context.Context, symbol model.Symbol, venueOrderID string) (PollResult, error) {
	panic("not used")
}
func (f *fakeClient) ExchangeInfo(ctx context.Context) (map[model.Symbol]model.SymbolInfo, error) {
	return f.exchangeInfo, f.infoErr
}
func (f *fakeClient) Venue() model.Venue { return f.venue }

func btcSym(t *testing.T) model.Symbol {
	t.Helper()
	sym, err := model.ParseSymbol("BTC-USDT-BinanceFutures")
	if err != nil {
		t.Fatalf("ParseSymbol: %v", err)
	}
	return sym
}

func TestInfoCache_GetMissBeforeRefresh(t *testing.T) {
	c := NewInfoCache(&fakeClient{venue: model.VenueBinanceFutures})
	if _, ok := c.Get(btcSym(t)); ok {
		t.Error("expected a miss before the first Refresh")
	}
	if got := c.MinQtyGlobal(btcSym(t)); got != 0 {
		t.Errorf("MinQtyGlobal on a miss = %v, want 0", got)
	}
}

func TestInfoCache_RefreshPopulatesAndGetHits(t *testing.T) {
	sym := btcSym(t)
	info := model.SymbolInfo{Filters: model.SymbolFilters{MinQty: 0.001}}
	client := &fakeClient{venue: model.VenueBinanceFutures, exchangeInfo: map[model.Symbol]model.SymbolInfo{sym: info}}
	c := NewInfoCache(client)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, ok := c.Get(sym)
	if !ok {
		t.Fatal("expected a hit after Refresh")
	}
	if got.Filters.MinQty != 0.001 {
		t.Errorf("got %+v", got)
	}
	if g := c.MinQtyGlobal(sym); g != 0.001 {
		t.Errorf("MinQtyGlobal() = %v, want 0.001", g)
	}
	if g := c.SlotMinQty(sym, model.ConceptualMarketType(0.5)); g != 0.001 {
		t.Errorf("SlotMinQty() = %v, want 0.001", g)
	}
}

func TestInfoCache_RefreshErrorKeepsStaleCache(t *testing.T) {
	sym := btcSym(t)
	info := model.SymbolInfo{Filters: model.SymbolFilters{MinQty: 0.01}}
	client := &fakeClient{venue: model.VenueBinanceFutures, exchangeInfo: map[model.Symbol]model.SymbolInfo{sym: info}}
	c := NewInfoCache(client)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	client.infoErr = errors.New("network down")
	client.exchangeInfo = nil
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to propagate the error")
	}

	got, ok := c.Get(sym)
	if !ok || got.Filters.MinQty != 0.01 {
		t.Errorf("expected the stale cache to survive a failed refresh, got %+v ok=%v", got, ok)
	}
}
