package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kestrelquant/execengine/model"
)

func testSymbol(t *testing.T) model.Symbol {
	t.Helper()
	sym, err := model.ParseSymbol("BTC-USDT-BinanceFutures")
	if err != nil {
		t.Fatalf("ParseSymbol: %v", err)
	}
	return sym
}

// Ported from hub.rs's test_hub_process: Market and StopMarket pass through
// unchanged, each keeping its id, side, and notional.
func TestHubProcessOrders_MarketAndStopMarketPassThrough(t *testing.T) {
	sym := testSymbol(t)
	id := model.PositionOrderId{PositionID: uuid.New(), ProtocolSignature: "acquire-market", Ordinal: 0}

	in := []model.ConceptualOrder[model.PositionOrderId]{
		{ID: id, OrderType: model.ConceptualMarketType(0.5), Symbol: sym, Side: model.Buy, QtyNotional: 100.0},
		{ID: id, OrderType: model.ConceptualStopMarketType(90.0), Symbol: sym, Side: model.Sell, QtyNotional: 50.0},
	}

	got, err := hubProcessOrders(in)
	if err != nil {
		t.Fatalf("hubProcessOrders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}

	if got[0].OrderType.Kind != model.Market {
		t.Errorf("order[0].Kind = %v, want Market", got[0].OrderType.Kind)
	}
	if got[0].QtyNotional != 100.0 || got[0].Side != model.Buy {
		t.Errorf("order[0] = %+v, want qty 100.0 side Buy", got[0])
	}

	if got[1].OrderType.Kind != model.StopMarket {
		t.Errorf("order[1].Kind = %v, want StopMarket", got[1].OrderType.Kind)
	}
	if got[1].OrderType.Price != 90.0 {
		t.Errorf("order[1].Price = %v, want 90.0", got[1].OrderType.Price)
	}
	if got[1].OrderType.ReduceOnly {
		t.Errorf("order[1].ReduceOnly = true, want false (not a TakeProfit mapping)")
	}
}

// DESIGN.md's resolved open question: TakeProfit maps to a reduce-only
// StopMarket rather than being rejected, since Binance's TAKE_PROFIT_MARKET
// type is venue-specific and a reduce-only stop is the venue-agnostic
// equivalent.
func TestHubProcessOrders_TakeProfitMapsToReduceOnlyStopMarket(t *testing.T) {
	sym := testSymbol(t)
	id := model.PositionOrderId{PositionID: uuid.New(), ProtocolSignature: "followup-trail", Ordinal: 0}

	in := []model.ConceptualOrder[model.PositionOrderId]{
		{ID: id, OrderType: model.ConceptualTakeProfitType(120.0), Symbol: sym, Side: model.Sell, QtyNotional: 25.0},
	}

	got, err := hubProcessOrders(in)
	if err != nil {
		t.Fatalf("hubProcessOrders: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}
	if got[0].OrderType.Kind != model.StopMarket {
		t.Errorf("Kind = %v, want StopMarket", got[0].OrderType.Kind)
	}
	if !got[0].OrderType.ReduceOnly {
		t.Errorf("ReduceOnly = false, want true")
	}
	if got[0].OrderType.Price != 120.0 {
		t.Errorf("Price = %v, want 120.0", got[0].OrderType.Price)
	}
	if got[0].QtyNotional != 25.0 {
		t.Errorf("QtyNotional = %v, want 25.0", got[0].QtyNotional)
	}
}

func TestHubProcessOrders_LimitPassesThrough(t *testing.T) {
	sym := testSymbol(t)
	id := model.PositionOrderId{PositionID: uuid.New(), ProtocolSignature: "followup-sar", Ordinal: 1}

	in := []model.ConceptualOrder[model.PositionOrderId]{
		{ID: id, OrderType: model.ConceptualLimitType(105.5), Symbol: sym, Side: model.Buy, QtyNotional: 10.0},
	}

	got, err := hubProcessOrders(in)
	if err != nil {
		t.Fatalf("hubProcessOrders: %v", err)
	}
	if len(got) != 1 || got[0].OrderType.Kind != model.Limit || got[0].OrderType.Price != 105.5 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestHubProcessOrders_EmptyInputYieldsEmptyOutput(t *testing.T) {
	got, err := hubProcessOrders(nil)
	if err != nil {
		t.Fatalf("hubProcessOrders: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}
}
