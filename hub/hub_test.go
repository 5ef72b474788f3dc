package hub

import (
	"testing"

	"github.com/kestrelquant/execengine/model"
)

// S7 (spec.md §8): a position's directive carrying a stale key must be
// dropped without touching venue state, even after the Hub has already
// observed a newer fill key for that position.
func TestHub_HandleUpdateFromPosition_DropsStaleKeyAfterNewerFillObserved(t *testing.T) {
	h := New([]model.Venue{model.VenueBinanceFutures})
	sym := testSymbol(t)
	positionID := model.NewPositionID()
	fillsCh := make(chan model.ProtocolFills, 4)

	k0 := model.ZeroKey()
	orders := []model.ConceptualOrder[model.ProtocolOrderId]{
		{
			ID:          model.ProtocolOrderId{ProtocolSignature: "acquire-market", Ordinal: 0},
			OrderType:   model.ConceptualMarketType(0.5),
			Symbol:      sym,
			Side:        model.Buy,
			QtyNotional: 10.0,
		},
	}
	h.handleUpdateFromPosition(model.PositionToHub{
		Key:         k0,
		Orders:      orders,
		PositionID:  positionID,
		FillsSender: fillsCh,
	})

	venue := h.VenueWatch(model.VenueBinanceFutures)
	_, versionAfterFirst := venue.Value()

	// Simulate the Hub having since observed a fill: this mints and
	// stores a newer key K1 against the position.
	k1 := model.NewKey()
	h.handleFill(model.ExchangeToHub{
		Key:   k1,
		Venue: model.VenueBinanceFutures,
		Order: model.Order[model.PositionOrderId]{
			ID: model.ProtocolOrderId{ProtocolSignature: "acquire-market", Ordinal: 0}.WithPosition(positionID),
		},
		FillQty: 5.0,
	})
	select {
	case <-fillsCh:
	default:
		t.Fatal("expected handleFill to forward a ProtocolFills to the position")
	}

	_, versionAfterFill := venue.Value()

	// The position, unaware of K1 yet, sends a fresh directive still
	// keyed on the now-stale K0.
	h.handleUpdateFromPosition(model.PositionToHub{
		Key:         k0,
		Orders:      orders,
		PositionID:  positionID,
		FillsSender: fillsCh,
	})

	_, versionAfterStaleUpdate := venue.Value()
	if versionAfterStaleUpdate != versionAfterFill {
		t.Errorf("expected the stale-keyed directive to leave venue watch state untouched, version went from %d to %d", versionAfterFill, versionAfterStaleUpdate)
	}
	if versionAfterFill != versionAfterFirst {
		t.Fatal("test setup invariant broken: handleFill must not itself touch the venue watch")
	}
}

// A directive whose key matches the Hub's current view of the position
// (the normal case: first-ever directive against the zero key) must be
// accepted and dispatched to the venue watch.
func TestHub_HandleUpdateFromPosition_AcceptsMatchingKey(t *testing.T) {
	h := New([]model.Venue{model.VenueBinanceFutures})
	sym := testSymbol(t)
	positionID := model.NewPositionID()
	fillsCh := make(chan model.ProtocolFills, 4)

	venue := h.VenueWatch(model.VenueBinanceFutures)
	_, versionBefore := venue.Value()

	h.handleUpdateFromPosition(model.PositionToHub{
		Key: model.ZeroKey(),
		Orders: []model.ConceptualOrder[model.ProtocolOrderId]{
			{
				ID:          model.ProtocolOrderId{ProtocolSignature: "acquire-market", Ordinal: 0},
				OrderType:   model.ConceptualMarketType(0.5),
				Symbol:      sym,
				Side:        model.Buy,
				QtyNotional: 10.0,
			},
		},
		PositionID:  positionID,
		FillsSender: fillsCh,
	})

	target, versionAfter := venue.Value()
	if versionAfter == versionBefore {
		t.Fatal("expected a matching-key directive to update the venue watch")
	}
	if len(target.Orders) != 1 || target.Orders[0].QtyNotional != 10.0 {
		t.Errorf("unexpected dispatched target orders: %+v", target.Orders)
	}
}
