package hub

import (
	"fmt"

	"github.com/kestrelquant/execengine/model"
)

// hubProcessOrders maps the cross-position aggregate of conceptual orders
// to exchange-native orders: Market -> Market, StopMarket -> StopMarket,
// Limit -> Limit. TakeProfit maps to a reduce-only StopMarket rather than
// the source's panic (DESIGN.md "TakeProfit mapping"): Binance's native
// TAKE_PROFIT_MARKET type is venue-specific, and representing it as a
// reduce-only stop keeps this function's output venue-agnostic.
func hubProcessOrders(conceptualOrders []model.ConceptualOrder[model.PositionOrderId]) ([]model.Order[model.PositionOrderId], error) {
	orders := make([]model.Order[model.PositionOrderId], 0, len(conceptualOrders))
	for _, o := range conceptualOrders {
		var ot model.OrderType
		switch o.OrderType.Kind {
		case model.ConceptualMarket:
			ot = model.MarketType()
		case model.ConceptualStopMarket:
			ot = model.StopMarketType(o.OrderType.Price)
		case model.ConceptualLimit:
			ot = model.LimitType(o.OrderType.Price)
		case model.ConceptualTakeProfit:
			ot = model.OrderType{Kind: model.StopMarket, Price: o.OrderType.Price, ReduceOnly: true}
		default:
			return nil, fmt.Errorf("hub: unsupported conceptual order type %v", o.OrderType.Kind)
		}
		orders = append(orders, model.Order[model.PositionOrderId]{
			ID:          o.ID,
			OrderType:   ot,
			Symbol:      o.Symbol,
			Side:        o.Side,
			QtyNotional: o.QtyNotional,
		})
	}
	return orders, nil
}
