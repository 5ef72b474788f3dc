package position

import (
	"sort"

	"github.com/kestrelquant/execengine/model"
)

// DynamicInfoByType groups a position's live ProtocolDynamicInfo by
// protocol type, then by signature. Only protocols that have emitted at
// least once are present (spec.md §4.2.1: "siblings ... that have ever
// emitted"); a protocol attached but silent simply has no entry yet.
type DynamicInfoByType map[model.ProtocolType]map[string]*model.ProtocolDynamicInfo

// SlotMinQty reports the minimum tradable notional for a given slot's
// conceptual order type on the position's asset. In practice this reads
// the ExchangeInfo cache; kept as a function here so the allocation math
// stays decoupled from exchange I/O and is directly unit-testable.
type SlotMinQty func(model.ConceptualOrderType) float64

// recalculatedAllocation is one protocol's emitted orders plus, if it
// could not clear min_qty_global, the leftover to carry to the next
// sibling (mirrors the source's RecalculatedAllocation).
type recalculatedAllocation struct {
	orders    []model.ConceptualOrder[model.ProtocolOrderId]
	leftover  float64
	hadLeftover bool
}

// recalculateProtocolOrdersAllocation is one protocol's per-slot
// allocation: spec.md §4.2.1's inner loop. It is a direct port of
// original_source/discretionary_engine/src/protocols/mod.rs's
// recalculate_protocol_orders_allocation.
func recalculateProtocolOrdersAllocation(
	signature string,
	info *model.ProtocolDynamicInfo,
	protocolControlledNotional float64,
	minQtyGlobal float64,
	slotMinQty SlotMinQty,
) recalculatedAllocation {
	leftControlled := protocolControlledNotional - info.TotalFilled()
	if leftControlled < minQtyGlobal {
		return recalculatedAllocation{leftover: leftControlled, hadLeftover: true}
	}

	n := len(info.Latest.Orders)
	carry := 0.0
	var orders []model.ConceptualOrder[model.ProtocolOrderId]
	for i, slot := range info.Latest.Orders {
		if slot == nil {
			continue
		}
		desired := (slot.QtyPercentOfControlled + carry) * leftControlled
		minQty := slotMinQty(slot.OrderType)
		if desired > minQty {
			orders = append(orders, model.ConceptualOrder[model.ProtocolOrderId]{
				ID:          model.ProtocolOrderId{ProtocolSignature: signature, Ordinal: i},
				OrderType:   slot.OrderType,
				Symbol:      slot.Symbol,
				Side:        slot.Side,
				QtyNotional: desired,
			})
			leftControlled -= desired
		} else {
			remainingSlots := n - (i + 1)
			if remainingSlots > 0 {
				carry += slot.QtyPercentOfControlled / float64(remainingSlots)
			}
		}
	}
	return recalculatedAllocation{orders: orders}
}

// RecalculateProtocolOrders is the full cross-protocol, cross-type
// allocation + truncation pass: spec.md §4.2.1 in its entirety. Sibling
// order within a type is deterministic (sorted by protocol_signature),
// resolving spec.md §9's flagged Open Question in favor of a defined
// order rather than the source's undefined map-iteration order.
func RecalculateProtocolOrders(
	leftToTargetNotional float64,
	side model.Side,
	minQtyGlobal float64,
	byType DynamicInfoByType,
	slotMinQty SlotMinQty,
) []model.ConceptualOrder[model.ProtocolOrderId] {
	var marketOrders, stopOrders, limitOrders []model.ConceptualOrder[model.ProtocolOrderId]

	types := make([]model.ProtocolType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		protocols := byType[t]
		signatures := make([]string, 0, len(protocols))
		for sig := range protocols {
			signatures = append(signatures, sig)
		}
		sort.Strings(signatures)

		sizeMultiplier := 1.0 / float64(len(signatures))
		accumulatedLeftovers := 0.0

		for i, sig := range signatures {
			info := protocols[sig]
			protocolControlledNotional := (leftToTargetNotional + accumulatedLeftovers) * sizeMultiplier

			result := recalculateProtocolOrdersAllocation(sig, info, protocolControlledNotional, minQtyGlobal, slotMinQty)
			if result.hadLeftover {
				if i == len(signatures)-1 {
					// last sibling: discard the leftover silently.
					continue
				}
				accumulatedLeftovers += result.leftover
				continue
			}
			for _, o := range result.orders {
				switch o.OrderType.Kind {
				case model.ConceptualStopMarket:
					stopOrders = append(stopOrders, o)
				case model.ConceptualLimit:
					limitOrders = append(limitOrders, o)
				default:
					marketOrders = append(marketOrders, o)
				}
			}
		}
	}

	// Cross-type truncation (market-like orders MUST run first).
	var newTargetOrders []model.ConceptualOrder[model.ProtocolOrderId]

	leftMarketlike := leftToTargetNotional
	updateOrderSelection(&newTargetOrders, marketOrders, &leftMarketlike)

	switch side {
	case model.Buy:
		sort.Slice(stopOrders, func(i, j int) bool { return stopOrders[i].OrderType.Price > stopOrders[j].OrderType.Price })
		sort.Slice(limitOrders, func(i, j int) bool { return limitOrders[i].OrderType.Price < limitOrders[j].OrderType.Price })
	case model.Sell:
		sort.Slice(stopOrders, func(i, j int) bool { return stopOrders[i].OrderType.Price < stopOrders[j].OrderType.Price })
		sort.Slice(limitOrders, func(i, j int) bool { return limitOrders[i].OrderType.Price > limitOrders[j].OrderType.Price })
	}

	leftStop := leftMarketlike
	updateOrderSelection(&newTargetOrders, stopOrders, &leftStop)
	leftLimit := leftMarketlike
	updateOrderSelection(&newTargetOrders, limitOrders, &leftLimit)

	return newTargetOrders
}

// updateOrderSelection clamps each incoming order's notional to what
// remains of the budget, appends it regardless (clamped orders are still
// emitted, never dropped), and debits the budget by the post-clamp
// notional.
func updateOrderSelection(extendable *[]model.ConceptualOrder[model.ProtocolOrderId], incoming []model.ConceptualOrder[model.ProtocolOrderId], leftToTarget *float64) {
	for _, order := range incoming {
		notional := order.QtyNotional
		if notional > *leftToTarget {
			order.QtyNotional = *leftToTarget
		}
		*extendable = append(*extendable, order)
		*leftToTarget -= order.QtyNotional
	}
}
