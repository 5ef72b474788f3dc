package model

// ConceptualOrderKind distinguishes the size-independent intent shapes a
// protocol can express. Conceptual orders are size-independent: a single
// conceptual order may later become zero, one, or more concrete Orders.
type ConceptualOrderKind int

const (
	ConceptualMarket ConceptualOrderKind = iota
	ConceptualStopMarket
	ConceptualLimit
	ConceptualTakeProfit
)

func (k ConceptualOrderKind) String() string {
	switch k {
	case ConceptualMarket:
		return "Market"
	case ConceptualStopMarket:
		return "StopMarket"
	case ConceptualLimit:
		return "Limit"
	case ConceptualTakeProfit:
		return "TakeProfit"
	default:
		return "Unknown"
	}
}

// ConceptualOrderType is the size-independent tagged union emitted by
// protocols. Only the fields relevant to Kind are meaningful.
type ConceptualOrderType struct {
	Kind ConceptualOrderKind
	// MaxSlippagePercent is meaningful for ConceptualMarket.
	MaxSlippagePercent float64
	// Price is meaningful for ConceptualStopMarket, ConceptualLimit,
	// ConceptualTakeProfit.
	Price float64
}

func ConceptualMarketType(maxSlippagePercent float64) ConceptualOrderType {
	return ConceptualOrderType{Kind: ConceptualMarket, MaxSlippagePercent: maxSlippagePercent}
}

func ConceptualStopMarketType(price float64) ConceptualOrderType {
	return ConceptualOrderType{Kind: ConceptualStopMarket, Price: price}
}

func ConceptualLimitType(price float64) ConceptualOrderType {
	return ConceptualOrderType{Kind: ConceptualLimit, Price: price}
}

func ConceptualTakeProfitType(price float64) ConceptualOrderType {
	return ConceptualOrderType{Kind: ConceptualTakeProfit, Price: price}
}

// OrderKind is the concrete, venue-bound counterpart of ConceptualOrderKind.
// It has no TakeProfit variant: hub_process_orders maps TakeProfit down to
// a reduce-only StopMarket, keeping the concrete union venue-agnostic.
type OrderKind int

const (
	Market OrderKind = iota
	StopMarket
	Limit
)

func (k OrderKind) String() string {
	switch k {
	case Market:
		return "Market"
	case StopMarket:
		return "StopMarket"
	case Limit:
		return "Limit"
	default:
		return "Unknown"
	}
}

// OrderType is the concrete, venue-bound tagged union.
type OrderType struct {
	Kind OrderKind
	// Price is meaningful for StopMarket and Limit.
	Price float64
	// ReduceOnly is set when this order must only reduce an existing
	// position; used for the TakeProfit->StopMarket mapping in the Hub.
	ReduceOnly bool
}

func MarketType() OrderType {
	return OrderType{Kind: Market}
}

func StopMarketType(price float64) OrderType {
	return OrderType{Kind: StopMarket, Price: price}
}

func LimitType(price float64) OrderType {
	return OrderType{Kind: Limit, Price: price}
}

// ConceptualOrderPercents is emitted by protocols: a size-independent slot
// expressing a percentage of whatever notional the Position ultimately
// controls for that protocol.
type ConceptualOrderPercents struct {
	OrderType             ConceptualOrderType
	Symbol                Symbol
	Side                  Side
	QtyPercentOfControlled float64 // in [0,1]
}

// ConceptualOrder is a sized conceptual order, parametrized over the id
// type so the same shape serves both ProtocolOrderId (Position-local) and
// PositionOrderId (Hub-aggregated) contexts.
type ConceptualOrder[ID any] struct {
	ID          ID
	OrderType   ConceptualOrderType
	Symbol      Symbol
	Side        Side
	QtyNotional float64
}

// Order is the exchange-native, sized order.
type Order[ID any] struct {
	ID          ID
	OrderType   OrderType
	Symbol      Symbol
	Side        Side
	QtyNotional float64
}
