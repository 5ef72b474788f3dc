package model

import "github.com/google/uuid"

// PositionToHub is sent by a Position's controller to the Hub every time
// it recomputes its target orders.
type PositionToHub struct {
	Key        Key
	Orders     []ConceptualOrder[ProtocolOrderId]
	PositionID uuid.UUID
	// FillsSender is the channel the Hub should deliver this position's
	// ProtocolFills on. Carried on every message so the Hub can lazily
	// register it on whichever message it sees first.
	FillsSender chan<- ProtocolFills
}

// ProtocolFill is one protocol-slot's fill delta.
type ProtocolFill struct {
	ProtocolOrderID ProtocolOrderId
	FillQty         float64
}

// ProtocolFills is sent by the Hub back to the originating position
// whenever a fill is observed on one of that position's deployed orders.
type ProtocolFills struct {
	Key   Key
	Fills []ProtocolFill
}

// ExchangeToHub is sent by the Exchange runtime to the Hub on every fill
// reconciliation event.
type ExchangeToHub struct {
	Key     Key
	Venue   Venue
	FillQty float64
	Order   Order[PositionOrderId]
}

// HubToExchange is the Hub's per-venue target-orders directive, carried
// over the single-value watch channel.
type HubToExchange struct {
	Key    Key
	Orders []Order[PositionOrderId]
}
