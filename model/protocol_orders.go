package model

import "fmt"

// ProtocolOrders is a protocol's entire current intent: a fixed-length
// positional slot vector. The length and slot meaning are fixed for the
// lifetime of a protocol instance; a nil slot means "intentionally
// inactive right now", not "not yet decided".
//
// Invariant (enforced by NewProtocolOrders): percents of present slots
// sum to 1.0, at least one slot is present, and all present slots share
// one symbol.
type ProtocolOrders struct {
	ProtocolSignature string
	Orders            []*ConceptualOrderPercents
}

const sumTolerance = 1e-9

// NewProtocolOrders validates and constructs a ProtocolOrders batch.
func NewProtocolOrders(signature string, orders []*ConceptualOrderPercents) (ProtocolOrders, error) {
	var sum float64
	present := 0
	var sym Symbol
	haveSym := false
	for _, o := range orders {
		if o == nil {
			continue
		}
		present++
		sum += o.QtyPercentOfControlled
		if !haveSym {
			sym = o.Symbol
			haveSym = true
		} else if !sym.Equal(o.Symbol) {
			return ProtocolOrders{}, fmt.Errorf("model: protocol %s: all present slots must share one symbol, got %s and %s", signature, sym, o.Symbol)
		}
	}
	if present == 0 {
		return ProtocolOrders{}, fmt.Errorf("model: protocol %s: at least one slot must be present", signature)
	}
	if sum < 1-sumTolerance || sum > 1+sumTolerance {
		return ProtocolOrders{}, fmt.Errorf("model: protocol %s: present slot percents must sum to 1.0, got %v", signature, sum)
	}
	return ProtocolOrders{ProtocolSignature: signature, Orders: orders}, nil
}

// ProtocolDynamicInfo is per-protocol state kept by the Position: the
// latest ProtocolOrders batch plus per-slot cumulative-filled notional.
// Created lazily the first time the protocol emits.
type ProtocolDynamicInfo struct {
	Latest ProtocolOrders
	// Fills[i] is cumulative filled notional for Latest.Orders[i]. Same
	// length as Latest.Orders.
	Fills []float64
}

// NewProtocolDynamicInfo builds a zeroed fills vector matching orders.
func NewProtocolDynamicInfo(orders ProtocolOrders) *ProtocolDynamicInfo {
	return &ProtocolDynamicInfo{
		Latest: orders,
		Fills:  make([]float64, len(orders.Orders)),
	}
}

// Update replaces Latest, resizing Fills if the slot count changed (it
// should not, per the fixed-shape invariant, but callers must not panic
// on a misbehaving protocol).
func (p *ProtocolDynamicInfo) Update(orders ProtocolOrders) {
	p.Latest = orders
	if len(p.Fills) != len(orders.Orders) {
		grown := make([]float64, len(orders.Orders))
		copy(grown, p.Fills)
		p.Fills = grown
	}
}

// TotalFilled sums cumulative fills across all slots.
func (p *ProtocolDynamicInfo) TotalFilled() float64 {
	var sum float64
	for _, f := range p.Fills {
		sum += f
	}
	return sum
}
