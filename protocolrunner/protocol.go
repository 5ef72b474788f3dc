package protocolrunner

import (
	"context"

	"github.com/kestrelquant/execengine/model"
)

// Sink is where an attached protocol publishes its latest intent. It is
// bounded; the protocol itself is responsible for dropping the oldest
// pending batch on overflow, since only the latest intent is ever
// relevant (mirrors the Hub->Exchange watch-channel semantic one layer
// up).
type Sink chan model.ProtocolOrders

// Send publishes orders, dropping a stale pending value if the sink is
// full rather than blocking the protocol's own event loop.
func (s Sink) Send(orders model.ProtocolOrders) {
	select {
	case s <- orders:
		return
	default:
	}
	select {
	case <-s:
	default:
	}
	select {
	case s <- orders:
	default:
	}
}

// Protocol is a named, parametrized risk/signal routine that emits
// batches of percent-allocated conceptual orders. The core treats
// protocols as opaque beyond this contract.
type Protocol interface {
	// Attach spawns a task subscribing to market data for asset/side and
	// publishing fresh ProtocolOrders batches to sink on every event that
	// would change intent. It returns once the protocol's context is
	// cancelled or it fails unrecoverably.
	Attach(ctx context.Context, sink Sink, asset string, side model.Side) error

	// Type returns the protocol's type: allocation groups protocols of
	// the same type together.
	Type() model.ProtocolType

	// Signature must be unique within a position.
	Signature() string

	// UpdateParams reconfigures a running protocol in place.
	UpdateParams(params map[string]float64)
}
