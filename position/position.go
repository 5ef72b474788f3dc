// Package position implements the per-position controller: spec.md §4.2.
// A Position runs Acquisition then Followup, identical machinery with a
// different target and side, merging protocol-orders and fill updates
// into sized conceptual orders for the Hub. Grounded on
// original_source/discretionary_engine/src/positions.rs and, for the
// goroutine/channel/select orchestration idiom, core/engine.go.
package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kestrelquant/execengine/model"
	"github.com/kestrelquant/execengine/protocolrunner"
	"github.com/rs/zerolog/log"
)

// PriceLookup is the minimal capability a Position needs to compute
// target_coin_quantity at Acquisition start.
type PriceLookup interface {
	Price(ctx context.Context, symbol model.Symbol) (float64, error)
}

// MinQtyLookup exposes the venue's minimum-quantity thresholds a Position
// needs for the allocation algorithm's floor checks.
type MinQtyLookup interface {
	MinQtyGlobal(symbol model.Symbol) float64
	SlotMinQty(symbol model.Symbol, orderType model.ConceptualOrderType) float64
}

// ProtocolSet supplies the protocols attached for one phase. Acquisition
// and Followup may run distinct protocol sets (e.g. TakeProfit/StopLoss
// protocols typically only make sense once a position is established),
// so this is a function of the phase rather than a fixed list.
type ProtocolSet func(phase Phase) []protocolrunner.Protocol

// Position is a single position's controller, from creation through
// Acquisition and Followup to termination.
type Position struct {
	ID   uuid.UUID
	Spec model.PositionSpec

	prices PriceLookup
	minQty MinQtyLookup
	hubIn  chan<- model.PositionToHub

	protocols ProtocolSet
}

// New constructs a Position with a freshly minted time-ordered id.
func New(spec model.PositionSpec, prices PriceLookup, minQty MinQtyLookup, hubIn chan<- model.PositionToHub, protocols ProtocolSet) *Position {
	return &Position{
		ID:        model.NewPositionID(),
		Spec:      spec,
		prices:    prices,
		minQty:    minQty,
		hubIn:     hubIn,
		protocols: protocols,
	}
}

// Run drives Acquisition then Followup to completion. It returns nil once
// Followup terminates normally, or the first error encountered.
func (p *Position) Run(ctx context.Context) error {
	symbol, err := model.ParseSymbol(p.Spec.Asset)
	if err != nil {
		return fmt.Errorf("position %s: %w", p.ID, err)
	}

	log.Info().
		Str("position_id", p.ID.String()).
		Str("asset", p.Spec.Asset).
		Str("side", p.Spec.Side.String()).
		Float64("size_usdt", p.Spec.SizeUSDT).
		Msg("📈 position acquisition starting")

	currentPrice, err := p.prices.Price(ctx, symbol)
	if err != nil {
		return fmt.Errorf("position %s: fetching current price: %w", p.ID, err)
	}
	if currentPrice <= 0 {
		return fmt.Errorf("position %s: non-positive current price %v", p.ID, currentPrice)
	}
	targetCoinQuantity := p.Spec.SizeUSDT / currentPrice

	minQtyGlobal := p.minQty.MinQtyGlobal(symbol)
	slotMinQty := func(ot model.ConceptualOrderType) float64 { return p.minQty.SlotMinQty(symbol, ot) }

	acquisition := newPhaseRunner(p.ID, Acquisition, targetCoinQuantity, p.Spec.Side, minQtyGlobal, slotMinQty, p.hubIn)
	if err := acquisition.run(ctx, p.Spec.Asset, p.protocols(Acquisition)); err != nil {
		return fmt.Errorf("position %s: acquisition: %w", p.ID, err)
	}
	acquiredNotional := acquisition.executedNotional

	log.Info().
		Str("position_id", p.ID.String()).
		Float64("acquired_notional", acquiredNotional).
		Msg("📈 position acquisition complete, entering followup")

	followup := newPhaseRunner(p.ID, Followup, acquiredNotional, p.Spec.Side.Neg(), minQtyGlobal, slotMinQty, p.hubIn)
	if err := followup.run(ctx, p.Spec.Asset, p.protocols(Followup)); err != nil {
		return fmt.Errorf("position %s: followup: %w", p.ID, err)
	}

	log.Info().
		Str("position_id", p.ID.String()).
		Float64("executed_notional", followup.executedNotional).
		Msg("✅ position fully wound down")
	return nil
}
