package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kestrelquant/execengine/model"
	"github.com/kestrelquant/execengine/protocolrunner"
	"github.com/rs/zerolog/log"
)

// phaseRunner drives one phase (Acquisition or Followup) of a position:
// spawns each protocol's task, merges their ProtocolOrders batches and
// the Hub's ProtocolFills batches into one loop, and recomputes/sends
// target orders to the Hub on every event. Grounded on
// original_source/discretionary_engine/src/positions.rs's
// do_acquisition/do_followup (identical machinery, different target/side).
type phaseRunner struct {
	positionID   uuid.UUID
	phase        Phase
	target       float64 // target_coin_quantity for Acquisition, acquired_notional for Followup
	side         model.Side
	minQtyGlobal float64
	slotMinQty   SlotMinQty

	hubIn   chan<- model.PositionToHub
	fillsCh chan model.ProtocolFills

	dynInfo       DynamicInfoByType
	protocolTypes map[string]model.ProtocolType

	executedNotional float64
	lastFillKey      model.Key
	state            State
}

func newPhaseRunner(positionID uuid.UUID, phase Phase, target float64, side model.Side, minQtyGlobal float64, slotMinQty SlotMinQty, hubIn chan<- model.PositionToHub) *phaseRunner {
	return &phaseRunner{
		positionID:    positionID,
		phase:         phase,
		target:        target,
		side:          side,
		minQtyGlobal:  minQtyGlobal,
		slotMinQty:    slotMinQty,
		hubIn:         hubIn,
		fillsCh:       make(chan model.ProtocolFills, 256),
		dynInfo:       make(DynamicInfoByType),
		protocolTypes: make(map[string]model.ProtocolType),
		lastFillKey:   model.ZeroKey(),
		state:         Initializing,
	}
}

// run executes the phase to completion: returns nil once Terminated,
// or a non-nil error if a protocol task failed unrecoverably (spec.md
// §4.2.2: "if any protocol task fails unrecoverably, the phase errors").
func (r *phaseRunner) run(ctx context.Context, asset string, protocols []protocolrunner.Protocol) error {
	sinks := make(map[string]protocolrunner.Sink, len(protocols))
	for _, p := range protocols {
		sinks[p.Signature()] = make(protocolrunner.Sink, 1)
		r.protocolTypes[p.Signature()] = p.Type()
	}

	// phaseCtx stops the protocol tasks once the loop has terminated the
	// phase, so that g.Wait below can return.
	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ordersCh := make(chan model.ProtocolOrders, 64)
	g, gctx := protocolrunner.AttachAll(phaseCtx, protocols, sinks, asset, r.side)
	for _, sink := range sinks {
		sink := sink
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case o, ok := <-sink:
					if !ok {
						return nil
					}
					select {
					case ordersCh <- o:
					case <-gctx.Done():
						return nil
					}
				}
			}
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- r.loop(gctx, ordersCh)
	}()

	select {
	case err := <-done:
		cancel()
		if err != nil {
			return err
		}
		return g.Wait()
	case <-gctx.Done():
		loopErr := <-done
		waitErr := g.Wait()
		if loopErr != nil {
			return loopErr
		}
		return waitErr
	}
}

func (r *phaseRunner) loop(ctx context.Context, ordersCh <-chan model.ProtocolOrders) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-ordersCh:
			if err := r.handleProtocolOrders(o); err != nil {
				return err
			}
		case f := <-r.fillsCh:
			terminated, err := r.handleFills(f)
			if err != nil {
				return err
			}
			if terminated {
				log.Info().
					Str("position_id", r.positionID.String()).
					Str("phase", r.phase.String()).
					Float64("executed_notional", r.executedNotional).
					Float64("target", r.target).
					Msg("✅ phase terminated")
				return nil
			}
		}
	}
}

func (r *phaseRunner) handleProtocolOrders(o model.ProtocolOrders) error {
	t, ok := r.protocolTypes[o.ProtocolSignature]
	if !ok {
		return fmt.Errorf("position: orders from unregistered protocol %q", o.ProtocolSignature)
	}
	group, ok := r.dynInfo[t]
	if !ok {
		group = make(map[string]*model.ProtocolDynamicInfo)
		r.dynInfo[t] = group
	}
	if info, ok := group[o.ProtocolSignature]; ok {
		info.Update(o)
	} else {
		group[o.ProtocolSignature] = model.NewProtocolDynamicInfo(o)
	}
	if r.state == Initializing {
		r.state = Running
	}
	r.sendToHub()
	return nil
}

func (r *phaseRunner) handleFills(f model.ProtocolFills) (terminated bool, err error) {
	for _, fill := range f.Fills {
		group, ok := r.dynInfo[r.protocolTypes[fill.ProtocolOrderID.ProtocolSignature]]
		if !ok {
			continue
		}
		info, ok := group[fill.ProtocolOrderID.ProtocolSignature]
		if !ok || fill.ProtocolOrderID.Ordinal >= len(info.Fills) {
			continue
		}
		info.Fills[fill.ProtocolOrderID.Ordinal] += fill.FillQty
		r.executedNotional += fill.FillQty
	}
	r.lastFillKey = f.Key

	if r.executedNotional > r.target-r.minQtyGlobal {
		r.state = Terminated
		return true, nil
	}
	r.sendToHub()
	return false, nil
}

func (r *phaseRunner) sendToHub() {
	leftToTarget := r.target - r.executedNotional
	orders := RecalculateProtocolOrders(leftToTarget, r.side, r.minQtyGlobal, r.dynInfo, r.slotMinQty)
	msg := model.PositionToHub{
		Key:         r.lastFillKey,
		Orders:      orders,
		PositionID:  r.positionID,
		FillsSender: r.fillsCh,
	}
	select {
	case r.hubIn <- msg:
	default:
		log.Warn().Str("position_id", r.positionID.String()).Msg("⚠️ hub inbound channel full, dropping recompute (next event will resend)")
	}
}
