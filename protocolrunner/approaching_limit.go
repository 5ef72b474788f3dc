package protocolrunner

import (
	"context"
	"math"

	"github.com/kestrelquant/execengine/model"
)

// LimitRung is one rung of an ApproachingLimit ladder: a percent distance
// below (for Buy) or above (for Sell) the reference price, and the share
// of controlled notional it receives.
type LimitRung struct {
	DistancePercent float64
	PercentOfTotal  float64
}

// ApproachingLimit is an N-slot limit ladder. It emits a fresh batch
// whenever the last trade price crosses a configured percent-distance
// threshold from the reference price used by the previous emission. It
// exercises the allocation algorithm's multi-slot carry/redistribution
// path; its triggering logic is a deliberately simple price-distance
// comparison, per this engine's scope exclusion of sophisticated
// protocol signal math.
type ApproachingLimit struct {
	signature string
	rungs     []LimitRung
	feed      PriceFeed

	refreshPercent float64 // re-center once price has moved this far from the reference
}

func NewApproachingLimit(signature string, rungs []LimitRung, feed PriceFeed, refreshPercent float64) *ApproachingLimit {
	return &ApproachingLimit{signature: signature, rungs: rungs, feed: feed, refreshPercent: refreshPercent}
}

func (a *ApproachingLimit) Type() model.ProtocolType { return model.ProtocolMomentum }
func (a *ApproachingLimit) Signature() string        { return a.signature }

func (a *ApproachingLimit) UpdateParams(params map[string]float64) {
	if v, ok := params["refresh_percent"]; ok {
		a.refreshPercent = v
	}
}

func (a *ApproachingLimit) Attach(ctx context.Context, sink Sink, asset string, side model.Side) error {
	symbol, err := model.ParseSymbol(asset)
	if err != nil {
		return err
	}
	ticks, err := a.feed.Subscribe(ctx, asset)
	if err != nil {
		return err
	}

	var reference float64
	haveReference := false

	emit := func(price float64) error {
		slots := make([]*model.ConceptualOrderPercents, len(a.rungs))
		for i, r := range a.rungs {
			limitPrice := price * (1 - r.DistancePercent/100)
			if side == model.Sell {
				limitPrice = price * (1 + r.DistancePercent/100)
			}
			slots[i] = &model.ConceptualOrderPercents{
				OrderType:              model.ConceptualLimitType(limitPrice),
				Symbol:                 symbol,
				Side:                   side,
				QtyPercentOfControlled: r.PercentOfTotal,
			}
		}
		orders, err := model.NewProtocolOrders(a.signature, slots)
		if err != nil {
			return err
		}
		sink.Send(orders)
		reference = price
		haveReference = true
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			if !haveReference {
				if err := emit(tick.Price); err != nil {
					return err
				}
				continue
			}
			moved := math.Abs(tick.Price-reference) / reference * 100
			if moved >= a.refreshPercent {
				if err := emit(tick.Price); err != nil {
					return err
				}
			}
		}
	}
}
