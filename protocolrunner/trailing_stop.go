package protocolrunner

import (
	"context"

	"github.com/kestrelquant/execengine/model"
)

// TrailingStop is a one-slot StopMarket protocol: each time price sets a
// new favorable extreme, the stop is re-placed trailPercent behind it. Only
// its StopMarket output contract is load-bearing; the trail math itself
// is intentionally simple, per this engine's scope exclusion of
// sophisticated protocol signal algorithms.
type TrailingStop struct {
	signature   string
	trailPercent float64
	feed        PriceFeed

	extreme float64 // best price seen so far (highest for Buy-protected longs, lowest for Sell)
}

func NewTrailingStop(signature string, trailPercent float64, feed PriceFeed) *TrailingStop {
	return &TrailingStop{signature: signature, trailPercent: trailPercent, feed: feed}
}

func (t *TrailingStop) Type() model.ProtocolType { return model.ProtocolStopLoss }
func (t *TrailingStop) Signature() string        { return t.signature }

func (t *TrailingStop) UpdateParams(params map[string]float64) {
	if v, ok := params["trail_percent"]; ok {
		t.trailPercent = v
	}
}

// stopSide returns the side of the protective stop order: closing a long
// (side==Buy position) means selling, closing a short means buying.
func stopSide(positionSide model.Side) model.Side {
	return positionSide.Neg()
}

func (t *TrailingStop) Attach(ctx context.Context, sink Sink, asset string, side model.Side) error {
	symbol, err := model.ParseSymbol(asset)
	if err != nil {
		return err
	}
	ticks, err := t.feed.Subscribe(ctx, asset)
	if err != nil {
		return err
	}

	emit := func(stopPrice float64) error {
		orders, err := model.NewProtocolOrders(t.signature, []*model.ConceptualOrderPercents{
			{
				OrderType:              model.ConceptualStopMarketType(stopPrice),
				Symbol:                 symbol,
				Side:                   stopSide(side),
				QtyPercentOfControlled: 1.0,
			},
		})
		if err != nil {
			return err
		}
		sink.Send(orders)
		return nil
	}

	haveExtreme := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			improved := false
			if !haveExtreme {
				t.extreme = tick.Price
				haveExtreme = true
				improved = true
			} else if side == model.Buy && tick.Price > t.extreme {
				t.extreme = tick.Price
				improved = true
			} else if side == model.Sell && tick.Price < t.extreme {
				t.extreme = tick.Price
				improved = true
			}
			if improved {
				stop := t.extreme * (1 - t.trailPercent/100)
				if side == model.Sell {
					stop = t.extreme * (1 + t.trailPercent/100)
				}
				if err := emit(stop); err != nil {
					return err
				}
			}
		}
	}
}
