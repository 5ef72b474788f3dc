package protocolrunner

import (
	"context"

	"github.com/kestrelquant/execengine/model"
)

// sarAccelerationFactor is both the starting acceleration factor and the
// fixed increment added to it on each new extreme point (capped at 0.2).
// There is no tuning surface for it, since only the StopMarket output
// contract is load-bearing here.
const sarAccelerationFactor = 0.02

// Sar is a one-slot StopMarket protocol computing a minimal fixed-step
// parabolic SAR. Its internal math is intentionally simplified, per this
// engine's scope exclusion of sophisticated protocol signal algorithms.
type Sar struct {
	signature string
	feed      PriceFeed

	sar          float64
	extremePoint float64
	af           float64
	initialized  bool
}

func NewSar(signature string, feed PriceFeed) *Sar {
	return &Sar{signature: signature, feed: feed}
}

func (s *Sar) Type() model.ProtocolType { return model.ProtocolStopLoss }
func (s *Sar) Signature() string        { return s.signature }
func (s *Sar) UpdateParams(map[string]float64) {}

func (s *Sar) Attach(ctx context.Context, sink Sink, asset string, side model.Side) error {
	symbol, err := model.ParseSymbol(asset)
	if err != nil {
		return err
	}
	ticks, err := s.feed.Subscribe(ctx, asset)
	if err != nil {
		return err
	}

	emit := func() error {
		orders, err := model.NewProtocolOrders(s.signature, []*model.ConceptualOrderPercents{
			{
				OrderType:              model.ConceptualStopMarketType(s.sar),
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

	for {
		select {
		case <-ctx.Done():
			return nil
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			if !s.initialized {
				s.sar = tick.Price
				s.extremePoint = tick.Price
				s.af = sarAccelerationFactor
				s.initialized = true
				if err := emit(); err != nil {
					return err
				}
				continue
			}

			rising := side == model.Buy
			if rising {
				if tick.Price > s.extremePoint {
					s.extremePoint = tick.Price
					s.af = minFloat(s.af+sarAccelerationFactor, 0.2)
				}
			} else {
				if tick.Price < s.extremePoint {
					s.extremePoint = tick.Price
					s.af = minFloat(s.af+sarAccelerationFactor, 0.2)
				}
			}
			s.sar = s.sar + s.af*(s.extremePoint-s.sar)
			if err := emit(); err != nil {
				return err
			}
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
