package protocolrunner

import (
	"context"

	"github.com/kestrelquant/execengine/model"
)

// DummyMarket is the minimal fixture protocol: one always-present slot,
// a Market order at 100% of controlled notional. It emits exactly once
// on attach and otherwise stays quiet. Used as the baseline single-slot
// producer in tests and as a sane default protocol for a position that
// just wants straight-line market acquisition.
type DummyMarket struct {
	signature     string
	maxSlippagePct float64
}

func NewDummyMarket(signature string, maxSlippagePct float64) *DummyMarket {
	return &DummyMarket{signature: signature, maxSlippagePct: maxSlippagePct}
}

func (d *DummyMarket) Type() model.ProtocolType { return model.ProtocolMomentum }
func (d *DummyMarket) Signature() string        { return d.signature }

func (d *DummyMarket) UpdateParams(params map[string]float64) {
	if v, ok := params["max_slippage_pct"]; ok {
		d.maxSlippagePct = v
	}
}

func (d *DummyMarket) Attach(ctx context.Context, sink Sink, asset string, side model.Side) error {
	symbol, err := model.ParseSymbol(asset)
	if err != nil {
		return err
	}
	orders, err := model.NewProtocolOrders(d.signature, []*model.ConceptualOrderPercents{
		{
			OrderType:              model.ConceptualMarketType(d.maxSlippagePct),
			Symbol:                 symbol,
			Side:                   side,
			QtyPercentOfControlled: 1.0,
		},
	})
	if err != nil {
		return err
	}
	sink.Send(orders)
	<-ctx.Done()
	return nil
}
