package protocolrunner

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelquant/execengine/model"
)

// fakeFeed replays a fixed sequence of prices to a single subscriber,
// closing the returned channel once exhausted or ctx is cancelled.
type fakeFeed struct {
	prices []float64
}

func (f *fakeFeed) Subscribe(ctx context.Context, asset string) (<-chan PriceTick, error) {
	out := make(chan PriceTick)
	go func() {
		defer close(out)
		for _, p := range f.prices {
			select {
			case out <- PriceTick{Price: p, Time: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

const testAsset = "BTC-USDT-BinanceFutures"

func recvWithTimeout(t *testing.T, sink Sink) model.ProtocolOrders {
	t.Helper()
	select {
	case orders := <-sink:
		return orders
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for protocol to emit")
		return model.ProtocolOrders{}
	}
}

func TestSink_SendDropsOldestOnOverflow(t *testing.T) {
	sink := make(Sink, 1)
	sink.Send(model.ProtocolOrders{ProtocolSignature: "first"})
	sink.Send(model.ProtocolOrders{ProtocolSignature: "second"})

	select {
	case got := <-sink:
		if got.ProtocolSignature != "second" {
			t.Errorf("expected the stale first value to be dropped, got %q", got.ProtocolSignature)
		}
	default:
		t.Fatal("expected a pending value in the sink")
	}
}

func TestDummyMarket_EmitsOnceThenBlocksUntilCancelled(t *testing.T) {
	d := NewDummyMarket("acquire-market", 0.5)
	if d.Type() != model.ProtocolMomentum {
		t.Errorf("Type() = %v, want ProtocolMomentum", d.Type())
	}

	sink := make(Sink, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Attach(ctx, sink, testAsset, model.Buy) }()

	orders := recvWithTimeout(t, sink)
	if len(orders.Orders) != 1 || orders.Orders[0].OrderType.Kind != model.ConceptualMarket {
		t.Fatalf("expected a single Market slot, got %+v", orders)
	}
	if orders.Orders[0].QtyPercentOfControlled != 1.0 {
		t.Errorf("expected 100%% allocation, got %v", orders.Orders[0].QtyPercentOfControlled)
	}

	select {
	case <-done:
		t.Fatal("expected Attach to block until ctx is cancelled")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Attach returned %v after cancellation, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Attach did not return after ctx cancellation")
	}
}

func TestDummyMarket_UpdateParams(t *testing.T) {
	d := NewDummyMarket("sig", 0.5)
	d.UpdateParams(map[string]float64{"max_slippage_pct": 1.5})
	if d.maxSlippagePct != 1.5 {
		t.Errorf("maxSlippagePct = %v, want 1.5", d.maxSlippagePct)
	}
	d.UpdateParams(map[string]float64{"unrelated": 9})
	if d.maxSlippagePct != 1.5 {
		t.Errorf("unrelated param key must not change maxSlippagePct, got %v", d.maxSlippagePct)
	}
}

func TestTrailingStop_TrailsFavorableMoveForLong(t *testing.T) {
	feed := &fakeFeed{prices: []float64{100, 110, 105}}
	ts := NewTrailingStop("followup-trail", 10.0, feed)
	if ts.Type() != model.ProtocolStopLoss {
		t.Errorf("Type() = %v, want ProtocolStopLoss", ts.Type())
	}

	sink := make(Sink, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ts.Attach(ctx, sink, testAsset, model.Buy) }()

	first := recvWithTimeout(t, sink)
	wantFirst := 100 * (1 - 10.0/100)
	if !approxEqualTest(first.Orders[0].OrderType.Price, wantFirst) {
		t.Errorf("first stop = %v, want %v", first.Orders[0].OrderType.Price, wantFirst)
	}
	if first.Orders[0].Side != model.Sell {
		t.Errorf("expected the protective stop on a long to sell, got %v", first.Orders[0].Side)
	}

	second := recvWithTimeout(t, sink)
	wantSecond := 110 * (1 - 10.0/100)
	if !approxEqualTest(second.Orders[0].OrderType.Price, wantSecond) {
		t.Errorf("second stop = %v, want %v (trailed up behind the new high)", second.Orders[0].OrderType.Price, wantSecond)
	}

	// The pullback to 105 must not move the stop (it only trails extremes).
	select {
	case third := <-sink:
		t.Fatalf("expected no re-emission on a pullback, got %+v", third)
	case <-time.After(100 * time.Millisecond):
	}

	<-done
}

func TestSar_InitializesOnFirstTickThenSteps(t *testing.T) {
	feed := &fakeFeed{prices: []float64{100, 105}}
	s := NewSar("followup-sar", feed)
	if s.Type() != model.ProtocolStopLoss {
		t.Errorf("Type() = %v, want ProtocolStopLoss", s.Type())
	}

	sink := make(Sink, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Attach(ctx, sink, testAsset, model.Buy) }()

	first := recvWithTimeout(t, sink)
	if !approxEqualTest(first.Orders[0].OrderType.Price, 100) {
		t.Errorf("initial sar = %v, want 100 (seeded from first tick)", first.Orders[0].OrderType.Price)
	}

	second := recvWithTimeout(t, sink)
	// The second tick is a new high: af steps from its seeded
	// sarAccelerationFactor to 2x before the sar update is applied.
	wantSecond := 100 + 2*sarAccelerationFactor*(105-100)
	if !approxEqualTest(second.Orders[0].OrderType.Price, wantSecond) {
		t.Errorf("stepped sar = %v, want %v", second.Orders[0].OrderType.Price, wantSecond)
	}

	<-done
}

func TestApproachingLimit_EmitsLadderAndRefreshesOnMoveThreshold(t *testing.T) {
	feed := &fakeFeed{prices: []float64{100, 103, 106}}
	rungs := []LimitRung{
		{DistancePercent: 1, PercentOfTotal: 0.5},
		{DistancePercent: 2, PercentOfTotal: 0.5},
	}
	a := NewApproachingLimit("followup-ladder", rungs, feed, 5.0)

	sink := make(Sink, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Attach(ctx, sink, testAsset, model.Buy) }()

	first := recvWithTimeout(t, sink)
	if len(first.Orders) != 2 {
		t.Fatalf("expected a 2-rung ladder, got %d slots", len(first.Orders))
	}
	wantRung0 := 100 * (1 - 1.0/100)
	if !approxEqualTest(first.Orders[0].OrderType.Price, wantRung0) {
		t.Errorf("rung[0] price = %v, want %v", first.Orders[0].OrderType.Price, wantRung0)
	}

	// 103 is only a 3% move from the 100 reference: below the 5% refresh
	// threshold, so no re-emission.
	select {
	case stale := <-sink:
		t.Fatalf("expected no re-emission below the refresh threshold, got %+v", stale)
	case <-time.After(100 * time.Millisecond):
	}

	// 106 is a 6% move from the 100 reference: crosses the threshold.
	second := recvWithTimeout(t, sink)
	wantRung0Second := 106 * (1 - 1.0/100)
	if !approxEqualTest(second.Orders[0].OrderType.Price, wantRung0Second) {
		t.Errorf("refreshed rung[0] price = %v, want %v", second.Orders[0].OrderType.Price, wantRung0Second)
	}

	<-done
}

func approxEqualTest(a, b float64) bool {
	const tol = 1e-9
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < tol
}
