package exchange

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kestrelquant/execengine/internal/watch"
	"github.com/kestrelquant/execengine/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// deployedOrder pairs a placed model.Order with the venue's own order id
// and last-known fill state, mirroring execution/executor.go's Order
// lifecycle fields but scoped to what the runtime needs to reconcile.
type deployedOrder struct {
	order         model.Order[model.PositionOrderId]
	venueOrderID  string
	notionalFilled float64
}

// MaxConnectionFailures bounds the unknown-order-on-cancel re-sync retry
// (spec.md §7).
const MaxConnectionFailures = 10

// Runtime owns one venue's signed client, credentials (via the Client
// implementation), and currently_deployed: the shared, RWMutex-guarded
// order set. Three cooperating subtasks run under one errgroup, the
// idiomatic analog of the source's JoinSet.
type Runtime struct {
	client Client
	info   *InfoCache
	watch  *watch.Watch[model.HubToExchange]
	fillsOut chan<- model.ExchangeToHub

	mu               sync.RWMutex
	currentlyDeployed []deployedOrder

	lastReportedFillKey model.Key

	pollInterval    time.Duration
	refreshInterval time.Duration
}

func NewRuntime(client Client, info *InfoCache, w *watch.Watch[model.HubToExchange], fillsOut chan<- model.ExchangeToHub) *Runtime {
	return &Runtime{
		client:          client,
		info:            info,
		watch:           w,
		fillsOut:        fillsOut,
		lastReportedFillKey: model.ZeroKey(),
		pollInterval:    5 * time.Second,
		refreshInterval: 15 * time.Second,
	}
}

// SetIntervals overrides the poll/refresh cadence before Run is called;
// a no-op duration leaves the corresponding default untouched.
func (r *Runtime) SetIntervals(pollInterval, refreshInterval time.Duration) {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if refreshInterval > 0 {
		r.refreshInterval = refreshInterval
	}
}

// Deployed returns a snapshot of currently_deployed under the shared
// read lock.
func (r *Runtime) Deployed() []deployedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]deployedOrder, len(r.currentlyDeployed))
	copy(out, r.currentlyDeployed)
	return out
}

// Run spawns the poller, the info refresher, and the main loop, and
// blocks until one of them errors or ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.info.RunRefresher(gctx, r.refreshInterval) })
	reconcile := make(chan reconcileEvent, 64)
	g.Go(func() error { return r.poll(gctx, reconcile) })
	g.Go(func() error { return r.mainLoop(gctx, reconcile) })
	return g.Wait()
}

type reconcileEvent struct {
	order  deployedOrder
	result PollResult
}

// poll snapshots currently_deployed, shuffles to avoid positional bias,
// and polls each order's venue status every pollInterval, pushing a
// reconcile event whenever the venue-reported executed quantity differs
// from the locally tracked value. Spec.md §4.4 "Poller".
func (r *Runtime) poll(ctx context.Context, out chan<- reconcileEvent) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deployed := r.Deployed()
			rand.Shuffle(len(deployed), func(i, j int) { deployed[i], deployed[j] = deployed[j], deployed[i] })
			for _, d := range deployed {
				result, err := r.client.Poll(ctx, d.order.Symbol, d.venueOrderID)
				if err != nil {
					log.Warn().Err(err).Str("venue_order_id", d.venueOrderID).Msg("⚠️ poll failed, will retry next tick")
					continue
				}
				if result.ExecutedQty != d.notionalFilled {
					select {
					case out <- reconcileEvent{order: d, result: result}:
					case <-ctx.Done():
						return nil
					}
				}
			}
		}
	}
}

// mainLoop multiplexes target-orders changes from the Hub's watch channel
// and fill-reconciliation events from the poller. Spec.md §4.4
// "Main loop".
func (r *Runtime) mainLoop(ctx context.Context, reconcile <-chan reconcileEvent) error {
	_, lastVersion := r.watch.Value()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-reconcile:
			r.handleReconcile(ctx, ev)
		case <-r.watch.WaitChan(lastVersion):
			target, version := r.watch.Value()
			lastVersion = version
			r.handleTargetOrdersChange(ctx, target)
		}
	}
}

func (r *Runtime) handleTargetOrdersChange(ctx context.Context, target model.HubToExchange) {
	if !target.Key.Equal(r.lastReportedFillKey) {
		log.Debug().Str("venue", r.client.Venue().String()).Msg("🔑 stale target-orders directive dropped (key mismatch)")
		return
	}

	deployed := r.Deployed()
	log.Debug().Str("venue", r.client.Venue().String()).Int("deployed", len(deployed)).Msg("♻️ cancel/place window entered")
	r.cancelAll(ctx, deployed)

	placed := r.placeAll(ctx, target.Orders)

	r.mu.Lock()
	r.currentlyDeployed = placed
	r.mu.Unlock()
	log.Debug().Str("venue", r.client.Venue().String()).Int("placed", len(placed)).Msg("♻️ cancel/place window exited")
}

func (r *Runtime) cancelAll(ctx context.Context, deployed []deployedOrder) {
	var wg sync.WaitGroup
	for _, d := range deployed {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempts := 0
			for {
				err := r.client.Cancel(ctx, d.order.Symbol, d.venueOrderID)
				if err == nil {
					return
				}
				if err == ErrUnknownOrder {
					// Treated as success after a brief wait and re-read,
					// bounded by MaxConnectionFailures (spec.md §7).
					attempts++
					if attempts >= MaxConnectionFailures {
						log.Warn().Str("venue_order_id", d.venueOrderID).Msg("⚠️ giving up re-sync after max connection failures, treating cancel as success")
						return
					}
					time.Sleep(200 * time.Millisecond)
					continue
				}
				log.Error().Err(err).Str("venue_order_id", d.venueOrderID).Msg("❌ cancel failed, skipping this order")
				return
			}
		}()
	}
	wg.Wait()
}

// roundToVenuePrecision rounds price/qty down to the symbol's tick_size/
// step_size before an order is placed (spec.md §4.4). A symbol missing
// from the cache (not yet refreshed) is placed unrounded rather than
// blocked.
func (r *Runtime) roundToVenuePrecision(o model.Order[model.PositionOrderId]) model.Order[model.PositionOrderId] {
	info, ok := r.info.Get(o.Symbol)
	if !ok {
		return o
	}
	o.QtyNotional = info.RoundQty(o.QtyNotional)
	if o.OrderType.Kind == model.StopMarket || o.OrderType.Kind == model.Limit {
		o.OrderType.Price = info.RoundPrice(o.OrderType.Price)
	}
	return o
}

func (r *Runtime) placeAll(ctx context.Context, orders []model.Order[model.PositionOrderId]) []deployedOrder {
	type result struct {
		deployed deployedOrder
		ok       bool
	}
	results := make([]result, len(orders))
	var wg sync.WaitGroup
	for i, o := range orders {
		i, o := i, o
		wg.Add(1)
		go func() {
			defer wg.Done()
			rounded := r.roundToVenuePrecision(o)
			venueOrderID, err := r.client.Place(ctx, rounded)
			if err != nil {
				log.Error().Err(err).Str("symbol", o.Symbol.String()).Msg("❌ order placement failed, skipping this order")
				return
			}
			results[i] = result{deployed: deployedOrder{order: rounded, venueOrderID: venueOrderID}, ok: true}
		}()
	}
	wg.Wait()

	placed := make([]deployedOrder, 0, len(orders))
	for _, res := range results {
		if res.ok {
			placed = append(placed, res.deployed)
		}
	}
	return placed
}

func (r *Runtime) handleReconcile(ctx context.Context, ev reconcileEvent) {
	newKey := model.NewKey()
	delta := ev.result.ExecutedQty - ev.order.notionalFilled

	r.mu.Lock()
	for i := range r.currentlyDeployed {
		if r.currentlyDeployed[i].venueOrderID == ev.order.venueOrderID {
			r.currentlyDeployed[i].notionalFilled = ev.result.ExecutedQty
			if ev.result.Status == StatusFilled {
				r.currentlyDeployed = append(r.currentlyDeployed[:i], r.currentlyDeployed[i+1:]...)
			}
			break
		}
	}
	r.mu.Unlock()

	r.lastReportedFillKey = newKey
	select {
	case r.fillsOut <- model.ExchangeToHub{
		Key:     newKey,
		Venue:   r.client.Venue(),
		FillQty: delta,
		Order:   ev.order.order,
	}:
	case <-ctx.Done():
	}
}
