// Package hub implements the process-wide multiplexer: it aggregates
// sized conceptual orders from every live position, translates them to
// exchange-native orders, owns the per-venue watch channel the Exchange
// Runtime reads from, and routes fills back to the originating position.
// Grounded on original_source/discretionary_engine/src/exchange_apis/hub.rs
// and, for the RWMutex-guarded-registry idiom applied to single-goroutine
// map state, core/router.go.
package hub

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/kestrelquant/execengine/internal/watch"
	"github.com/kestrelquant/execengine/model"
	"github.com/rs/zerolog/log"
)

// positionKnowledge is the Hub's view of one position.
type positionKnowledge struct {
	key             model.Key
	fillsSender     chan<- model.ProtocolFills
	requestedOrders []model.ConceptualOrder[model.ProtocolOrderId]
}

// venueKnowledge is the Hub's view of one venue.
type venueKnowledge struct {
	key          model.Key
	targetOrders []model.Order[model.PositionOrderId]
}

// Hub is single-threaded: all positions_knowledge/venues_knowledge
// mutation happens inside the Run goroutine, so no lock is needed
// (spec.md §4.3: "The hub is single-threaded; no locks.").
type Hub struct {
	fromPositions chan model.PositionToHub
	fromExchanges chan model.ExchangeToHub

	venueWatches map[model.Venue]*watch.Watch[model.HubToExchange]

	positions map[uuid.UUID]*positionKnowledge
	venues    map[model.Venue]*venueKnowledge
}

// New constructs a Hub that dispatches orders to the given venues. The
// returned Hub has one watch channel per venue, fetched via VenueWatch.
func New(venues []model.Venue) *Hub {
	h := &Hub{
		fromPositions: make(chan model.PositionToHub, 32),
		fromExchanges: make(chan model.ExchangeToHub, 32),
		venueWatches:  make(map[model.Venue]*watch.Watch[model.HubToExchange]),
		positions:     make(map[uuid.UUID]*positionKnowledge),
		venues:        make(map[model.Venue]*venueKnowledge),
	}
	for _, v := range venues {
		h.venueWatches[v] = watch.New(model.HubToExchange{})
	}
	return h
}

// PositionsIn is the send side positions use to publish PositionToHub.
func (h *Hub) PositionsIn() chan<- model.PositionToHub { return h.fromPositions }

// ExchangesIn is the send side exchange runtimes use to publish fills.
func (h *Hub) ExchangesIn() chan<- model.ExchangeToHub { return h.fromExchanges }

// VenueWatch returns the watch channel the named venue's Exchange Runtime
// should read target orders from.
func (h *Hub) VenueWatch(v model.Venue) *watch.Watch[model.HubToExchange] {
	return h.venueWatches[v]
}

// Run is the Hub's single multiplexing loop. It returns when ctx is
// cancelled. Channel receive ordering between PositionToHub and
// ExchangeToHub is unspecified, per spec.md §4.3.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-h.fromPositions:
			h.handleUpdateFromPosition(upd)
		case fill := <-h.fromExchanges:
			h.handleFill(fill)
		}
	}
}

func (h *Hub) handleUpdateFromPosition(upd model.PositionToHub) {
	pk, ok := h.positions[upd.PositionID]
	if !ok {
		pk = &positionKnowledge{key: model.ZeroKey()}
		h.positions[upd.PositionID] = pk
	}
	// Carrying the fills sender on every message keeps registration
	// implicit: whichever message first mentions a position wins, and
	// later messages refresh it (the sender never changes in practice).
	if upd.FillsSender != nil {
		pk.fillsSender = upd.FillsSender
	}

	if !pk.key.Equal(upd.Key) {
		log.Debug().Str("position_id", upd.PositionID.String()).Msg("🔑 stale directive dropped (key mismatch)")
		return
	}
	pk.requestedOrders = upd.Orders

	var requestedAcrossPositions []model.ConceptualOrder[model.PositionOrderId]
	for positionID, plk := range h.positions {
		for _, o := range plk.requestedOrders {
			requestedAcrossPositions = append(requestedAcrossPositions, model.ConceptualOrder[model.PositionOrderId]{
				ID:          o.ID.WithPosition(positionID),
				OrderType:   o.OrderType,
				Symbol:      o.Symbol,
				Side:        o.Side,
				QtyNotional: o.QtyNotional,
			})
		}
	}
	// Deterministic output regardless of Go's randomized map iteration,
	// so identical intent always produces an identical dispatch (property 6).
	sort.Slice(requestedAcrossPositions, func(i, j int) bool {
		a, b := requestedAcrossPositions[i].ID, requestedAcrossPositions[j].ID
		if a.PositionID != b.PositionID {
			return a.PositionID.String() < b.PositionID.String()
		}
		if a.ProtocolSignature != b.ProtocolSignature {
			return a.ProtocolSignature < b.ProtocolSignature
		}
		return a.Ordinal < b.Ordinal
	})

	targetOrders, err := hubProcessOrders(requestedAcrossPositions)
	if err != nil {
		log.Error().Err(err).Msg("❌ failed to translate conceptual orders to exchange orders")
		return
	}

	byVenue := make(map[model.Venue][]model.Order[model.PositionOrderId])
	for _, o := range targetOrders {
		byVenue[o.Symbol.Venue] = append(byVenue[o.Symbol.Venue], o)
	}
	for venue, w := range h.venueWatches {
		vk, ok := h.venues[venue]
		if !ok {
			vk = &venueKnowledge{key: model.ZeroKey()}
			h.venues[venue] = vk
		}
		vk.targetOrders = byVenue[venue]
		w.Set(model.HubToExchange{Key: vk.key, Orders: vk.targetOrders})
	}
}

func (h *Hub) handleFill(fill model.ExchangeToHub) {
	vk, ok := h.venues[fill.Venue]
	if !ok {
		vk = &venueKnowledge{}
		h.venues[fill.Venue] = vk
	}
	vk.key = fill.Key

	positionID := fill.Order.ID.PositionID
	pk, ok := h.positions[positionID]
	if !ok {
		log.Error().Str("position_id", positionID.String()).Msg("❌ fill received for unknown position")
		return
	}
	pk.key = fill.Key

	protocolOrderID := model.ProtocolOrderId{
		ProtocolSignature: fill.Order.ID.ProtocolSignature,
		Ordinal:           fill.Order.ID.Ordinal,
	}
	fills := model.ProtocolFills{
		Key:   pk.key,
		Fills: []model.ProtocolFill{{ProtocolOrderID: protocolOrderID, FillQty: fill.FillQty}},
	}
	if pk.fillsSender == nil {
		log.Error().Str("position_id", positionID.String()).Msg("❌ no fills sender registered for position")
		return
	}
	select {
	case pk.fillsSender <- fills:
	default:
		log.Warn().Str("position_id", positionID.String()).Msg("⚠️ position fills channel full, dropping (position will recover on next fill)")
	}
}
