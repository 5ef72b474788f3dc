package protocolrunner

import (
	"context"

	"github.com/kestrelquant/execengine/model"
	"golang.org/x/sync/errgroup"
)

// AttachAll spawns every protocol's Attach task under one errgroup, the
// idiomatic Go substitute for the source's JoinSet: if any protocol task
// fails unrecoverably, the group's context is cancelled and the error
// propagates to the owning position phase (spec.md §4.2.2 "if any
// protocol task fails unrecoverably, the phase errors").
func AttachAll(ctx context.Context, protocols []Protocol, sinks map[string]Sink, asset string, side model.Side) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range protocols {
		p := p
		sink := sinks[p.Signature()]
		g.Go(func() error {
			return p.Attach(gctx, sink, asset, side)
		})
	}
	return g, gctx
}
