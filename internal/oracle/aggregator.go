// Package oracle implements the core of the cross-network price aggregator:
// concurrent per-network price collection, deviation detection, and
// cost-adjusted arbitrage ranking.
package oracle

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

// Aggregator fans out one feed read per registered network for a given asset
// and collects whatever samples succeed. Collection is best effort: partial
// data is more useful than no data for this domain, so a failing network is
// simply absent from the result and never fails the round.
type Aggregator struct {
	reader   domain.FeedReader
	registry *registry.Registry
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator that reads through reader for every
// network in reg.
func NewAggregator(reader domain.FeedReader, reg *registry.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		reader:   reader,
		registry: reg,
		logger:   logger.With(slog.String("component", "aggregator")),
	}
}

// CollectPrices issues one concurrent ReadPrice call per registered network
// and returns the set of samples that succeeded. Per-network failures are
// logged and contained here; they never propagate to the caller. A slow
// network cannot block its siblings (each read carries its own timeout), and
// the result is only assembled after every call has settled. If zero networks
// succeed the returned PriceSet is empty, not an error; callers must handle
// that case explicitly.
func (a *Aggregator) CollectPrices(ctx context.Context, asset string) domain.PriceSet {
	set := domain.NewPriceSet(asset)

	var mu sync.Mutex
	// Plain errgroup without a derived context: one failing read must never
	// cancel its siblings.
	var g errgroup.Group

	for _, network := range a.registry.Networks() {
		network := network
		g.Go(func() error {
			sample, err := a.reader.ReadPrice(ctx, network, asset)
			if err != nil {
				a.logger.Warn("price read failed, dropping network for this round",
					slog.String("network", network),
					slog.String("asset", asset),
					slog.String("error", err.Error()),
				)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err := set.Add(sample); err != nil {
				a.logger.Warn("rejected sample",
					slog.String("network", network),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}

	// All goroutines return nil; Wait is purely a barrier so results are
	// combined only after every per-network call has settled.
	_ = g.Wait()

	if set.Size() == 0 {
		a.logger.Warn("no network returned a price this round",
			slog.String("asset", asset),
		)
	}
	return set
}
