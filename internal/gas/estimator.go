// Package gas provides cost-estimator collaborators for the recommendation
// engine: a static estimator fed from configuration and a live estimator that
// queries each network's current gas price.
package gas

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

// StaticEstimator returns a fixed per-network cost table from configuration.
type StaticEstimator struct {
	costs domain.CostEstimate
}

// NewStaticEstimator creates an estimator over the given cost table.
func NewStaticEstimator(costs map[string]decimal.Decimal) *StaticEstimator {
	table := make(domain.CostEstimate, len(costs))
	for network, cost := range costs {
		table[network] = cost
	}
	return &StaticEstimator{costs: table}
}

// Costs returns a copy of the configured cost table. Estimates are requested
// fresh each round, so the copy keeps callers from aliasing internal state.
func (s *StaticEstimator) Costs(_ context.Context) (domain.CostEstimate, error) {
	out := make(domain.CostEstimate, len(s.costs))
	for network, cost := range s.costs {
		out[network] = cost
	}
	return out, nil
}

var weiPerEther = decimal.New(1, 18)

// ChainEstimator estimates per-network transaction costs from each network's
// live suggested gas price: cost = gasPrice × gasUnits ÷ 1e18 × nativeUSD.
// The nativeUSD conversion table comes from configuration so costs land in
// the same unit as asset prices. Networks that fail the query or have no
// conversion entry are omitted from the estimate.
type ChainEstimator struct {
	registry  *registry.Registry
	gasUnits  decimal.Decimal
	nativeUSD map[string]decimal.Decimal
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewChainEstimator creates a live estimator. gasUnits is the gas consumed by
// one trade leg on any network; nativeUSD maps each network to its native
// token price in the asset-price unit.
func NewChainEstimator(reg *registry.Registry, gasUnits int64, nativeUSD map[string]decimal.Decimal, timeout time.Duration, logger *slog.Logger) *ChainEstimator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ChainEstimator{
		registry:  reg,
		gasUnits:  decimal.NewFromInt(gasUnits),
		nativeUSD: nativeUSD,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "gas_estimator")),
		clients:   make(map[string]*ethclient.Client),
	}
}

// Costs queries every registered network's gas price concurrently and returns
// whatever estimates succeeded. A failing network is logged and omitted;
// downstream treats a missing entry per its missing-cost policy.
func (e *ChainEstimator) Costs(ctx context.Context) (domain.CostEstimate, error) {
	estimate := make(domain.CostEstimate, e.registry.Size())

	var mu sync.Mutex
	var g errgroup.Group

	for _, network := range e.registry.Networks() {
		network := network
		native, ok := e.nativeUSD[network]
		if !ok {
			e.logger.Debug("no native price configured, omitting network from estimate",
				slog.String("network", network),
			)
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			client, err := e.client(callCtx, network)
			if err != nil {
				e.logger.Warn("gas estimator dial failed",
					slog.String("network", network),
					slog.String("error", err.Error()),
				)
				return nil
			}
			gasPrice, err := client.SuggestGasPrice(callCtx)
			if err != nil {
				e.logger.Warn("gas price query failed",
					slog.String("network", network),
					slog.String("error", err.Error()),
				)
				return nil
			}

			cost := decimal.NewFromBigInt(gasPrice, 0).
				Mul(e.gasUnits).
				Div(weiPerEther).
				Mul(native)

			mu.Lock()
			estimate[network] = cost
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return estimate, nil
}

// Close releases all dialed network connections.
func (e *ChainEstimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, c := range e.clients {
		c.Close()
		delete(e.clients, name)
	}
}

func (e *ChainEstimator) client(ctx context.Context, network string) (*ethclient.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[network]; ok {
		return c, nil
	}
	n, _ := e.registry.Network(network)
	c, err := ethclient.DialContext(ctx, n.RPCURL)
	if err != nil {
		return nil, err
	}
	e.clients[network] = c
	return c, nil
}

// Compile-time interface checks.
var (
	_ domain.CostEstimator = (*StaticEstimator)(nil)
	_ domain.CostEstimator = (*ChainEstimator)(nil)
)
