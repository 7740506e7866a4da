package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	cacheredis "github.com/alanyoungcy/oraclewatch/internal/cache/redis"
	"github.com/alanyoungcy/oraclewatch/internal/config"
	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/feed"
	"github.com/alanyoungcy/oraclewatch/internal/gas"
	"github.com/alanyoungcy/oraclewatch/internal/monitor"
	"github.com/alanyoungcy/oraclewatch/internal/notify"
	"github.com/alanyoungcy/oraclewatch/internal/oracle"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Registry *registry.Registry
	Reader   *feed.ChainlinkReader
	Monitor  *monitor.Monitor

	// Collaborators
	CostEstimator domain.CostEstimator
	ReportCache   domain.ReportCache
	SignalBus     domain.SignalBus
	Notifier      *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Endpoint registry (immutable after this point) ---
	reg, err := buildRegistry(cfg.Networks)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: registry: %w", err)
	}
	deps.Registry = reg

	// --- Feed reader ---
	reader, err := feed.NewChainlinkReader(reg, cfg.Oracle.CallTimeout.Duration, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: feed reader: %w", err)
	}
	closers = append(closers, reader.Close)
	deps.Reader = reader

	// --- Cost estimator ---
	switch strings.ToLower(cfg.Costs.Mode) {
	case "chain":
		est := gas.NewChainEstimator(reg, cfg.Costs.GasUnits,
			decimalTable(cfg.Costs.NativeUSD), cfg.Oracle.CallTimeout.Duration, logger)
		closers = append(closers, est.Close)
		deps.CostEstimator = est
	default:
		deps.CostEstimator = gas.NewStaticEstimator(decimalTable(cfg.Costs.Static))
	}

	// --- Redis (optional: report cache + signal bus) ---
	if cfg.Redis.Enabled {
		client, err := cacheredis.New(ctx, cacheredis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.ReportCache = cacheredis.NewReportCache(client)
		deps.SignalBus = cacheredis.NewSignalBus(client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- Monitor pipeline ---
	agg := oracle.NewAggregator(reader, reg, logger)
	det := oracle.NewDetector(logger)
	rec := oracle.NewRecommender(cfg.Oracle.RequireCosts, logger)
	deps.Monitor = monitor.New(agg, det, rec, deps.CostEstimator, monitor.Config{
		Assets:           cfg.Oracle.Assets,
		Interval:         cfg.Oracle.PollInterval.Duration,
		ThresholdPercent: decimal.NewFromFloat(cfg.Oracle.ThresholdPercent),
	}, logger)

	return deps, cleanup, nil
}

// buildRegistry converts the configured networks into the immutable endpoint
// registry, validating feed addresses on the way.
func buildRegistry(networks []config.NetworkConfig) (*registry.Registry, error) {
	entries := make([]registry.Network, 0, len(networks))
	for _, n := range networks {
		feeds := make(map[string]common.Address, len(n.Feeds))
		for asset, addr := range n.Feeds {
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("network %s: feed %s: invalid address %q", n.Name, asset, addr)
			}
			feeds[asset] = common.HexToAddress(addr)
		}
		entries = append(entries, registry.Network{
			Name:    n.Name,
			RPCURL:  n.RPCURL,
			ChainID: n.ChainID,
			Feeds:   feeds,
		})
	}
	return registry.New(entries)
}

// decimalTable converts a config float table to decimals.
func decimalTable(in map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}
