package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/notify"
)

// Pub/sub channels carrying round results to external consumers.
const (
	ChannelDeviations      = "deviations"
	ChannelRecommendations = "recommendations"
)

// Publisher forwards completed rounds to the external consumer boundary: the
// signal bus (which feeds the WebSocket hub and any reporting collaborators),
// the latest-report cache, and the notifier for threshold-exceeding rounds.
// Every sink is optional.
type Publisher struct {
	bus      domain.SignalBus
	cache    domain.ReportCache
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. Any of bus, cache, and notifier may be
// nil, in which case that sink is skipped.
func NewPublisher(bus domain.SignalBus, cache domain.ReportCache, notifier *notify.Notifier, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:      bus,
		cache:    cache,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "round_publisher")),
	}
}

// Run consumes round results from rounds until the channel closes or ctx is
// cancelled. Sink failures are logged and never stop the publisher.
func (p *Publisher) Run(ctx context.Context, rounds <-chan domain.RoundResult) error {
	p.logger.Info("round publisher started")
	defer p.logger.Info("round publisher stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-rounds:
			if !ok {
				return nil
			}
			p.handle(ctx, result)
		}
	}
}

func (p *Publisher) handle(ctx context.Context, result domain.RoundResult) {
	if p.cache != nil {
		if err := p.cache.SetReport(ctx, result.Report); err != nil {
			p.logger.Warn("cache report failed",
				slog.String("asset", result.Asset),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.bus != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			p.logger.Warn("marshal round result failed", slog.String("error", err.Error()))
			return
		}
		if err := p.bus.Publish(ctx, ChannelDeviations, payload); err != nil {
			p.logger.Warn("publish round result failed", slog.String("error", err.Error()))
		}
		if len(result.Recommendations) > 0 {
			if err := p.bus.Publish(ctx, ChannelRecommendations, payload); err != nil {
				p.logger.Warn("publish recommendations failed", slog.String("error", err.Error()))
			}
		}
	}

	if p.notifier != nil && result.Report.ExceedsThreshold {
		title := fmt.Sprintf("Deviation alert: %s", result.Asset)
		message := formatAlert(result)
		if err := p.notifier.Notify(ctx, "deviation", title, message); err != nil {
			p.logger.Warn("notify failed", slog.String("error", err.Error()))
		}
	}
}

// formatAlert renders a short human-readable summary of a triggered round.
func formatAlert(result domain.RoundResult) string {
	msg := fmt.Sprintf("deviation %s%% across %d networks",
		result.Report.DeviationPercent.StringFixed(2),
		result.Report.Prices.Size(),
	)
	if len(result.Recommendations) > 0 {
		best := result.Recommendations[0]
		msg += fmt.Sprintf("\nbest: buy %s / sell %s, est. profit %s",
			best.BuyNetwork, best.SellNetwork, best.PotentialProfit.StringFixed(4))
	}
	return msg
}
