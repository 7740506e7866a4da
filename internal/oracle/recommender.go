package oracle

import (
	"log/slog"
	"sort"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
)

// Recommender enumerates buy-low/sell-high network pairs from a deviation
// report and ranks them by estimated profit net of per-network transaction
// costs. The enumeration is O(n²) over the networks in the report; n is
// bounded by the registry size, so this stays unoptimized on purpose.
type Recommender struct {
	// requireCosts excludes pairs for which the estimator supplied no cost
	// entry. When false, missing entries default to zero, which makes the
	// profit figure optimistic rather than net of real execution cost.
	requireCosts bool
	logger       *slog.Logger
}

// NewRecommender creates a Recommender. requireCosts selects how pairs with
// missing cost estimates are treated: excluded entirely, or ranked with the
// missing side costed at zero.
func NewRecommender(requireCosts bool, logger *slog.Logger) *Recommender {
	return &Recommender{
		requireCosts: requireCosts,
		logger:       logger.With(slog.String("component", "recommender")),
	}
}

// Recommend produces one TradeRecommendation per unordered pair of valid
// networks in the report, sorted by PotentialProfit descending with ties
// broken by ascending (buy, sell) pair for determinism. The threshold gate is
// the monitor's responsibility: running on a non-triggered report is allowed
// and simply yields recommendations that are typically non-actionable.
func (r *Recommender) Recommend(report domain.DeviationReport, costs domain.CostEstimate) []domain.TradeRecommendation {
	networks := r.validNetworks(report)

	recs := make([]domain.TradeRecommendation, 0, len(networks)*(len(networks)-1)/2)
	for i := 0; i < len(networks); i++ {
		for j := i + 1; j < len(networks); j++ {
			// networks is sorted ascending, so on equal prices the
			// lexicographically smaller network becomes the buy side.
			buy, sell := networks[i], networks[j]
			if report.Prices.Samples[sell].Price.LessThan(report.Prices.Samples[buy].Price) {
				buy, sell = sell, buy
			}

			buyCost, buyOK := costs.Cost(buy)
			sellCost, sellOK := costs.Cost(sell)
			if r.requireCosts && (!buyOK || !sellOK) {
				r.logger.Debug("skipping pair without cost estimates",
					slog.String("buy", buy),
					slog.String("sell", sell),
				)
				continue
			}
			if !buyOK || !sellOK {
				r.logger.Debug("missing cost estimate, defaulting to zero",
					slog.String("buy", buy),
					slog.String("sell", sell),
				)
			}

			diff := report.Prices.Samples[sell].Price.Sub(report.Prices.Samples[buy].Price)
			recs = append(recs, domain.TradeRecommendation{
				BuyNetwork:      buy,
				SellNetwork:     sell,
				PriceDifference: diff,
				EstimatedCosts: domain.CostEstimate{
					buy:  buyCost,
					sell: sellCost,
				},
				PotentialProfit: diff.Sub(buyCost.Add(sellCost)),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].PotentialProfit.Equal(recs[j].PotentialProfit) {
			return recs[i].PotentialProfit.GreaterThan(recs[j].PotentialProfit)
		}
		if recs[i].BuyNetwork != recs[j].BuyNetwork {
			return recs[i].BuyNetwork < recs[j].BuyNetwork
		}
		return recs[i].SellNetwork < recs[j].SellNetwork
	})
	return recs
}

// validNetworks returns the report's networks minus the ones dropped during
// detection, in ascending order.
func (r *Recommender) validNetworks(report domain.DeviationReport) []string {
	dropped := make(map[string]bool, len(report.DroppedNetworks))
	for _, n := range report.DroppedNetworks {
		dropped[n] = true
	}
	names := make([]string, 0, report.Prices.Size())
	for _, n := range report.Prices.Networks() {
		if !dropped[n] {
			names = append(names, n)
		}
	}
	return names
}
