package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeviationReport is the outcome of comparing the samples of one PriceSet.
// It is derived, read-only data: recomputed each round and never mutated.
type DeviationReport struct {
	Asset            string          `json:"asset"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
	Prices           PriceSet        `json:"prices"`
	ExceedsThreshold bool            `json:"exceeds_threshold"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`

	// DroppedNetworks lists networks whose samples were discarded before
	// comparison (non-positive price). Surfaced so callers can warn on
	// misbehaving feeds without treating the round as failed.
	DroppedNetworks []string `json:"dropped_networks,omitempty"`
}

// InsufficientData reports whether fewer than two valid samples survived,
// i.e. no cross-network comparison was possible this round.
func (r DeviationReport) InsufficientData() bool {
	return r.Prices.Size()-len(r.DroppedNetworks) < 2
}

// RoundResult is the envelope published to consumers each time a monitoring
// round completes. Recommendations is empty when the round did not exceed the
// deviation threshold.
type RoundResult struct {
	ID              string                `json:"id"`
	Asset           string                `json:"asset"`
	Report          DeviationReport       `json:"report"`
	Recommendations []TradeRecommendation `json:"recommendations,omitempty"`
	CompletedAt     time.Time             `json:"completed_at"`
}
