package domain

import "github.com/shopspring/decimal"

// CostEstimate maps a network to the estimated transaction cost of acting on
// it, in the same unit as the asset price. It is supplied fresh by the cost
// estimator collaborator at recommendation time and never cached by the core.
type CostEstimate map[string]decimal.Decimal

// Cost returns the estimated cost for the given network and whether an
// estimate was present. A missing entry reads as zero.
func (c CostEstimate) Cost(network string) (decimal.Decimal, bool) {
	v, ok := c[network]
	if !ok {
		return decimal.Zero, false
	}
	return v, true
}

// TradeRecommendation is one ranked buy-low/sell-high network pair. A list of
// these is produced per evaluation round, ordered by PotentialProfit
// descending, and discarded after being handed to the consumer.
type TradeRecommendation struct {
	BuyNetwork      string          `json:"buy_network"`
	SellNetwork     string          `json:"sell_network"`
	PriceDifference decimal.Decimal `json:"price_difference"`
	EstimatedCosts  CostEstimate    `json:"estimated_costs"`
	PotentialProfit decimal.Decimal `json:"potential_profit"`
}
