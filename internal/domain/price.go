// Package domain defines the core entities of the oracle aggregator (price
// samples, deviation reports, trade recommendations) and the interfaces its
// collaborators implement. All price arithmetic uses decimal values to avoid
// binary floating-point accumulation error across assets of very different
// magnitudes.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is one normalized price observation for an asset on a single
// network. It is immutable once produced by the aggregator.
type PriceSample struct {
	Network    string          `json:"network"`
	Asset      string          `json:"asset"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
}

// PriceSet holds the samples collected for one asset during one evaluation
// round, keyed by network. It may cover only a subset of the registered
// networks when some per-network reads failed.
type PriceSet struct {
	Asset   string                 `json:"asset"`
	Samples map[string]PriceSample `json:"samples"`
}

// NewPriceSet creates an empty PriceSet for the given asset.
func NewPriceSet(asset string) PriceSet {
	return PriceSet{
		Asset:   asset,
		Samples: make(map[string]PriceSample),
	}
}

// Add inserts a sample into the set. The sample's asset must match the set's
// asset; a mismatch indicates a wiring bug and is rejected with
// ErrInvalidSample.
func (ps *PriceSet) Add(sample PriceSample) error {
	if sample.Asset != ps.Asset {
		return fmt.Errorf("%w: sample asset %q does not match set asset %q",
			ErrInvalidSample, sample.Asset, ps.Asset)
	}
	if ps.Samples == nil {
		ps.Samples = make(map[string]PriceSample)
	}
	ps.Samples[sample.Network] = sample
	return nil
}

// Size returns the number of samples in the set.
func (ps PriceSet) Size() int {
	return len(ps.Samples)
}

// Networks returns the networks present in the set in ascending order.
func (ps PriceSet) Networks() []string {
	names := make([]string, 0, len(ps.Samples))
	for n := range ps.Samples {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
