package domain

import "context"

// FeedReader performs one read-only price query for a (network, asset) pair
// and normalizes the result to a common decimal scale. Implementations must
// not retry internally; retry policy belongs to the aggregator layer.
type FeedReader interface {
	ReadPrice(ctx context.Context, network, asset string) (PriceSample, error)
}

// CostEstimator is the external collaborator that supplies per-network
// transaction costs at recommendation time.
type CostEstimator interface {
	Costs(ctx context.Context) (CostEstimate, error)
}

// ReportCache stores the latest deviation report per asset. Latest value
// only; the core keeps no history.
type ReportCache interface {
	// SetReport stores report as the current report for report.Asset.
	SetReport(ctx context.Context, report DeviationReport) error
	// GetReport returns the current report for asset, or ErrNotFound.
	GetReport(ctx context.Context, asset string) (DeviationReport, error)
}

// SignalBus is a lightweight publish/subscribe boundary used to hand round
// results to reporting and alerting collaborators.
type SignalBus interface {
	// Publish sends a raw payload to the named channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads for the named channel. The
	// subscription ends, and the returned channel is closed, when ctx is
	// cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
