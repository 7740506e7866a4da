// Package monitor drives the periodic evaluation loop: collect prices,
// detect deviation, and — when triggered — rank arbitrage recommendations
// against a fresh cost estimate, publishing each completed round to
// subscribers.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/oracle"
)

// State describes what the monitor loop is currently doing.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateTriggered State = "triggered"
)

// Config holds the monitor's fixed runtime parameters. The interval is set at
// configuration time; the monitor never adapts it.
type Config struct {
	Assets           []string
	Interval         time.Duration
	ThresholdPercent decimal.Decimal
}

// Monitor is the single-flight periodic scheduler. A new round starts only
// after the previous round has been recorded, so concurrent rounds can never
// race on shared provider state; a round that overruns its tick simply delays
// the next one.
type Monitor struct {
	agg    *oracle.Aggregator
	det    *oracle.Detector
	rec    *oracle.Recommender
	costs  domain.CostEstimator
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	latest    map[string]domain.RoundResult
	subs      []chan domain.RoundResult
	startedAt time.Time
}

// New creates a Monitor over the given pipeline stages and cost estimator.
func New(agg *oracle.Aggregator, det *oracle.Detector, rec *oracle.Recommender, costs domain.CostEstimator, cfg Config, logger *slog.Logger) *Monitor {
	return &Monitor{
		agg:    agg,
		det:    det,
		rec:    rec,
		costs:  costs,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "monitor")),
		state:  StateIdle,
		latest: make(map[string]domain.RoundResult, len(cfg.Assets)),
	}
}

// Run executes an initial round immediately and then one round per tick until
// ctx is cancelled. Rounds run sequentially on this goroutine, which is what
// guarantees single-flight execution. On shutdown, in-flight per-network
// reads are abandoned via context cancellation; they are pure reads with no
// side effects to roll back.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		slog.Duration("interval", m.cfg.Interval),
		slog.String("threshold_percent", m.cfg.ThresholdPercent.String()),
		slog.Any("assets", m.cfg.Assets),
	)
	defer m.logger.Info("monitor stopped")

	m.startedAtSet()
	m.evaluateAll(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.setState(StateIdle)
			m.closeSubs()
			return ctx.Err()
		case <-ticker.C:
			m.evaluateAll(ctx)
		}
	}
}

// evaluateAll runs one round per configured asset, records each result, and
// publishes it to subscribers.
func (m *Monitor) evaluateAll(ctx context.Context) {
	for _, asset := range m.cfg.Assets {
		if ctx.Err() != nil {
			return
		}
		result := m.evaluate(ctx, asset)
		m.record(result)
		m.publish(ctx, result)
	}
	m.setState(StateIdle)
}

// evaluate runs the collect → detect → recommend pipeline for one asset.
func (m *Monitor) evaluate(ctx context.Context, asset string) domain.RoundResult {
	m.setState(StatePolling)

	set := m.agg.CollectPrices(ctx, asset)
	report := m.det.Detect(set, m.cfg.ThresholdPercent)

	result := domain.RoundResult{
		ID:     uuid.NewString(),
		Asset:  asset,
		Report: report,
	}

	switch {
	case report.InsufficientData():
		m.logger.Info("insufficient data this round",
			slog.String("asset", asset),
			slog.Int("samples", set.Size()),
			slog.Int("dropped", len(report.DroppedNetworks)),
		)
	case report.ExceedsThreshold:
		m.setState(StateTriggered)
		m.logger.Info("deviation threshold exceeded",
			slog.String("asset", asset),
			slog.String("deviation_percent", report.DeviationPercent.String()),
		)

		costs, err := m.costs.Costs(ctx)
		if err != nil {
			m.logger.Warn("cost estimate unavailable, ranking with zero costs",
				slog.String("error", err.Error()),
			)
			costs = domain.CostEstimate{}
		}
		result.Recommendations = m.rec.Recommend(report, costs)
	default:
		m.logger.Debug("deviation below threshold",
			slog.String("asset", asset),
			slog.String("deviation_percent", report.DeviationPercent.String()),
		)
	}

	result.CompletedAt = time.Now().UTC()
	return result
}

// CurrentDeviation runs a fresh aggregation round for asset synchronously and
// returns its deviation report, bypassing the periodic schedule. It shares no
// mutable state with the loop, so it is safe to call while a scheduled round
// is in flight.
func (m *Monitor) CurrentDeviation(ctx context.Context, asset string) domain.DeviationReport {
	set := m.agg.CollectPrices(ctx, asset)
	return m.det.Detect(set, m.cfg.ThresholdPercent)
}

// Latest returns the most recently completed round for asset, or
// domain.ErrNoRound when none has completed yet.
func (m *Monitor) Latest(asset string) (domain.RoundResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.latest[asset]
	if !ok {
		return domain.RoundResult{}, domain.ErrNoRound
	}
	return result, nil
}

// Subscribe registers a new round-result subscriber with the given channel
// buffer. Delivery is best effort: a subscriber that falls behind misses
// rounds rather than stalling the loop. Subscriber channels are closed when
// the monitor shuts down.
func (m *Monitor) Subscribe(buf int) <-chan domain.RoundResult {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan domain.RoundResult, buf)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Status is a snapshot of the monitor's operational state.
type Status struct {
	State         State           `json:"state"`
	Assets        []string        `json:"assets"`
	Interval      string          `json:"interval"`
	Threshold     decimal.Decimal `json:"threshold_percent"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

// Status returns the current operational snapshot.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var uptime int64
	if !m.startedAt.IsZero() {
		uptime = int64(time.Since(m.startedAt).Seconds())
	}
	return Status{
		State:         m.state,
		Assets:        m.cfg.Assets,
		Interval:      m.cfg.Interval.String(),
		Threshold:     m.cfg.ThresholdPercent,
		UptimeSeconds: uptime,
	}
}

func (m *Monitor) record(result domain.RoundResult) {
	m.mu.Lock()
	m.latest[result.Asset] = result
	m.mu.Unlock()
}

func (m *Monitor) publish(ctx context.Context, result domain.RoundResult) {
	m.mu.RLock()
	subs := m.subs
	m.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- result:
		case <-ctx.Done():
			return
		default:
			m.logger.Warn("subscriber behind, dropping round result",
				slog.String("round_id", result.ID),
			)
		}
	}
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) startedAtSet() {
	m.mu.Lock()
	m.startedAt = time.Now().UTC()
	m.mu.Unlock()
}

func (m *Monitor) closeSubs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}
