package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/notify"
)

type memoryBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newMemoryBus() *memoryBus {
	return &memoryBus{messages: make(map[string][][]byte)}
}

func (b *memoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memoryBus) published(channel string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[channel]
}

type memoryCache struct {
	mu      sync.Mutex
	reports map[string]domain.DeviationReport
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[string]domain.DeviationReport)}
}

func (c *memoryCache) SetReport(ctx context.Context, report domain.DeviationReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[report.Asset] = report
	return nil
}

func (c *memoryCache) GetReport(ctx context.Context, asset string) (domain.DeviationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.reports[asset]
	if !ok {
		return domain.DeviationReport{}, domain.ErrNotFound
	}
	return report, nil
}

type recordingSender struct {
	mu       sync.Mutex
	titles   []string
	messages []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

func triggeredRound(t *testing.T) domain.RoundResult {
	t.Helper()
	set := domain.NewPriceSet("ETH/USD")
	for network, price := range map[string]int64{"ethereum": 100, "polygon": 103} {
		require.NoError(t, set.Add(domain.PriceSample{
			Network:    network,
			Asset:      "ETH/USD",
			Price:      decimal.NewFromInt(price),
			ObservedAt: time.Unix(1700000000, 0).UTC(),
		}))
	}
	return domain.RoundResult{
		ID:    "round-1",
		Asset: "ETH/USD",
		Report: domain.DeviationReport{
			Asset:            "ETH/USD",
			DeviationPercent: decimal.NewFromInt(3),
			Prices:           set,
			ExceedsThreshold: true,
			EvaluatedAt:      time.Unix(1700000000, 0).UTC(),
		},
		Recommendations: []domain.TradeRecommendation{{
			BuyNetwork:      "ethereum",
			SellNetwork:     "polygon",
			PriceDifference: decimal.NewFromInt(3),
			PotentialProfit: decimal.NewFromInt(3),
		}},
		CompletedAt: time.Unix(1700000001, 0).UTC(),
	}
}

func runPublisher(t *testing.T, pub *Publisher, results ...domain.RoundResult) {
	t.Helper()
	rounds := make(chan domain.RoundResult, len(results))
	for _, r := range results {
		rounds <- r
	}
	close(rounds)
	// A closed channel drains and returns nil.
	require.NoError(t, pub.Run(context.Background(), rounds))
}

func TestPublisherFansOutTriggeredRound(t *testing.T) {
	bus := newMemoryBus()
	cache := newMemoryCache()
	sender := &recordingSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	pub := NewPublisher(bus, cache, notifier, testLogger())

	result := triggeredRound(t)
	runPublisher(t, pub, result)

	// Cache holds the latest report.
	got, err := cache.GetReport(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.True(t, got.ExceedsThreshold)

	// Both channels carry the round, and the payload round-trips.
	deviations := bus.published(ChannelDeviations)
	require.Len(t, deviations, 1)
	var decoded domain.RoundResult
	require.NoError(t, json.Unmarshal(deviations[0], &decoded))
	assert.Equal(t, "round-1", decoded.ID)
	assert.True(t, decoded.Report.DeviationPercent.Equal(decimal.NewFromInt(3)))
	require.Len(t, bus.published(ChannelRecommendations), 1)

	// The triggered round produced an alert.
	titles := sender.sent()
	require.Len(t, titles, 1)
	assert.Contains(t, titles[0], "ETH/USD")
}

func TestPublisherQuietRoundSkipsRecommendationsAndAlert(t *testing.T) {
	bus := newMemoryBus()
	sender := &recordingSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	pub := NewPublisher(bus, nil, notifier, testLogger())

	result := triggeredRound(t)
	result.Report.ExceedsThreshold = false
	result.Recommendations = nil
	runPublisher(t, pub, result)

	assert.Len(t, bus.published(ChannelDeviations), 1)
	assert.Empty(t, bus.published(ChannelRecommendations))
	assert.Empty(t, sender.sent())
}

func TestPublisherNilSinks(t *testing.T) {
	pub := NewPublisher(nil, nil, nil, testLogger())
	runPublisher(t, pub, triggeredRound(t))
}

func TestPublisherStopsOnContextCancel(t *testing.T) {
	pub := NewPublisher(nil, nil, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Run(ctx, make(chan domain.RoundResult))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatAlert(t *testing.T) {
	msg := formatAlert(triggeredRound(t))
	assert.Contains(t, msg, "3.00%")
	assert.Contains(t, msg, "2 networks")
	assert.Contains(t, msg, "buy ethereum / sell polygon")
}
