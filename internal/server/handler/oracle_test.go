package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/monitor"
	"github.com/alanyoungcy/oraclewatch/internal/oracle"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

type stubReader struct {
	prices map[string]decimal.Decimal
}

func (s *stubReader) ReadPrice(ctx context.Context, network, asset string) (domain.PriceSample, error) {
	price, ok := s.prices[network]
	if !ok {
		return domain.PriceSample{}, domain.ErrSourceUnavailable
	}
	return domain.PriceSample{
		Network:    network,
		Asset:      asset,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}, nil
}

type stubEstimator struct{}

func (stubEstimator) Costs(ctx context.Context) (domain.CostEstimate, error) {
	return domain.CostEstimate{}, nil
}

func newFixture(t *testing.T, prices map[string]decimal.Decimal) (*OracleHandler, *monitor.Monitor) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg, err := registry.New([]registry.Network{
		{
			Name:    "ethereum",
			RPCURL:  "http://ethereum.invalid",
			ChainID: 1,
			Feeds: map[string]common.Address{
				"ETH/USD": common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"),
			},
		},
		{Name: "polygon", RPCURL: "http://polygon.invalid", ChainID: 137},
	})
	require.NoError(t, err)

	reader := &stubReader{prices: prices}
	agg := oracle.NewAggregator(reader, reg, logger)
	det := oracle.NewDetector(logger)
	rec := oracle.NewRecommender(false, logger)
	m := monitor.New(agg, det, rec, stubEstimator{}, monitor.Config{
		Assets:           []string{"ETH/USD"},
		Interval:         time.Minute,
		ThresholdPercent: decimal.NewFromInt(1),
	}, logger)

	return NewOracleHandler(m, reg, logger), m
}

func newRouter(h *OracleHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/networks", h.ListNetworks)
	mux.HandleFunc("GET /api/status", h.GetStatus)
	mux.HandleFunc("GET /api/deviation/{asset}", h.GetDeviation)
	mux.HandleFunc("GET /api/deviation/{asset}/latest", h.GetLatestRound)
	mux.HandleFunc("GET /api/recommendations/{asset}", h.GetRecommendations)
	return mux
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// runOneRound waits for the monitor's initial round and then stops it.
func runOneRound(t *testing.T, m *monitor.Monitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rounds := m.Subscribe(1)
	go func() { _ = m.Run(ctx) }()
	select {
	case <-rounds:
	case <-time.After(2 * time.Second):
		t.Fatal("no round completed")
	}
}

func TestListNetworks(t *testing.T) {
	h, _ := newFixture(t, nil)
	rr := get(t, newRouter(h), "/api/networks")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var body struct {
		Networks []struct {
			Name    string   `json:"name"`
			ChainID int64    `json:"chain_id"`
			Assets  []string `json:"assets"`
		} `json:"networks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Networks, 2)
	assert.Equal(t, "ethereum", body.Networks[0].Name)
	assert.Equal(t, int64(1), body.Networks[0].ChainID)
	assert.Equal(t, []string{"ETH/USD"}, body.Networks[0].Assets)
	assert.Empty(t, body.Networks[1].Assets)
}

func TestGetStatus(t *testing.T) {
	h, _ := newFixture(t, nil)
	rr := get(t, newRouter(h), "/api/status")

	require.Equal(t, http.StatusOK, rr.Code)
	var status monitor.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, monitor.StateIdle, status.State)
	assert.Equal(t, []string{"ETH/USD"}, status.Assets)
}

func TestGetDeviation(t *testing.T) {
	h, _ := newFixture(t, map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(100),
		"polygon":  decimal.NewFromInt(103),
	})
	rr := get(t, newRouter(h), "/api/deviation/ETH%2FUSD")

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Report           domain.DeviationReport `json:"report"`
		InsufficientData bool                   `json:"insufficient_data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.InsufficientData)
	assert.True(t, body.Report.ExceedsThreshold)
	assert.True(t, body.Report.DeviationPercent.Equal(decimal.NewFromInt(3)))
}

func TestGetDeviationInsufficientData(t *testing.T) {
	// Only one network answers.
	h, _ := newFixture(t, map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(100),
	})
	rr := get(t, newRouter(h), "/api/deviation/ETH%2FUSD")

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		InsufficientData bool `json:"insufficient_data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.InsufficientData)
}

func TestGetLatestRoundNotFound(t *testing.T) {
	h, _ := newFixture(t, nil)
	rr := get(t, newRouter(h), "/api/deviation/ETH%2FUSD/latest")

	require.Equal(t, http.StatusNotFound, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "no completed round")
}

func TestGetLatestRound(t *testing.T) {
	h, m := newFixture(t, map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(100),
		"polygon":  decimal.NewFromInt(103),
	})
	runOneRound(t, m)

	rr := get(t, newRouter(h), "/api/deviation/ETH%2FUSD/latest")
	require.Equal(t, http.StatusOK, rr.Code)

	var result domain.RoundResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "ETH/USD", result.Asset)
	assert.True(t, result.Report.ExceedsThreshold)
}

func TestGetRecommendations(t *testing.T) {
	h, m := newFixture(t, map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(100),
		"polygon":  decimal.NewFromInt(103),
	})
	runOneRound(t, m)

	rr := get(t, newRouter(h), "/api/recommendations/ETH%2FUSD")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		RoundID         string                       `json:"round_id"`
		Asset           string                       `json:"asset"`
		Recommendations []domain.TradeRecommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RoundID)
	require.Len(t, body.Recommendations, 1)
	assert.Equal(t, "ethereum", body.Recommendations[0].BuyNetwork)
	assert.Equal(t, "polygon", body.Recommendations[0].SellNetwork)
}

func TestGetRecommendationsEmptyListNotNull(t *testing.T) {
	// Below threshold: the round completes with no recommendations, and
	// the JSON carries an empty array rather than null.
	h, m := newFixture(t, map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(100),
		"polygon":  decimal.NewFromFloat(100.5),
	})
	runOneRound(t, m)

	rr := get(t, newRouter(h), "/api/recommendations/ETH%2FUSD")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recommendations":[]`)
}

func TestGetRecommendationsNotFound(t *testing.T) {
	h, _ := newFixture(t, nil)
	rr := get(t, newRouter(h), "/api/recommendations/BTC%2FUSD")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
