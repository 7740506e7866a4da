package feed

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReader(t *testing.T) *ChainlinkReader {
	t.Helper()
	reg, err := registry.New([]registry.Network{{
		Name:   "ethereum",
		RPCURL: "http://ethereum.invalid",
		Feeds: map[string]common.Address{
			"ETH/USD": common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"),
		},
	}})
	require.NoError(t, err)

	reader, err := NewChainlinkReader(reg, time.Second, testLogger())
	require.NoError(t, err)
	return reader
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		answer *big.Int
		scale  uint8
		want   string
	}{
		{"eight decimals", big.NewInt(312045000000), 8, "3120.45"},
		{"eighteen decimals", must18(), 18, "1.5"},
		{"zero decimals", big.NewInt(42), 0, "42"},
		{"sub-unit price", big.NewInt(950000), 8, "0.0095"},
		{"negative answer", big.NewInt(-100000000), 8, "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.answer, tt.scale)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
		})
	}
}

func must18() *big.Int {
	// 1.5 scaled to 18 decimals
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	return v
}

func TestReadPriceUnknownPair(t *testing.T) {
	reader := testReader(t)
	defer reader.Close()

	// Registry resolution fails before any dial, so no network IO happens.
	_, err := reader.ReadPrice(context.Background(), "optimism", "ETH/USD")
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)

	_, err = reader.ReadPrice(context.Background(), "ethereum", "BTC/USD")
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)
}

func TestNewChainlinkReaderDefaultsTimeout(t *testing.T) {
	reg, err := registry.New([]registry.Network{{Name: "ethereum", RPCURL: "http://ethereum.invalid"}})
	require.NoError(t, err)

	reader, err := NewChainlinkReader(reg, 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, defaultCallTimeout, reader.timeout)
}

func TestAggregatorABIParses(t *testing.T) {
	reader := testReader(t)

	_, ok := reader.abi.Methods["latestRoundData"]
	assert.True(t, ok)
	_, ok = reader.abi.Methods["decimals"]
	assert.True(t, ok)
}
