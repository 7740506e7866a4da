package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
)

var ethUSDFeed = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")

func twoNetworks() []Network {
	return []Network{
		{
			Name:   "ethereum",
			RPCURL: "https://eth.example.invalid",
			Feeds:  map[string]common.Address{"ETH/USD": ethUSDFeed},
		},
		{
			Name:   "polygon",
			RPCURL: "https://polygon.example.invalid",
			Feeds:  map[string]common.Address{},
		},
	}
}

func TestNew(t *testing.T) {
	reg, err := New(twoNetworks())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Size())
	assert.Equal(t, []string{"ethereum", "polygon"}, reg.Networks())
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		networks []Network
	}{
		{"empty", nil},
		{"empty name", []Network{{Name: "", RPCURL: "https://x.invalid"}}},
		{"missing rpc url", []Network{{Name: "ethereum"}}},
		{"duplicate name", []Network{
			{Name: "ethereum", RPCURL: "https://a.invalid"},
			{Name: "ethereum", RPCURL: "https://b.invalid"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.networks)
			assert.Error(t, err)
		})
	}
}

func TestNetworksSorted(t *testing.T) {
	reg, err := New([]Network{
		{Name: "polygon", RPCURL: "https://p.invalid"},
		{Name: "arbitrum", RPCURL: "https://a.invalid"},
		{Name: "ethereum", RPCURL: "https://e.invalid"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrum", "ethereum", "polygon"}, reg.Networks())
}

func TestFeed(t *testing.T) {
	reg, err := New(twoNetworks())
	require.NoError(t, err)

	addr, err := reg.Feed("ethereum", "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, ethUSDFeed, addr)

	_, err = reg.Feed("ethereum", "BTC/USD")
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)

	_, err = reg.Feed("optimism", "ETH/USD")
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)

	// polygon exists but serves no feeds
	_, err = reg.Feed("polygon", "ETH/USD")
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)
}

func TestNetworkLookup(t *testing.T) {
	reg, err := New(twoNetworks())
	require.NoError(t, err)

	n, ok := reg.Network("ethereum")
	require.True(t, ok)
	assert.Equal(t, "https://eth.example.invalid", n.RPCURL)

	_, ok = reg.Network("optimism")
	assert.False(t, ok)
}
