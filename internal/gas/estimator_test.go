package gas

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEstimatorCosts(t *testing.T) {
	est := NewStaticEstimator(map[string]decimal.Decimal{
		"ethereum": decimal.NewFromFloat(4.2),
		"polygon":  decimal.NewFromFloat(0.01),
	})

	costs, err := est.Costs(context.Background())
	require.NoError(t, err)
	require.Len(t, costs, 2)

	got, ok := costs.Cost("ethereum")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromFloat(4.2)))

	_, ok = costs.Cost("optimism")
	assert.False(t, ok)
}

func TestStaticEstimatorReturnsCopies(t *testing.T) {
	est := NewStaticEstimator(map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(1),
	})

	first, err := est.Costs(context.Background())
	require.NoError(t, err)
	first["ethereum"] = decimal.NewFromInt(999)
	first["injected"] = decimal.NewFromInt(1)

	second, err := est.Costs(context.Background())
	require.NoError(t, err)
	got, ok := second.Cost("ethereum")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(1)))
	_, ok = second.Cost("injected")
	assert.False(t, ok)
}

func TestStaticEstimatorEmpty(t *testing.T) {
	est := NewStaticEstimator(nil)
	costs, err := est.Costs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, costs)
}

func TestChainCostFormula(t *testing.T) {
	// 25 gwei gas price, 150k gas, native token at 3000 USD:
	// 25e9 * 150000 / 1e18 * 3000 = 11.25 USD
	gasPrice := decimal.New(25, 9)
	gasUnits := decimal.NewFromInt(150000)
	native := decimal.NewFromInt(3000)

	cost := gasPrice.Mul(gasUnits).Div(weiPerEther).Mul(native)
	assert.True(t, cost.Equal(decimal.NewFromFloat(11.25)), "got %s", cost)
}
