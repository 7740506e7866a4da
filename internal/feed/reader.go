// Package feed implements the price feed reader: one read-only contract call
// against a network's aggregator feed, normalized to a common decimal scale.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

// aggregatorABI covers the two read-only methods of a Chainlink-compatible
// aggregator feed that the reader needs.
const aggregatorABI = `[
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],
		"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[
		{"internalType":"uint8","name":"","type":"uint8"}],
		"stateMutability":"view","type":"function"}
]`

// defaultCallTimeout bounds a single contract read when no timeout was
// configured.
const defaultCallTimeout = 5 * time.Second

// ChainlinkReader implements domain.FeedReader against Chainlink-compatible
// aggregator contracts over JSON-RPC. Per-network client handles are dialed
// lazily and reused across rounds; ethclient connections are safe for
// concurrent use by independent calls.
type ChainlinkReader struct {
	registry *registry.Registry
	timeout  time.Duration
	abi      abi.ABI
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewChainlinkReader creates a reader over the given registry. timeout bounds
// each contract call; zero means the default of a few seconds.
func NewChainlinkReader(reg *registry.Registry, timeout time.Duration, logger *slog.Logger) (*ChainlinkReader, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("feed: parse aggregator abi: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &ChainlinkReader{
		registry: reg,
		timeout:  timeout,
		abi:      parsed,
		logger:   logger.With(slog.String("component", "feed_reader")),
		clients:  make(map[string]*ethclient.Client),
	}, nil
}

// ReadPrice performs one read-only query of the (network, asset) feed and
// normalizes the raw answer as price = answer / 10^decimals. It returns
// domain.ErrFeedNotFound when the pair is not registered and
// domain.ErrSourceUnavailable on connection failure, timeout, or a malformed
// response. It never retries; retry policy belongs to the aggregator.
func (r *ChainlinkReader) ReadPrice(ctx context.Context, network, asset string) (domain.PriceSample, error) {
	addr, err := r.registry.Feed(network, asset)
	if err != nil {
		return domain.PriceSample{}, err
	}

	client, err := r.client(ctx, network)
	if err != nil {
		return domain.PriceSample{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	round, err := r.call(ctx, client, addr, "latestRoundData")
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("%w: %s latestRoundData: %v", domain.ErrSourceUnavailable, network, err)
	}
	if len(round) != 5 {
		return domain.PriceSample{}, fmt.Errorf("%w: %s latestRoundData returned %d values", domain.ErrSourceUnavailable, network, len(round))
	}
	answer, ok := round[1].(*big.Int)
	if !ok || answer == nil {
		return domain.PriceSample{}, fmt.Errorf("%w: %s latestRoundData answer is not an integer", domain.ErrSourceUnavailable, network)
	}
	updatedAt, ok := round[3].(*big.Int)
	if !ok || updatedAt == nil {
		return domain.PriceSample{}, fmt.Errorf("%w: %s latestRoundData updatedAt is not an integer", domain.ErrSourceUnavailable, network)
	}

	dec, err := r.call(ctx, client, addr, "decimals")
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("%w: %s decimals: %v", domain.ErrSourceUnavailable, network, err)
	}
	if len(dec) != 1 {
		return domain.PriceSample{}, fmt.Errorf("%w: %s decimals returned %d values", domain.ErrSourceUnavailable, network, len(dec))
	}
	scale, ok := dec[0].(uint8)
	if !ok {
		return domain.PriceSample{}, fmt.Errorf("%w: %s decimals is not uint8", domain.ErrSourceUnavailable, network)
	}

	sample := domain.PriceSample{
		Network:    network,
		Asset:      asset,
		Price:      normalize(answer, scale),
		ObservedAt: time.Unix(updatedAt.Int64(), 0).UTC(),
	}

	r.logger.Debug("price read",
		slog.String("network", network),
		slog.String("asset", asset),
		slog.String("price", sample.Price.String()),
	)
	return sample, nil
}

// Close releases all dialed network connections.
func (r *ChainlinkReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		c.Close()
		delete(r.clients, name)
	}
}

// call packs method, executes an eth_call against addr, and unpacks the
// returned values.
func (r *ChainlinkReader) call(ctx context.Context, client *ethclient.Client, addr common.Address, method string) ([]interface{}, error) {
	input, err := r.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	return r.abi.Unpack(method, out)
}

// client returns the cached ethclient for network, dialing it on first use.
func (r *ChainlinkReader) client(ctx context.Context, network string) (*ethclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[network]; ok {
		return c, nil
	}

	n, ok := r.registry.Network(network)
	if !ok {
		return nil, fmt.Errorf("%w: unknown network %q", domain.ErrFeedNotFound, network)
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c, err := ethclient.DialContext(dialCtx, n.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrSourceUnavailable, network, err)
	}
	r.clients[network] = c
	return c, nil
}

// normalize converts a raw integer feed answer and its decimal-scale exponent
// to a decimal price: answer / 10^scale.
func normalize(answer *big.Int, scale uint8) decimal.Decimal {
	return decimal.NewFromBigInt(answer, -int32(scale))
}

// Compile-time interface check.
var _ domain.FeedReader = (*ChainlinkReader)(nil)
