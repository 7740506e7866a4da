// Package registry holds the static mapping from network identifier to
// connection parameters and per-asset price-feed addresses. A Registry is
// built once at startup and immutable afterwards, so it is safe for
// concurrent reads without synchronization.
package registry

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
)

// Network describes one blockchain execution environment: its JSON-RPC
// endpoint and the feed contract address for each asset it serves.
type Network struct {
	Name    string
	RPCURL  string
	ChainID int64
	Feeds   map[string]common.Address // asset -> aggregator contract
}

// Registry is the immutable endpoint registry.
type Registry struct {
	networks map[string]Network
	names    []string // sorted network names
}

// New builds a Registry from the given networks. An empty registry or a
// duplicate network name is a configuration error, fatal at startup.
func New(networks []Network) (*Registry, error) {
	if len(networks) == 0 {
		return nil, fmt.Errorf("registry: no networks configured")
	}

	byName := make(map[string]Network, len(networks))
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		if n.Name == "" {
			return nil, fmt.Errorf("registry: network with empty name")
		}
		if n.RPCURL == "" {
			return nil, fmt.Errorf("registry: network %q has no rpc_url", n.Name)
		}
		if _, exists := byName[n.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate network %q", n.Name)
		}
		byName[n.Name] = n
		names = append(names, n.Name)
	}
	sort.Strings(names)

	return &Registry{networks: byName, names: names}, nil
}

// Networks returns all registered network names in ascending order.
func (r *Registry) Networks() []string {
	return r.names
}

// Size returns the number of registered networks.
func (r *Registry) Size() int {
	return len(r.networks)
}

// Network returns the connection parameters for the named network.
func (r *Registry) Network(name string) (Network, bool) {
	n, ok := r.networks[name]
	return n, ok
}

// Feed resolves the feed contract address for a (network, asset) pair. It
// returns domain.ErrFeedNotFound when either side of the pair is unknown.
func (r *Registry) Feed(network, asset string) (common.Address, error) {
	n, ok := r.networks[network]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unknown network %q", domain.ErrFeedNotFound, network)
	}
	addr, ok := n.Feeds[asset]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: network %q has no feed for asset %q", domain.ErrFeedNotFound, network, asset)
	}
	return addr, nil
}
