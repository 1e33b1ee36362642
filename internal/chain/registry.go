package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Slugs of the built-in chains.
const (
	Ethereum        = "ethereum"
	Sepolia         = "sepolia"
	WestendAssetHub = "westend-asset-hub"
)

// Registry looks up chain descriptors by slug or chain id.
type Registry struct {
	byName map[string]Descriptor
	byID   map[string]string // canonical hex id -> slug
}

// NewRegistry returns the registry of built-in chains.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Descriptor),
		byID:   make(map[string]string),
	}
	for name, d := range builtinChains() {
		r.byName[name] = d
		r.byID[d.ChainID] = name
	}
	return r
}

// Names returns the registered slugs, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// GetByName finds a chain by slug (e.g. "sepolia").
func (r *Registry) GetByName(name string) (Descriptor, error) {
	d, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Descriptor{}, ErrChainNotFound
	}
	return d, nil
}

// GetByChainID finds a chain by hex or decimal chain id.
func (r *Registry) GetByChainID(id string) (Descriptor, string, error) {
	n, err := ParseChainID(id)
	if err != nil {
		return Descriptor{}, "", ErrChainNotFound
	}
	name, ok := r.byID[HexChainID(n)]
	if !ok {
		return Descriptor{}, "", ErrChainNotFound
	}
	return r.byName[name], name, nil
}

// --- chain data ---

func builtinChains() map[string]Descriptor {
	return map[string]Descriptor{
		Ethereum: {
			ChainID:           "0x1",
			ChainName:         "Ethereum Mainnet",
			NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			RPCURLs:           []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			BlockExplorerURLs: []string{"https://etherscan.io"},
		},
		// 11155111
		Sepolia: {
			ChainID:           "0xaa36a7",
			ChainName:         "Sepolia",
			NativeCurrency:    Currency{Name: "Sepolia ETH", Symbol: "ETH", Decimals: 18},
			RPCURLs:           []string{"https://rpc.sepolia.org", "https://ethereum-sepolia-rpc.publicnode.com"},
			BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
		},
		// 420420421
		WestendAssetHub: {
			ChainID:           "0x190f1b45",
			ChainName:         "Westend Asset Hub",
			NativeCurrency:    Currency{Name: "Westend", Symbol: "WND", Decimals: 18},
			RPCURLs:           []string{"https://westend-asset-hub-eth-rpc.polkadot.io"},
			BlockExplorerURLs: []string{"https://blockscout-asset-hub.parity-chains-scw.parity.io"},
		},
	}
}
