package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// ErrDeploymentNotFound is returned when no contract address is known for a chain.
var ErrDeploymentNotFound = errors.New("no pet contract deployment")

// DefaultAddress is the address the game contract was deployed at.
const DefaultAddress = "0x802988D2A33F3e53bc1485e4C9555528499D66D1"

// Deployment records where the contract lives on one chain.
type Deployment struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

// Registry stores contract deployments per chain slug. Built-in deployments
// apply unless overridden on disk.
type Registry struct {
	path        string
	deployments map[string]Deployment
}

func builtinDeployments() map[string]Deployment {
	return map[string]Deployment{
		chain.Sepolia:         {Chain: chain.Sepolia, Address: DefaultAddress},
		chain.WestendAssetHub: {Chain: chain.WestendAssetHub, Address: DefaultAddress},
	}
}

// NewRegistry creates a Registry backed by a JSON file. An empty path keeps
// everything in memory.
func NewRegistry(path string) *Registry {
	return &Registry{path: path, deployments: builtinDeployments()}
}

// Path returns the backing file, empty for an in-memory registry.
func (r *Registry) Path() string { return r.path }

// Load reads stored deployments from disk.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading deployments: %w", err)
	}

	var entries []Deployment
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing deployments: %w", err)
	}
	for _, e := range entries {
		r.deployments[e.Chain] = e
	}
	return nil
}

// Save writes all deployments to disk.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r.All(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Set records the contract address for chainSlug.
func (r *Registry) Set(chainSlug, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid contract address %q", address)
	}
	r.deployments[chainSlug] = Deployment{Chain: chainSlug, Address: common.HexToAddress(address).Hex()}
	return nil
}

// Get returns the contract address for chainSlug.
func (r *Registry) Get(chainSlug string) (common.Address, error) {
	d, ok := r.deployments[chainSlug]
	if !ok {
		return common.Address{}, fmt.Errorf("%w on %s", ErrDeploymentNotFound, chainSlug)
	}
	return common.HexToAddress(d.Address), nil
}

// All returns every deployment sorted by chain.
func (r *Registry) All() []Deployment {
	out := make([]Deployment, 0, len(r.deployments))
	for _, d := range r.deployments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out
}

// Remove deletes the deployment for chainSlug. A removed built-in comes back
// on the next Load.
func (r *Registry) Remove(chainSlug string) error {
	if _, ok := r.deployments[chainSlug]; !ok {
		return fmt.Errorf("%w on %s", ErrDeploymentNotFound, chainSlug)
	}
	delete(r.deployments, chainSlug)
	return nil
}
