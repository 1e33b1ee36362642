package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// ErrUnknownChain is returned when switching to a chain the wallet has not
// been told about.
var ErrUnknownChain = errors.New("chain not added to wallet")

type chainsFile struct {
	Active string             `json:"active"`
	Chains []chain.Descriptor `json:"chains"`
}

// ChainStore keeps the wallet's known networks and the active one. An empty
// path keeps the state in memory only.
type ChainStore struct {
	mu    sync.Mutex
	path  string
	state chainsFile
}

// NewChainStore loads the chain list at path. When nothing is stored yet the
// wallet starts with defaults, the first being active.
func NewChainStore(path string, defaults ...chain.Descriptor) (*ChainStore, error) {
	s := &ChainStore{path: path}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &s.state); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if len(s.state.Chains) == 0 {
		s.state.Chains = append([]chain.Descriptor(nil), defaults...)
		if len(defaults) > 0 {
			s.state.Active = defaults[0].ChainID
		}
	}
	return s, nil
}

// Active returns the active chain.
func (s *ChainStore) Active() (chain.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.find(s.state.Active)
	if !ok {
		return chain.Descriptor{}, ErrUnknownChain
	}
	return d, nil
}

// Known reports whether the wallet knows chainID.
func (s *ChainStore) Known(chainID string) (chain.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(chainID)
}

// List returns the known chains.
func (s *ChainStore) List() []chain.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chain.Descriptor(nil), s.state.Chains...)
}

// SetActive switches the active chain.
func (s *ChainStore) SetActive(chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.find(chainID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}
	s.state.Active = d.ChainID
	return s.save()
}

// Add registers a chain, replacing an existing entry with the same id.
func (s *ChainStore) Add(d chain.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.state.Chains {
		if c.Matches(d.ChainID) {
			s.state.Chains[i] = d
			return s.save()
		}
	}
	s.state.Chains = append(s.state.Chains, d)
	return s.save()
}

func (s *ChainStore) find(chainID string) (chain.Descriptor, bool) {
	for _, c := range s.state.Chains {
		if c.Matches(chainID) {
			return c, true
		}
	}
	return chain.Descriptor{}, false
}

func (s *ChainStore) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
