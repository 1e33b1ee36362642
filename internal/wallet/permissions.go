package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Permissions records which accounts each origin may see. It is the wallet's
// equivalent of a dapp's "connected sites" list. An empty path keeps the
// list in memory only.
type Permissions struct {
	mu   sync.Mutex
	path string
	mem  map[string][]common.Address
}

// NewPermissions returns a permission list persisted at path.
func NewPermissions(path string) *Permissions {
	return &Permissions{path: path, mem: make(map[string][]common.Address)}
}

// Authorize grants origin access to addrs, replacing any earlier grant.
func (p *Permissions) Authorize(origin string, addrs []common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.load()
	m[origin] = append([]common.Address(nil), addrs...)
	return p.save(m)
}

// Authorized returns the accounts origin may see, or nil.
func (p *Permissions) Authorized(origin string) []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address(nil), p.load()[origin]...)
}

// Revoke forgets origin. Unknown origins are a no-op.
func (p *Permissions) Revoke(origin string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.load()
	if _, ok := m[origin]; !ok {
		return nil
	}
	delete(m, origin)
	return p.save(m)
}

// RevokeAddress drops addr from every origin, e.g. after the wallet is removed.
func (p *Permissions) RevokeAddress(addr common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.load()
	for origin, addrs := range m {
		kept := addrs[:0]
		for _, a := range addrs {
			if a != addr {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(m, origin)
		} else {
			m[origin] = kept
		}
	}
	return p.save(m)
}

// Origins lists origins with a grant, sorted.
func (p *Permissions) Origins() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.load()
	out := make([]string, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Clear removes every grant.
func (p *Permissions) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mem = make(map[string][]common.Address)
	if p.path == "" {
		return nil
	}
	err := os.Remove(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load returns the grant map. Returns an empty map (never nil) on any error.
func (p *Permissions) load() map[string][]common.Address {
	if p.path == "" {
		return p.mem
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return make(map[string][]common.Address)
	}
	var m map[string][]common.Address
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string][]common.Address)
	}
	return m
}

func (p *Permissions) save(m map[string][]common.Address) error {
	if p.path == "" {
		p.mem = m
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}
