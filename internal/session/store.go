// Package session holds the wallet connection state the rest of the client
// reads from.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/connector"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

// ErrNoProvider is returned when neither a wallet nor a fallback RPC is available.
var ErrNoProvider = errors.New("no provider available")

// State is the connection state. IsConnected implies Address and Signer are set.
type State struct {
	Address      common.Address
	Provider     chain.Backend
	Signer       *connector.Signer
	IsConnected  bool
	IsConnecting bool
	Err          error
}

// FallbackDialer connects to a public RPC of the target chain.
type FallbackDialer func(ctx context.Context) (chain.Backend, error)

// Option configures a Store.
type Option func(*Store)

// WithFallback sets how the read-only provider is dialed.
func WithFallback(dial FallbackDialer) Option {
	return func(s *Store) { s.dialFallback = dial }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store owns the connection state. It is safe for concurrent use.
type Store struct {
	conn         *connector.Connector
	deriver      *contract.Deriver
	dialFallback FallbackDialer
	log          *zap.Logger

	mu       sync.Mutex
	state    State
	fallback chain.Backend
	subs     map[int]func(State)
	nextSub  int
}

// New returns an empty store.
func New(conn *connector.Connector, deriver *contract.Deriver, opts ...Option) *Store {
	s := &Store{conn: conn, deriver: deriver, subs: make(map[int]func(State))}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("session")
	return s
}

// Snapshot returns a copy of the state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for state changes. fn runs outside the lock on the
// goroutine that changed the state.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Init dials the fallback provider and, when the wallet has already
// authorized us, connects without prompting.
func (s *Store) Init(ctx context.Context) error {
	if err := s.ensureFallback(ctx); err != nil {
		s.log.Warn("fallback rpc unavailable", zap.Error(err))
	}
	if !s.conn.IsWalletConnected(ctx) {
		return nil
	}
	s.log.Debug("wallet already authorized, connecting")
	return s.Connect(ctx)
}

// Connect runs the wallet connect flow. A call made while another is in
// flight returns immediately. On failure Err is set and any previous
// connection is kept.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IsConnecting {
		s.mu.Unlock()
		return nil
	}
	s.state.IsConnecting = true
	s.state.Err = nil
	notify := s.notifierLocked()
	s.mu.Unlock()
	notify()

	conn, err := s.conn.Connect(ctx)

	s.mu.Lock()
	s.state.IsConnecting = false
	var stale chain.Backend
	if err != nil {
		s.state.Err = err
	} else {
		if s.state.Provider != conn.Provider {
			stale = s.state.Provider
		}
		s.state.Address = conn.Address
		s.state.Provider = conn.Provider
		s.state.Signer = conn.Signer
		s.state.IsConnected = true
	}
	notify = s.notifierLocked()
	s.mu.Unlock()
	notify()

	closeBackend(stale)
	if err != nil {
		s.log.Info("connect failed", zap.Error(err))
		return err
	}
	s.log.Info("wallet connected", zap.String("address", conn.Address.Hex()))
	return nil
}

// ReadProvider returns the wallet provider when connected, the fallback
// otherwise. It may be nil before Init.
func (s *Store) ReadProvider() chain.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readProviderLocked()
}

func (s *Store) readProviderLocked() chain.Backend {
	if s.state.IsConnected && s.state.Provider != nil {
		return s.state.Provider
	}
	return s.fallback
}

// Facade returns the contract handles for the current state.
func (s *Store) Facade() *contract.Facade {
	s.mu.Lock()
	provider := s.readProviderLocked()
	st := s.state
	s.mu.Unlock()

	var signer contract.TxSigner
	if st.Signer != nil {
		signer = st.Signer
	}
	return s.deriver.Derive(provider, signer, st.IsConnected)
}

// Binding returns what the pet synchronizer reads through.
func (s *Store) Binding() pets.Binding {
	st := s.Snapshot()
	return pets.Binding{Facade: s.Facade(), Owner: st.Address, Connected: st.IsConnected}
}

// NetworkStatus describes the chain the read provider is on.
type NetworkStatus struct {
	ChainID   *big.Int
	Target    chain.Descriptor
	Matches   bool
	ViaWallet bool
}

// NetworkStatus asks the read provider for its chain id.
func (s *Store) NetworkStatus(ctx context.Context) (NetworkStatus, error) {
	s.mu.Lock()
	provider := s.readProviderLocked()
	viaWallet := s.state.IsConnected
	s.mu.Unlock()

	target := s.conn.Target()
	st := NetworkStatus{Target: target, ViaWallet: viaWallet}
	if provider == nil {
		return st, ErrNoProvider
	}
	id, err := provider.ChainID(ctx)
	if err != nil {
		return st, fmt.Errorf("reading chain id: %w", err)
	}
	st.ChainID = id
	st.Matches = id.Cmp(target.ID()) == 0
	return st, nil
}

// CheckChain reports connector.ErrChainMismatch when the connected wallet
// has left the target network. It is a no-op while disconnected, since
// reads then go through the fallback provider on the target.
func (s *Store) CheckChain(ctx context.Context) error {
	if !s.Snapshot().IsConnected {
		return nil
	}
	return s.conn.CheckChain(ctx)
}

// Close releases the providers.
func (s *Store) Close() {
	s.mu.Lock()
	fallback, provider := s.fallback, s.state.Provider
	s.fallback = nil
	s.subs = make(map[int]func(State))
	s.mu.Unlock()

	closeBackend(fallback)
	if provider != fallback {
		closeBackend(provider)
	}
}

func (s *Store) ensureFallback(ctx context.Context) error {
	if s.dialFallback == nil {
		return nil
	}
	s.mu.Lock()
	have := s.fallback != nil
	s.mu.Unlock()
	if have {
		return nil
	}

	b, err := s.dialFallback(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.fallback == nil {
		s.fallback, b = b, nil
	}
	s.mu.Unlock()
	closeBackend(b)
	return nil
}

func (s *Store) notifierLocked() func() {
	if len(s.subs) == 0 {
		return func() {}
	}
	st := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}
}

func closeBackend(b chain.Backend) {
	if c, ok := b.(interface{ Close() }); ok && b != nil {
		c.Close()
	}
}
