// Package connector negotiates a session with an injected wallet: account
// access, target chain selection and a wallet-backed provider and signer.
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
)

// Errors.
var (
	ErrWalletUnavailable = errors.New("no wallet available")
	ErrUserRejected      = eip1193.ErrUserRejected
	ErrChainSwitchFailed = errors.New("failed to switch network")
	ErrChainMismatch     = errors.New("wallet is on a different network")
)

// Connection is the result of a successful Connect.
type Connection struct {
	Address  common.Address
	Provider chain.Backend
	Signer   *Signer
}

// Connector drives the connect flow against one wallet and one target chain.
type Connector struct {
	wallet eip1193.Provider
	target chain.Descriptor
	log    *zap.Logger
}

// New returns a connector. wallet may be nil when no wallet is installed.
func New(wallet eip1193.Provider, target chain.Descriptor, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{wallet: wallet, target: target, log: log.Named("connector")}
}

// Target returns the chain the connector switches to.
func (c *Connector) Target() chain.Descriptor {
	return c.target
}

// Available reports whether a wallet is present.
func (c *Connector) Available() bool {
	return c.wallet != nil
}

// Connect requests account access, moves the wallet to the target chain when
// needed and returns the first account with a wallet-backed provider.
func (c *Connector) Connect(ctx context.Context) (*Connection, error) {
	if c.wallet == nil {
		return nil, ErrWalletUnavailable
	}

	accounts, err := eip1193.Call[[]common.Address](ctx, c.wallet, eip1193.MethodRequestAccounts)
	switch {
	case eip1193.HasCode(err, eip1193.CodeUserRejected):
		return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
	case eip1193.HasCode(err, eip1193.CodeUnauthorized):
		return nil, fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	case err != nil:
		return nil, fmt.Errorf("requesting accounts: %w", err)
	case len(accounts) == 0:
		return nil, fmt.Errorf("%w: no accounts returned", ErrUserRejected)
	}

	if err := c.ensureChain(ctx); err != nil {
		return nil, err
	}

	provider, err := eip1193.NewClient(ctx, c.wallet)
	if err != nil {
		return nil, err
	}

	addr := accounts[0]
	c.log.Info("wallet connected", zap.String("address", addr.Hex()), zap.String("chain", c.target.ChainName))
	return &Connection{
		Address:  addr,
		Provider: provider,
		Signer:   NewSigner(c.wallet, addr, c.target.ID()),
	}, nil
}

// ensureChain switches to the target, adding it first if the wallet does
// not know it. Switch or add is attempted only on mismatch.
func (c *Connector) ensureChain(ctx context.Context) error {
	current, err := eip1193.Call[string](ctx, c.wallet, eip1193.MethodChainID)
	if err != nil {
		return fmt.Errorf("reading wallet chain: %w", err)
	}
	if c.target.Matches(current) {
		return nil
	}

	c.log.Info("switching chain", zap.String("from", current), zap.String("to", c.target.ChainID))
	err = c.switchChain(ctx)
	if eip1193.HasCode(err, eip1193.CodeUnrecognizedChain) {
		c.log.Info("adding chain to wallet", zap.String("chain", c.target.ChainName))
		if _, addErr := c.wallet.Request(ctx, eip1193.MethodAddChain, c.target); addErr != nil {
			return fmt.Errorf("%w: adding %s: %w", ErrChainSwitchFailed, c.target.ChainName, addErr)
		}
		err = c.switchChain(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainSwitchFailed, err)
	}
	return nil
}

func (c *Connector) switchChain(ctx context.Context) error {
	_, err := c.wallet.Request(ctx, eip1193.MethodSwitchChain, map[string]string{"chainId": c.target.ChainID})
	return err
}

// IsWalletConnected reports whether the wallet already exposes an account.
// It never prompts and never errors.
func (c *Connector) IsWalletConnected(ctx context.Context) bool {
	if c.wallet == nil {
		return false
	}
	accounts, err := eip1193.Call[[]string](ctx, c.wallet, eip1193.MethodAccounts)
	if err != nil {
		c.log.Debug("account probe failed", zap.Error(err))
		return false
	}
	return len(accounts) > 0
}

// CheckChain reports ErrChainMismatch when the wallet is not on the target.
func (c *Connector) CheckChain(ctx context.Context) error {
	if c.wallet == nil {
		return ErrWalletUnavailable
	}
	current, err := eip1193.Call[string](ctx, c.wallet, eip1193.MethodChainID)
	if err != nil {
		return err
	}
	if !c.target.Matches(current) {
		return fmt.Errorf("%w: wallet on %s, want %s", ErrChainMismatch, strings.ToLower(current), c.target.ChainID)
	}
	return nil
}
