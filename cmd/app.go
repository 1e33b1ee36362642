package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/connector"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
	"github.com/Mohsinsiddi/cryptopet/internal/ens"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
	"github.com/Mohsinsiddi/cryptopet/internal/rpc"
	"github.com/Mohsinsiddi/cryptopet/internal/session"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
	"github.com/Mohsinsiddi/cryptopet/internal/wallet"
)

var errReadOnly = fmt.Errorf("%w: --no-wallet is read-only", connector.ErrWalletUnavailable)

// Replaced in tests.
var (
	openKeystore = func(dir string) (wallet.KeystoreBackend, error) {
		ks, err := wallet.DefaultKeystore(dir)
		if err != nil {
			return nil, err
		}
		return ks, nil
	}
	newApprover = func() wallet.Approver { return ui.NewPromptApprover(nil) }
)

// app is everything a pet command talks to for one run.
type app struct {
	slug     string
	target   chain.Descriptor
	address  common.Address
	fallback *rpc.Fallback
	approver wallet.Approver
	injected *wallet.Injected // nil with --no-wallet
	store    *session.Store
	pets     *pets.Synchronizer
}

type appOption func(*app)

// withKeyApprovals approves feed and play without a prompt. The dashboard
// owns the terminal, so the key press is the approval.
func withKeyApprovals() appOption {
	return func(a *app) {
		a.approver = keyApprover{Approver: a.approver, contract: a.address}
	}
}

// newApp wires the wallet, the session store and the pet synchronizer, then
// runs the silent connect. A failed silent connect is logged, not returned.
func newApp(ctx context.Context, opts ...appOption) (*app, error) {
	slug, target, err := targetChain()
	if err != nil {
		return nil, err
	}
	addr, err := contractAddress(slug)
	if err != nil {
		return nil, err
	}
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	a := &app{
		slug:     slug,
		target:   target,
		address:  addr,
		fallback: rpc.NewFallback(algo, log),
		approver: newApprover(),
	}
	for _, o := range opts {
		o(a)
	}

	var provider eip1193.Provider
	if !noWallet {
		if a.injected, err = a.newInjected(); err != nil {
			return nil, err
		}
		provider = a.injected
	}

	a.store = session.New(
		connector.New(provider, target, log),
		contract.NewDeriver(addr, target, log),
		session.WithFallback(func(ctx context.Context) (chain.Backend, error) {
			ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
			defer cancel()
			client, url, err := a.fallback.Dial(ctx, target, cfg.GetRPCs(slug))
			if err != nil {
				return nil, err
			}
			log.Debug("read rpc selected", zap.String("url", url))
			return client, nil
		}),
		session.WithLogger(log),
	)
	a.pets = pets.NewSynchronizer(a.store.Binding, pets.NewMetadataResolver(cfg.IPFSGateway, nil, log), log,
		pets.WithWriteCheck(a.store.CheckChain))

	if err := a.store.Init(ctx); err != nil {
		log.Warn("silent connect failed", zap.Error(err))
	}
	return a, nil
}

func (a *app) newInjected() (*wallet.Injected, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	reg := chain.NewRegistry()
	eth, _ := reg.GetByName(chain.Ethereum)
	sep, _ := reg.GetByName(chain.Sepolia)
	chains, err := wallet.NewChainStore(cfg.ChainsPath(), eth, sep)
	if err != nil {
		return nil, err
	}
	return wallet.NewInjected(mgr, wallet.NewPermissions(cfg.PermissionsPath()), chains,
		wallet.WithApprover(a.approver),
		wallet.WithDialer(func(ctx context.Context, d chain.Descriptor) (*gethrpc.Client, error) {
			var custom []string
			if _, slug, err := reg.GetByChainID(d.ChainID); err == nil {
				custom = cfg.GetRPCs(slug)
			}
			url, _, err := a.fallback.Select(ctx, d, custom)
			if err != nil {
				return nil, err
			}
			return gethrpc.DialContext(ctx, url)
		}),
		wallet.WithLogger(log),
	), nil
}

// connect runs the interactive connect flow.
func (a *app) connect(ctx context.Context) error {
	if a.injected == nil {
		return errReadOnly
	}
	return a.store.Connect(ctx)
}

// ensureAccount connects unless the silent connect already did.
func (a *app) ensureAccount(ctx context.Context) error {
	if a.store.Snapshot().IsConnected {
		return nil
	}
	return a.connect(ctx)
}

// fetch refreshes the connected account's pets.
func (a *app) fetch(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	defer cancel()
	return a.pets.Fetch(ctx)
}

// resolveOwner accepts an address or, on chains with ENS, a name.
func (a *app) resolveOwner(ctx context.Context, s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	if !ens.IsName(s) {
		return common.Address{}, fmt.Errorf("invalid owner %q: want an address or ENS name", s)
	}
	if !ens.Supported(a.slug) {
		return common.Address{}, fmt.Errorf("ENS names are not available on %s", a.target.ChainName)
	}
	provider := a.store.ReadProvider()
	if provider == nil {
		return common.Address{}, session.ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	defer cancel()
	return ens.NewResolver(provider).Resolve(ctx, s)
}

func (a *app) explorer() string {
	if len(a.target.BlockExplorerURLs) == 0 {
		return ""
	}
	return a.target.BlockExplorerURLs[0]
}

func (a *app) close() {
	a.pets.Close()
	a.store.Close()
	if a.injected != nil {
		a.injected.Close()
	}
}

// targetChain resolves --chain, then target_chain from config.
func targetChain() (string, chain.Descriptor, error) {
	slug := cfg.TargetChain
	if chainFlag != "" {
		slug = chainFlag
	}
	d, err := chain.NewRegistry().GetByName(slug)
	if err != nil {
		return "", chain.Descriptor{}, fmt.Errorf("chain %q: %w", slug, err)
	}
	return slug, d, nil
}

// contractAddress resolves contract_address from config, then the
// deployments registry, then the built-in address.
func contractAddress(slug string) (common.Address, error) {
	if cfg.ContractAddress != "" {
		if !common.IsHexAddress(cfg.ContractAddress) {
			return common.Address{}, fmt.Errorf("invalid contract_address %q in config", cfg.ContractAddress)
		}
		return common.HexToAddress(cfg.ContractAddress), nil
	}
	reg, err := loadDeployments()
	if err != nil {
		return common.Address{}, err
	}
	addr, err := reg.Get(slug)
	if errors.Is(err, contract.ErrDeploymentNotFound) {
		log.Debug("no deployment recorded, using built-in address", zap.String("chain", slug))
		return common.HexToAddress(contract.DefaultAddress), nil
	}
	return addr, err
}

func loadDeployments() (*contract.Registry, error) {
	reg := contract.NewRegistry(cfg.DeploymentsPath())
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store and
// the OS keychain.
func newWalletManager() (*wallet.Manager, error) {
	ks, err := openKeystore(cfg.KeysDir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

// keyApprover signs zero-value calls to the pet contract unprompted and
// rejects every other transaction.
type keyApprover struct {
	wallet.Approver
	contract common.Address
}

func (k keyApprover) ApproveTransaction(_ context.Context, _ string, _ common.Address, tx *types.Transaction, _ chain.Descriptor) (bool, error) {
	return tx.To() != nil && *tx.To() == k.contract && tx.Value().Sign() == 0, nil
}
