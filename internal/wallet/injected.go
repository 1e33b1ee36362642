package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
)

// DefaultOrigin identifies the CLI to the wallet's permission list.
const DefaultOrigin = "cryptopet-cli"

// Dialer opens a JSON-RPC connection to a chain.
type Dialer func(ctx context.Context, d chain.Descriptor) (*rpc.Client, error)

// Injected is a local EIP-1193 wallet. Account, chain and signing methods are
// answered locally, with user prompts going through the Approver; everything
// else is forwarded to the active chain's RPC.
type Injected struct {
	origin   string
	accounts *Manager
	perms    *Permissions
	chains   *ChainStore
	approver Approver
	dial     Dialer
	log      *zap.Logger

	promptMu sync.Mutex // one prompt at a time

	mu       sync.Mutex
	upstream *rpc.Client
	upChain  string
}

// InjectedOption configures an Injected wallet.
type InjectedOption func(*Injected)

// WithApprover sets the prompt used for confirmations.
func WithApprover(a Approver) InjectedOption {
	return func(w *Injected) { w.approver = a }
}

// WithDialer overrides how upstream RPC connections are opened.
func WithDialer(d Dialer) InjectedOption {
	return func(w *Injected) { w.dial = d }
}

// WithOrigin sets the origin requests are attributed to.
func WithOrigin(origin string) InjectedOption {
	return func(w *Injected) { w.origin = origin }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) InjectedOption {
	return func(w *Injected) { w.log = l }
}

// NewInjected builds a wallet over accounts, permissions and chains.
func NewInjected(accounts *Manager, perms *Permissions, chains *ChainStore, opts ...InjectedOption) *Injected {
	w := &Injected{
		origin:   DefaultOrigin,
		accounts: accounts,
		perms:    perms,
		chains:   chains,
		approver: DenyAll{},
		dial:     dialFirst,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func dialFirst(ctx context.Context, d chain.Descriptor) (*rpc.Client, error) {
	var lastErr error
	for _, url := range d.RPCURLs {
		c, err := rpc.DialContext(ctx, url)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no reachable rpc for %s: %w", d.ChainName, lastErr)
}

// Request implements eip1193.Provider.
func (w *Injected) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var (
		result any
		err    error
	)
	switch method {
	case eip1193.MethodRequestAccounts:
		result, err = w.requestAccounts(ctx)
	case eip1193.MethodAccounts:
		result = w.grantedAccounts()
	case eip1193.MethodChainID:
		var d chain.Descriptor
		if d, err = w.chains.Active(); err == nil {
			result = d.ChainID
		}
	case "net_version":
		var d chain.Descriptor
		if d, err = w.chains.Active(); err == nil {
			result = d.ID().String()
		}
	case eip1193.MethodSwitchChain:
		err = w.switchChain(ctx, params)
	case eip1193.MethodAddChain:
		err = w.addChain(ctx, params)
	case eip1193.MethodSignTransaction:
		var signed *types.Transaction
		if signed, err = w.signTransaction(ctx, params); err == nil {
			var raw []byte
			raw, err = signed.MarshalBinary()
			result = hexutil.Bytes(raw)
		}
	case eip1193.MethodSendTransaction:
		result, err = w.sendTransaction(ctx, params)
	case eip1193.MethodPersonalSign:
		result, err = w.personalSign(ctx, params)
	default:
		return w.forward(ctx, method, params)
	}
	if err != nil {
		w.log.Debug("wallet request failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return json.Marshal(result)
}

// --- accounts ---

func (w *Injected) requestAccounts(ctx context.Context) ([]common.Address, error) {
	if granted := w.grantedAccounts(); len(granted) > 0 {
		return granted, nil
	}

	available := w.accounts.List()
	if len(available) == 0 {
		return nil, eip1193.NewError(eip1193.CodeUnauthorized, "wallet has no accounts")
	}

	w.promptMu.Lock()
	chosen, err := w.approver.ApproveAccounts(ctx, w.origin, available)
	w.promptMu.Unlock()
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeUserRejected, "connection request rejected: %v", err)
	}

	var addrs []common.Address
	for _, a := range chosen {
		if _, err := w.accounts.ByAddress(a); err == nil {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, eip1193.NewError(eip1193.CodeUserRejected, "user rejected the request")
	}
	if err := w.perms.Authorize(w.origin, addrs); err != nil {
		return nil, eip1193.NewError(eip1193.CodeInternal, "saving permissions: %v", err)
	}
	w.log.Info("accounts connected", zap.String("origin", w.origin), zap.Int("count", len(addrs)))
	return addrs, nil
}

// grantedAccounts returns the origin's accounts that still exist in the wallet.
func (w *Injected) grantedAccounts() []common.Address {
	out := []common.Address{}
	for _, a := range w.perms.Authorized(w.origin) {
		if _, err := w.accounts.ByAddress(a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

func (w *Injected) authorized(addr common.Address) bool {
	for _, a := range w.grantedAccounts() {
		if a == addr {
			return true
		}
	}
	return false
}

// --- chains ---

type switchParams struct {
	ChainID string `json:"chainId"`
}

func (w *Injected) switchChain(ctx context.Context, params []any) error {
	var p switchParams
	if err := eip1193.DecodeParam(params, 0, &p); err != nil {
		return err
	}
	target, ok := w.chains.Known(p.ChainID)
	if !ok {
		return eip1193.NewError(eip1193.CodeUnrecognizedChain,
			"unrecognized chain id %s, try adding the chain using %s first", p.ChainID, eip1193.MethodAddChain)
	}
	if active, err := w.chains.Active(); err == nil && active.ChainID == target.ChainID {
		return nil
	}

	w.promptMu.Lock()
	ok, err := w.approver.ApproveSwitch(ctx, w.origin, target)
	w.promptMu.Unlock()
	if err != nil || !ok {
		return eip1193.NewError(eip1193.CodeUserRejected, "user rejected the network switch")
	}

	if err := w.chains.SetActive(target.ChainID); err != nil {
		return eip1193.NewError(eip1193.CodeInternal, "switching chain: %v", err)
	}
	w.resetUpstream()
	w.log.Info("switched chain", zap.String("chain", target.ChainName), zap.String("chainId", target.ChainID))
	return nil
}

func (w *Injected) addChain(ctx context.Context, params []any) error {
	var d chain.Descriptor
	if err := eip1193.DecodeParam(params, 0, &d); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return eip1193.NewError(eip1193.CodeInvalidParams, "%v", err)
	}
	if _, ok := w.chains.Known(d.ChainID); ok {
		return nil
	}

	w.promptMu.Lock()
	ok, err := w.approver.ApproveAddChain(ctx, w.origin, d)
	w.promptMu.Unlock()
	if err != nil || !ok {
		return eip1193.NewError(eip1193.CodeUserRejected, "user rejected adding the network")
	}

	if err := w.chains.Add(d); err != nil {
		return eip1193.NewError(eip1193.CodeInternal, "adding chain: %v", err)
	}
	w.log.Info("added chain", zap.String("chain", d.ChainName), zap.String("chainId", d.ChainID))
	return nil
}

// --- signing ---

func (w *Injected) signTransaction(ctx context.Context, params []any) (*types.Transaction, error) {
	var args eip1193.TxArgs
	if err := eip1193.DecodeParam(params, 0, &args); err != nil {
		return nil, err
	}
	if args.From == nil {
		return nil, eip1193.NewError(eip1193.CodeInvalidParams, "missing from address")
	}
	from := *args.From
	if !w.authorized(from) {
		return nil, eip1193.NewError(eip1193.CodeUnauthorized, "account %s is not connected", from.Hex())
	}

	active, err := w.chains.Active()
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeChainDisconnected, "%v", err)
	}
	chainID := active.ID()
	if args.ChainID != nil && args.ChainID.ToInt().Cmp(chainID) != 0 {
		return nil, eip1193.NewError(eip1193.CodeInvalidParams,
			"chainId %s does not match the active chain %s", chain.HexChainID(args.ChainID.ToInt()), active.ChainID)
	}
	if err := w.fillTx(ctx, &args); err != nil {
		return nil, err
	}

	tx, err := args.ToTransaction(chainID)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeInvalidParams, "%v", err)
	}

	w.promptMu.Lock()
	ok, err := w.approver.ApproveTransaction(ctx, w.origin, from, tx, active)
	w.promptMu.Unlock()
	if err != nil || !ok {
		return nil, eip1193.NewError(eip1193.CodeUserRejected, "user denied transaction signature")
	}

	key, err := w.accounts.privateKey(from)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeInternal, "%v", err)
	}
	signed, err := SignTx(key, tx, chainID)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeInternal, "%v", err)
	}
	w.log.Debug("signed transaction", zap.String("hash", signed.Hash().Hex()), zap.Uint64("nonce", signed.Nonce()))
	return signed, nil
}

// fillTx completes nonce, gas and fee fields the caller left empty.
func (w *Injected) fillTx(ctx context.Context, args *eip1193.TxArgs) error {
	if args.Nonce != nil && args.Gas != nil && (args.GasPrice != nil || args.MaxFeePerGas != nil) {
		return nil
	}
	up, err := w.upstreamClient(ctx)
	if err != nil {
		return err
	}
	client := ethclient.NewClient(up)

	if args.Nonce == nil {
		n, err := client.PendingNonceAt(ctx, *args.From)
		if err != nil {
			return upstreamError(err)
		}
		args.Nonce = (*hexutil.Uint64)(&n)
	}
	if args.GasPrice == nil && args.MaxFeePerGas == nil {
		price, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return upstreamError(err)
		}
		args.GasPrice = (*hexutil.Big)(price)
	}
	if args.Gas == nil {
		msg := ethereum.CallMsg{From: *args.From, To: args.To}
		if args.Value != nil {
			msg.Value = args.Value.ToInt()
		}
		if args.Data != nil {
			msg.Data = *args.Data
		}
		gas, err := client.EstimateGas(ctx, msg)
		if err != nil {
			return upstreamError(err)
		}
		args.Gas = (*hexutil.Uint64)(&gas)
	}
	return nil
}

func (w *Injected) sendTransaction(ctx context.Context, params []any) (common.Hash, error) {
	signed, err := w.signTransaction(ctx, params)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, eip1193.NewError(eip1193.CodeInternal, "%v", err)
	}
	if _, err := w.forward(ctx, "eth_sendRawTransaction", []any{hexutil.Bytes(raw)}); err != nil {
		return common.Hash{}, err
	}
	w.log.Info("transaction sent", zap.String("hash", signed.Hash().Hex()))
	return signed.Hash(), nil
}

func (w *Injected) personalSign(ctx context.Context, params []any) (hexutil.Bytes, error) {
	var (
		data string
		from common.Address
	)
	if err := eip1193.DecodeParam(params, 0, &data); err != nil {
		return nil, err
	}
	if err := eip1193.DecodeParam(params, 1, &from); err != nil {
		return nil, err
	}
	if !w.authorized(from) {
		return nil, eip1193.NewError(eip1193.CodeUnauthorized, "account %s is not connected", from.Hex())
	}

	message, err := hexutil.Decode(data)
	if err != nil {
		message = []byte(data)
	}

	w.promptMu.Lock()
	ok, err := w.approver.ApproveMessage(ctx, w.origin, from, message)
	w.promptMu.Unlock()
	if err != nil || !ok {
		return nil, eip1193.NewError(eip1193.CodeUserRejected, "user denied message signature")
	}

	key, err := w.accounts.privateKey(from)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeInternal, "%v", err)
	}
	sig, err := SignMessage(key, message)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeInternal, "%v", err)
	}
	return sig, nil
}

// --- upstream ---

func (w *Injected) forward(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	up, err := w.upstreamClient(ctx)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := up.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, upstreamError(err)
	}
	return raw, nil
}

func (w *Injected) upstreamClient(ctx context.Context) (*rpc.Client, error) {
	active, err := w.chains.Active()
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeDisconnected, "%v", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.upstream != nil && w.upChain == active.ChainID {
		return w.upstream, nil
	}
	if w.upstream != nil {
		w.upstream.Close()
		w.upstream = nil
	}
	c, err := w.dial(ctx, active)
	if err != nil {
		return nil, eip1193.NewError(eip1193.CodeChainDisconnected, "%v", err)
	}
	w.upstream, w.upChain = c, active.ChainID
	return c, nil
}

func (w *Injected) resetUpstream() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.upstream != nil {
		w.upstream.Close()
		w.upstream = nil
	}
}

// Close releases the upstream connection.
func (w *Injected) Close() {
	w.resetUpstream()
}

// upstreamError keeps node error codes and marks transport failures as a
// chain disconnect.
func upstreamError(err error) error {
	if _, ok := eip1193.Code(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return eip1193.NewError(eip1193.CodeChainDisconnected, "%v", err)
}
