package wallet_test

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
	"github.com/Mohsinsiddi/cryptopet/internal/wallet"
)

const (
	testKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// ─── fake node ────────────────────────────────────────────────────────────────

type fakeNode struct {
	mu   sync.Mutex
	sent []hexutil.Bytes
}

func (n *fakeNode) BlockNumber() hexutil.Uint64 { return 42 }

func (n *fakeNode) GasPrice() *hexutil.Big { return (*hexutil.Big)(big.NewInt(7)) }

func (n *fakeNode) GetTransactionCount(common.Address, string) hexutil.Uint64 { return 3 }

func (n *fakeNode) EstimateGas(map[string]any, *string) hexutil.Uint64 { return 50_000 }

func (n *fakeNode) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, raw)
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (n *fakeNode) Sent() []hexutil.Bytes {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]hexutil.Bytes(nil), n.sent...)
}

type countingApprover struct {
	wallet.AutoApprove
	mu       sync.Mutex
	accounts int
	switches int
	txs      int
}

func (c *countingApprover) ApproveAccounts(ctx context.Context, origin string, available []*wallet.Wallet) ([]common.Address, error) {
	c.mu.Lock()
	c.accounts++
	c.mu.Unlock()
	return c.AutoApprove.ApproveAccounts(ctx, origin, available)
}

func (c *countingApprover) ApproveSwitch(ctx context.Context, origin string, to chain.Descriptor) (bool, error) {
	c.mu.Lock()
	c.switches++
	c.mu.Unlock()
	return true, nil
}

func (c *countingApprover) ApproveTransaction(context.Context, string, common.Address, *types.Transaction, chain.Descriptor) (bool, error) {
	c.mu.Lock()
	c.txs++
	c.mu.Unlock()
	return true, nil
}

type fixture struct {
	wallet   *wallet.Injected
	manager  *wallet.Manager
	node     *fakeNode
	approver *countingApprover
	dials    int
}

func newFixture(t *testing.T, withAccount bool, approver wallet.Approver) *fixture {
	t.Helper()
	f := &fixture{node: &fakeNode{}}

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", f.node))
	t.Cleanup(srv.Stop)

	f.manager = wallet.NewManager(wallet.WithInMemoryStore())
	if withAccount {
		_, err := f.manager.AddWithKey("main", testKey)
		require.NoError(t, err)
	}

	registry := chain.NewRegistry()
	eth, _ := registry.GetByName(chain.Ethereum)
	sep, _ := registry.GetByName(chain.Sepolia)
	chains, err := wallet.NewChainStore("", eth, sep)
	require.NoError(t, err)

	if approver == nil {
		f.approver = &countingApprover{}
		approver = f.approver
	}
	f.wallet = wallet.NewInjected(f.manager, wallet.NewPermissions(""), chains,
		wallet.WithApprover(approver),
		wallet.WithDialer(func(context.Context, chain.Descriptor) (*rpc.Client, error) {
			f.dials++
			return rpc.DialInProc(srv), nil
		}),
	)
	t.Cleanup(f.wallet.Close)
	return f
}

func request[T any](t *testing.T, p eip1193.Provider, method string, params ...any) T {
	t.Helper()
	out, err := eip1193.Call[T](context.Background(), p, method, params...)
	require.NoError(t, err, method)
	return out
}

// ─── accounts ─────────────────────────────────────────────────────────────────

func TestRequestAccountsApproved(t *testing.T) {
	f := newFixture(t, true, nil)

	accounts := request[[]common.Address](t, f.wallet, eip1193.MethodRequestAccounts)
	require.Len(t, accounts, 1)
	assert.Equal(t, testAddr, accounts[0].Hex())

	// already granted: no second prompt
	request[[]common.Address](t, f.wallet, eip1193.MethodRequestAccounts)
	assert.Equal(t, 1, f.approver.accounts)

	granted := request[[]common.Address](t, f.wallet, eip1193.MethodAccounts)
	assert.Equal(t, accounts, granted)
}

func TestRequestAccountsRejected(t *testing.T) {
	f := newFixture(t, true, wallet.DenyAll{})

	_, err := f.wallet.Request(context.Background(), eip1193.MethodRequestAccounts)
	assert.True(t, eip1193.HasCode(err, eip1193.CodeUserRejected))
	assert.ErrorIs(t, err, eip1193.ErrUserRejected)
}

func TestRequestAccountsEmptyWallet(t *testing.T) {
	f := newFixture(t, false, nil)

	_, err := f.wallet.Request(context.Background(), eip1193.MethodRequestAccounts)
	assert.True(t, eip1193.HasCode(err, eip1193.CodeUnauthorized))
}

func TestAccountsBeforeConnectIsEmpty(t *testing.T) {
	f := newFixture(t, true, nil)

	raw, err := f.wallet.Request(context.Background(), eip1193.MethodAccounts)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
	assert.Zero(t, f.approver.accounts)
}

func TestRemovedWalletLosesGrant(t *testing.T) {
	f := newFixture(t, true, nil)
	request[[]common.Address](t, f.wallet, eip1193.MethodRequestAccounts)

	require.NoError(t, f.manager.Remove("main"))
	assert.Empty(t, request[[]common.Address](t, f.wallet, eip1193.MethodAccounts))
}

// ─── chains ───────────────────────────────────────────────────────────────────

func TestChainIDAndNetVersion(t *testing.T) {
	f := newFixture(t, true, nil)
	assert.Equal(t, "0x1", request[string](t, f.wallet, eip1193.MethodChainID))
	assert.Equal(t, "1", request[string](t, f.wallet, "net_version"))
}

func TestSwitchToKnownChain(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": "0xaa36a7"})
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", request[string](t, f.wallet, eip1193.MethodChainID))
	assert.Equal(t, 1, f.approver.switches)

	// switching to the active chain does not prompt
	_, err = f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": "0xaa36a7"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.approver.switches)
}

func TestSwitchToUnknownChain(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": "0x190f1b45"})
	assert.True(t, eip1193.HasCode(err, eip1193.CodeUnrecognizedChain))
}

func TestSwitchRejected(t *testing.T) {
	f := newFixture(t, true, wallet.DenyAll{})

	_, err := f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": "0xaa36a7"})
	assert.True(t, eip1193.HasCode(err, eip1193.CodeUserRejected))
	assert.Equal(t, "0x1", request[string](t, f.wallet, eip1193.MethodChainID))
}

func TestAddChainThenSwitch(t *testing.T) {
	f := newFixture(t, true, nil)
	westend, err := chain.NewRegistry().GetByName(chain.WestendAssetHub)
	require.NoError(t, err)

	_, err = f.wallet.Request(context.Background(), eip1193.MethodAddChain, westend)
	require.NoError(t, err)

	_, err = f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": westend.ChainID})
	require.NoError(t, err)
	assert.Equal(t, westend.ChainID, request[string](t, f.wallet, eip1193.MethodChainID))
}

func TestAddChainInvalidParams(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.wallet.Request(context.Background(), eip1193.MethodAddChain, map[string]any{"chainId": "0x0539", "chainName": "x"})
	assert.True(t, eip1193.HasCode(err, eip1193.CodeInvalidParams))

	_, err = f.wallet.Request(context.Background(), eip1193.MethodAddChain)
	assert.True(t, eip1193.HasCode(err, eip1193.CodeInvalidParams))
}

// ─── signing ──────────────────────────────────────────────────────────────────

func connect(t *testing.T, f *fixture) common.Address {
	t.Helper()
	accounts := request[[]common.Address](t, f.wallet, eip1193.MethodRequestAccounts)
	require.NotEmpty(t, accounts)
	return accounts[0]
}

func TestSignTransactionComplete(t *testing.T) {
	f := newFixture(t, true, nil)
	from := connect(t, f)

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	unsigned := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(5), Gas: 21000, To: &to, Value: big.NewInt(9)})

	raw := request[hexutil.Bytes](t, f.wallet, eip1193.MethodSignTransaction, eip1193.NewTxArgs(from, unsigned))

	var signed types.Transaction
	require.NoError(t, signed.UnmarshalBinary(raw))
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), &signed)
	require.NoError(t, err)
	assert.Equal(t, from, sender)
	assert.Equal(t, uint64(1), signed.Nonce())
	assert.Zero(t, f.dials, "complete transactions need no upstream")
}

func TestSignTransactionFillsMissingFields(t *testing.T) {
	f := newFixture(t, true, nil)
	from := connect(t, f)

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	raw := request[hexutil.Bytes](t, f.wallet, eip1193.MethodSignTransaction, eip1193.TxArgs{From: &from, To: &to})

	var signed types.Transaction
	require.NoError(t, signed.UnmarshalBinary(raw))
	assert.Equal(t, uint64(3), signed.Nonce())
	assert.Equal(t, uint64(50_000), signed.Gas())
	assert.Equal(t, int64(7), signed.GasPrice().Int64())
}

func TestSignTransactionUnconnectedAccount(t *testing.T) {
	f := newFixture(t, true, nil)

	from := common.HexToAddress(testAddr)
	_, err := f.wallet.Request(context.Background(), eip1193.MethodSignTransaction, eip1193.TxArgs{From: &from})
	assert.True(t, eip1193.HasCode(err, eip1193.CodeUnauthorized))
}

func TestSignTransactionWrongChain(t *testing.T) {
	f := newFixture(t, true, nil)
	from := connect(t, f)

	gas := hexutil.Uint64(21000)
	nonce := hexutil.Uint64(0)
	args := eip1193.TxArgs{
		From:         &from,
		Gas:          &gas,
		Nonce:        &nonce,
		MaxFeePerGas: (*hexutil.Big)(big.NewInt(10)),
		ChainID:      (*hexutil.Big)(big.NewInt(11155111)),
	}
	_, err := f.wallet.Request(context.Background(), eip1193.MethodSignTransaction, args)
	assert.True(t, eip1193.HasCode(err, eip1193.CodeInvalidParams))
}

type txDenier struct{ wallet.AutoApprove }

func (txDenier) ApproveTransaction(context.Context, string, common.Address, *types.Transaction, chain.Descriptor) (bool, error) {
	return false, nil
}

func TestSignTransactionDenied(t *testing.T) {
	f := newFixture(t, true, txDenier{})
	from := connect(t, f)

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	_, err := f.wallet.Request(context.Background(), eip1193.MethodSignTransaction, eip1193.TxArgs{From: &from, To: &to})
	assert.ErrorIs(t, err, eip1193.ErrUserRejected)
}

func TestSendTransactionBroadcasts(t *testing.T) {
	f := newFixture(t, true, nil)
	from := connect(t, f)

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	hash := request[common.Hash](t, f.wallet, eip1193.MethodSendTransaction, eip1193.TxArgs{From: &from, To: &to})

	sent := f.node.Sent()
	require.Len(t, sent, 1)
	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(sent[0]))
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, 1, f.approver.txs)
}

func TestPersonalSign(t *testing.T) {
	f := newFixture(t, true, nil)
	from := connect(t, f)

	msg := []byte("feed my pet")
	sig := request[hexutil.Bytes](t, f.wallet, eip1193.MethodPersonalSign, hexutil.Encode(msg), from)

	recovered, err := wallet.VerifyMessage(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, from, recovered)
}

// ─── forwarding ───────────────────────────────────────────────────────────────

func TestForwardsOtherMethods(t *testing.T) {
	f := newFixture(t, true, nil)

	raw, err := f.wallet.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	var n hexutil.Uint64
	require.NoError(t, json.Unmarshal(raw, &n))
	assert.Equal(t, hexutil.Uint64(42), n)

	_, err = f.wallet.Request(context.Background(), "eth_unknownThing")
	assert.True(t, eip1193.HasCode(err, eip1193.CodeMethodNotFound))
}

func TestUpstreamRedialedAfterSwitch(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.wallet.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	_, err = f.wallet.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, 1, f.dials)

	_, err = f.wallet.Request(context.Background(), eip1193.MethodSwitchChain, map[string]string{"chainId": "0xaa36a7"})
	require.NoError(t, err)
	_, err = f.wallet.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, 2, f.dials)
}

func TestInjectedAsEthClient(t *testing.T) {
	f := newFixture(t, true, nil)

	client, err := eip1193.NewClient(context.Background(), f.wallet)
	require.NoError(t, err)
	defer client.Close()

	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Int64())

	n, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}
