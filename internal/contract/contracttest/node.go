package contracttest

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Serve exposes c as a JSON-RPC node over HTTP and returns its URL. The
// node answers what ethclient and bind need for reads, sends and receipts.
func Serve(t testing.TB, c *Chain) string {
	t.Helper()
	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", &node{chain: c}); err != nil {
		t.Fatalf("registering eth service: %v", err)
	}
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		srv.Stop()
	})
	return hs.URL
}

// node is the eth namespace over a Chain.
type node struct {
	chain *Chain
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a callArgs) msg() ethereum.CallMsg {
	var m ethereum.CallMsg
	if a.From != nil {
		m.From = *a.From
	}
	m.To = a.To
	if a.Value != nil {
		m.Value = a.Value.ToInt()
	}
	switch {
	case a.Input != nil:
		m.Data = *a.Input
	case a.Data != nil:
		m.Data = *a.Data
	}
	return m
}

func (n *node) ChainId(ctx context.Context) (*hexutil.Big, error) {
	id, err := n.chain.ChainID(ctx)
	return (*hexutil.Big)(id), err
}

func (n *node) BlockNumber() hexutil.Uint64 {
	n.chain.mu.Lock()
	defer n.chain.mu.Unlock()
	return hexutil.Uint64(n.chain.block)
}

func (n *node) GetBlockByNumber(ctx context.Context, _ string, _ bool) (*types.Header, error) {
	h, err := n.chain.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	h.Difficulty = new(big.Int)
	h.GasLimit = 30_000_000
	return h, nil
}

func (n *node) GetCode(ctx context.Context, account common.Address, _ string) (hexutil.Bytes, error) {
	return n.chain.CodeAt(ctx, account, nil)
}

func (n *node) GetTransactionCount(ctx context.Context, account common.Address, _ string) (hexutil.Uint64, error) {
	nonce, err := n.chain.PendingNonceAt(ctx, account)
	return hexutil.Uint64(nonce), err
}

func (n *node) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	p, err := n.chain.SuggestGasPrice(ctx)
	return (*hexutil.Big)(p), err
}

func (n *node) MaxPriorityFeePerGas(ctx context.Context) (*hexutil.Big, error) {
	tip, err := n.chain.SuggestGasTipCap(ctx)
	return (*hexutil.Big)(tip), err
}

func (n *node) EstimateGas(ctx context.Context, args callArgs, _ *string) (hexutil.Uint64, error) {
	gas, err := n.chain.EstimateGas(ctx, args.msg())
	return hexutil.Uint64(gas), err
}

func (n *node) Call(ctx context.Context, args callArgs, _ *string) (hexutil.Bytes, error) {
	return n.chain.CallContract(ctx, args.msg(), nil)
}

func (n *node) SendRawTransaction(ctx context.Context, raw hexutil.Bytes) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	if err := n.chain.SendTransaction(ctx, &tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// GetTransactionReceipt returns null while the transaction is pending.
func (n *node) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, err := n.chain.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := *r
	if out.Logs == nil {
		out.Logs = []*types.Log{}
	}
	return &out, nil
}
