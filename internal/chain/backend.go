package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is what the client needs from a chain connection, whether it is
// routed through the wallet or a plain JSON-RPC endpoint. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractCaller
	bind.ContractTransactor
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}
