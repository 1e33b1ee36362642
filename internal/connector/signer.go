package connector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
)

// Signer signs transactions for one account by asking the wallet.
type Signer struct {
	wallet  eip1193.Provider
	address common.Address
	chainID *big.Int
}

// NewSigner returns a signer for address on chainID.
func NewSigner(wallet eip1193.Provider, address common.Address, chainID *big.Int) *Signer {
	return &Signer{wallet: wallet, address: address, chainID: new(big.Int).Set(chainID)}
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// TransactOpts returns bind options whose Signer calls eth_signTransaction.
func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{
		From:    s.address,
		Context: ctx,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if from != s.address {
				return nil, bind.ErrNotAuthorized
			}
			return s.SignTx(ctx, tx)
		},
	}, nil
}

// SignTx has the wallet sign tx and checks the signature belongs to the account.
func (s *Signer) SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	raw, err := eip1193.Call[hexutil.Bytes](ctx, s.wallet, eip1193.MethodSignTransaction, eip1193.NewTxArgs(s.address, tx))
	if err != nil {
		return nil, err
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decoding signed transaction: %w", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(s.chainID), signed)
	if err != nil {
		return nil, fmt.Errorf("recovering signer: %w", err)
	}
	if sender != s.address {
		return nil, fmt.Errorf("wallet signed with %s, want %s", sender.Hex(), s.address.Hex())
	}
	return signed, nil
}
