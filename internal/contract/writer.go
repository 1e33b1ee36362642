package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// TxSigner produces transact options for one account.
type TxSigner interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Writer submits state-changing transactions signed by the wallet.
type Writer struct {
	bound     *bind.BoundContract
	signer    TxSigner
	chainName string
}

// NewWriter returns a write handle for the contract at address.
func NewWriter(backend chain.Backend, signer TxSigner, address common.Address, chainName string) *Writer {
	return &Writer{
		bound:     bind.NewBoundContract(address, PetABI, backend, backend, nil),
		signer:    signer,
		chainName: chainName,
	}
}

// From returns the sending account.
func (w *Writer) From() common.Address {
	return w.signer.Address()
}

// transact builds, signs and broadcasts a call to method. Nonce, fees and gas
// come from the backend.
func (w *Writer) transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Transaction, error) {
	opts, err := w.signer.TransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("transact options: %w", err)
	}
	opts.Context = ctx
	opts.Value = value
	tx, err := w.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, mapError(method, w.chainName, err)
	}
	return tx, nil
}
