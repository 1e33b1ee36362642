package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// Facade pairs the read handle with the optional write handle. Write is nil
// unless a wallet is connected.
type Facade struct {
	Read  *Reader
	Write *Writer

	backend   chain.Backend
	chainName string
	log       *zap.Logger
}

// GetPetsByOwner returns the non-zero token ids owned by owner.
func (f *Facade) GetPetsByOwner(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	if f == nil || f.Read == nil {
		return nil, ErrContractNotInitialized
	}
	ids, err := f.Read.PetsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		if id != nil && id.Sign() != 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

// GetPetStats reads the stats of pet id.
func (f *Facade) GetPetStats(ctx context.Context, id *big.Int) (PetStats, error) {
	if f == nil || f.Read == nil {
		return PetStats{}, ErrContractNotInitialized
	}
	return f.Read.PetStats(ctx, id)
}

// GetTokenURI reads the metadata URI of pet id.
func (f *Facade) GetTokenURI(ctx context.Context, id *big.Int) (string, error) {
	if f == nil || f.Read == nil {
		return "", ErrContractNotInitialized
	}
	return f.Read.TokenURI(ctx, id)
}

// GetPetType reads the type of pet id.
func (f *Facade) GetPetType(ctx context.Context, id *big.Int) (uint8, error) {
	if f == nil || f.Read == nil {
		return 0, ErrContractNotInitialized
	}
	return f.Read.PetType(ctx, id)
}

// MintPrice reads MINT_PRICE.
func (f *Facade) MintPrice(ctx context.Context) (*big.Int, error) {
	if f == nil || f.Read == nil {
		return nil, ErrContractNotInitialized
	}
	return f.Read.MintPrice(ctx)
}

// MintPet reads the mint price and sends mintPet(name) with that value attached.
func (f *Facade) MintPet(ctx context.Context, name string) (*types.Transaction, error) {
	if f == nil || f.Write == nil || f.Read == nil {
		return nil, ErrContractNotInitialized
	}
	price, err := f.Read.MintPrice(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := f.Write.transact(ctx, price, MethodMintPet, name)
	if err != nil {
		return nil, err
	}
	f.log.Info("mint submitted", zap.String("tx", tx.Hash().Hex()), zap.String("name", name), zap.String("value", price.String()))
	return tx, nil
}

// FeedPet sends feedPet(id).
func (f *Facade) FeedPet(ctx context.Context, id *big.Int) (*types.Transaction, error) {
	return f.send(ctx, MethodFeedPet, id)
}

// PlayWithPet sends playWithPet(id).
func (f *Facade) PlayWithPet(ctx context.Context, id *big.Int) (*types.Transaction, error) {
	return f.send(ctx, MethodPlayWithPet, id)
}

func (f *Facade) send(ctx context.Context, method string, id *big.Int) (*types.Transaction, error) {
	if f == nil || f.Write == nil {
		return nil, ErrContractNotInitialized
	}
	tx, err := f.Write.transact(ctx, nil, method, id)
	if err != nil {
		return nil, err
	}
	f.log.Info("transaction submitted", zap.String("method", method), zap.String("tx", tx.Hash().Hex()), zap.String("pet", id.String()))
	return tx, nil
}

// WaitMined blocks until tx is mined or ctx ends. A receipt with status 0
// yields ErrTransactionFailed alongside the receipt.
func (f *Facade) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if f == nil || f.backend == nil {
		return nil, ErrContractNotInitialized
	}
	receipt, err := bind.WaitMined(ctx, f.backend, tx)
	if err != nil {
		return nil, mapError("waiting for "+tx.Hash().Hex(), f.chainName, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		f.log.Warn("transaction reverted", zap.String("tx", tx.Hash().Hex()), zap.Uint64("block", receipt.BlockNumber.Uint64()))
		return receipt, fmt.Errorf("%w: %s", ErrTransactionFailed, tx.Hash().Hex())
	}
	f.log.Debug("transaction mined", zap.String("tx", tx.Hash().Hex()), zap.Uint64("gas_used", receipt.GasUsed))
	return receipt, nil
}

// Deriver builds facades for one contract deployment and returns the same
// facade while its inputs are unchanged.
type Deriver struct {
	address common.Address
	target  chain.Descriptor
	log     *zap.Logger

	mu        sync.Mutex
	derived   bool
	provider  chain.Backend
	signer    TxSigner
	connected bool
	facade    *Facade
}

// NewDeriver returns a Deriver for the contract at address on target.
func NewDeriver(address common.Address, target chain.Descriptor, log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{address: address, target: target, log: log.Named("contract")}
}

// Address returns the contract address.
func (d *Deriver) Address() common.Address {
	return d.address
}

// Derive returns the handles for the given connection inputs. The write
// handle exists only when connected with a signer. Inputs are compared by
// identity.
func (d *Deriver) Derive(provider chain.Backend, signer TxSigner, connected bool) *Facade {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.derived && d.provider == provider && d.signer == signer && d.connected == connected {
		return d.facade
	}

	f := &Facade{backend: provider, chainName: d.target.ChainName, log: d.log}
	if provider != nil {
		f.Read = NewReader(provider, d.address, d.target.ChainName)
		if connected && signer != nil {
			f.Write = NewWriter(provider, signer, d.address, d.target.ChainName)
		}
	}
	d.derived, d.provider, d.signer, d.connected, d.facade = true, provider, signer, connected, f
	d.log.Debug("contract handles derived", zap.Bool("read", f.Read != nil), zap.Bool("write", f.Write != nil))
	return f
}
