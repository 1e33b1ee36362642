package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// Approver asks the user to confirm wallet actions. A false answer (or an
// error) rejects the request with code 4001.
type Approver interface {
	// ApproveAccounts picks which of the available accounts origin may see.
	// Returning none rejects the connection.
	ApproveAccounts(ctx context.Context, origin string, available []*Wallet) ([]common.Address, error)
	ApproveSwitch(ctx context.Context, origin string, to chain.Descriptor) (bool, error)
	ApproveAddChain(ctx context.Context, origin string, d chain.Descriptor) (bool, error)
	ApproveTransaction(ctx context.Context, origin string, from common.Address, tx *types.Transaction, on chain.Descriptor) (bool, error)
	ApproveMessage(ctx context.Context, origin string, from common.Address, message []byte) (bool, error)
}

// AutoApprove accepts everything and exposes the first available account.
type AutoApprove struct{}

func (AutoApprove) ApproveAccounts(_ context.Context, _ string, available []*Wallet) ([]common.Address, error) {
	if len(available) == 0 {
		return nil, nil
	}
	return []common.Address{available[0].Addr()}, nil
}

func (AutoApprove) ApproveSwitch(context.Context, string, chain.Descriptor) (bool, error) {
	return true, nil
}

func (AutoApprove) ApproveAddChain(context.Context, string, chain.Descriptor) (bool, error) {
	return true, nil
}

func (AutoApprove) ApproveTransaction(context.Context, string, common.Address, *types.Transaction, chain.Descriptor) (bool, error) {
	return true, nil
}

func (AutoApprove) ApproveMessage(context.Context, string, common.Address, []byte) (bool, error) {
	return true, nil
}

// DenyAll rejects everything.
type DenyAll struct{}

func (DenyAll) ApproveAccounts(context.Context, string, []*Wallet) ([]common.Address, error) {
	return nil, nil
}

func (DenyAll) ApproveSwitch(context.Context, string, chain.Descriptor) (bool, error) {
	return false, nil
}

func (DenyAll) ApproveAddChain(context.Context, string, chain.Descriptor) (bool, error) {
	return false, nil
}

func (DenyAll) ApproveTransaction(context.Context, string, common.Address, *types.Transaction, chain.Descriptor) (bool, error) {
	return false, nil
}

func (DenyAll) ApproveMessage(context.Context, string, common.Address, []byte) (bool, error) {
	return false, nil
}
