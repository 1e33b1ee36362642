package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
)

var (
	// ErrContractNotInitialized is returned when the handle an operation
	// needs has not been derived, e.g. a write without a connected wallet.
	ErrContractNotInitialized = errors.New("contract not initialized")
	// ErrNetwork marks transport failures reaching the chain.
	ErrNetwork = errors.New("network error")
	// ErrCallException marks reverted calls and calls to an address with no
	// contract behind it.
	ErrCallException = errors.New("contract error")
	// ErrTransactionFailed is returned when a mined transaction has status 0.
	ErrTransactionFailed = errors.New("transaction failed")
)

// codeExecutionReverted is the JSON-RPC code nodes use for reverted calls.
const codeExecutionReverted = 3

// mapError sorts a backend error into the package taxonomy. Errors carrying a
// code the taxonomy does not know are returned wrapped but unclassified.
func mapError(op, chainName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, bind.ErrNoCode) || isRevert(err) {
		return fmt.Errorf("%w: make sure you are on the correct network: %s: %w", ErrCallException, op, err)
	}
	code, ok := eip1193.Code(err)
	switch {
	case ok && code == eip1193.CodeUserRejected:
		return fmt.Errorf("%s: %w: %w", op, eip1193.ErrUserRejected, err)
	case !ok, code == eip1193.CodeDisconnected, code == eip1193.CodeChainDisconnected:
		return fmt.Errorf("%w: check you are connected to %s: %s: %w", ErrNetwork, chainName, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isRevert(err error) bool {
	if code, ok := eip1193.Code(err); ok && code == codeExecutionReverted {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
