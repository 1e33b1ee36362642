package ui

import (
	"context"
	"errors"

	"github.com/Mohsinsiddi/cryptopet/internal/battle"
	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/connector"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
	"github.com/Mohsinsiddi/cryptopet/internal/rpc"
	"github.com/Mohsinsiddi/cryptopet/internal/session"
	"github.com/Mohsinsiddi/cryptopet/internal/wallet"
)

var hints = []struct {
	err  error
	hint string
}{
	{pets.ErrPetNotFound, "list your pets with: cryptopet pets"},
	{pets.ErrEmptyName, "give your pet a name: cryptopet mint <name>"},
	{battle.ErrOpponentFetch, "check the opponent pet id"},
	{connector.ErrWalletUnavailable, "add a wallet with: cryptopet wallet add <name>"},
	// Switch failures wrap the wallet's rejection; keep them ahead of it.
	{connector.ErrChainSwitchFailed, "switch the wallet network manually, then reconnect"},
	{connector.ErrChainMismatch, "switch the wallet to the target network and reconnect"},
	{connector.ErrUserRejected, "the request was rejected in the wallet, run the command again to retry"},
	{contract.ErrContractNotInitialized, "connect a wallet or check your RPC settings: cryptopet rpc best"},
	{contract.ErrCallException, "check the contract address: cryptopet contract list"},
	{contract.ErrNetwork, "check your connection and RPC settings: cryptopet rpc best"},
	{contract.ErrTransactionFailed, "the transaction reverted, check the pet id and your balance"},
	{contract.ErrDeploymentNotFound, "set an address with: cryptopet contract set <chain> <address>"},
	{session.ErrNoProvider, "no RPC answered, add one with: cryptopet rpc add <chain> <url>"},
	{rpc.ErrNoHealthyRPC, "add a working RPC with: cryptopet rpc add <chain> <url>"},
	{wallet.ErrWalletNotFound, "list wallets with: cryptopet wallet list"},
	{chain.ErrChainNotFound, "list supported networks with: cryptopet network list"},
	{context.DeadlineExceeded, "the request timed out, try again"},
}

// Describe returns the message and a suggested next step for err. hint is
// empty when nothing specific applies.
func Describe(err error) (msg, hint string) {
	if err == nil {
		return "", ""
	}
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return err.Error(), h.hint
		}
	}
	return err.Error(), ""
}

// FormatError renders err with its hint for terminal output.
func FormatError(err error) string {
	msg, hint := Describe(err)
	if hint == "" {
		return Err(msg)
	}
	return Err(msg) + "\n" + Hint(hint)
}
