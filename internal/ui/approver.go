package ui

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/wallet"
)

// PromptApprover asks the terminal user to approve wallet requests. It is
// the Approver behind the built-in wallet.
type PromptApprover struct {
	p *Prompter
}

var _ wallet.Approver = (*PromptApprover)(nil)

// NewPromptApprover returns an approver prompting through p. A nil p uses
// stdin and stderr.
func NewPromptApprover(p *Prompter) *PromptApprover {
	if p == nil {
		p = stdPrompter
	}
	return &PromptApprover{p: p}
}

// ApproveAccounts lists the wallets and lets the user pick which ones origin
// may see. The default wallet is preselected.
func (a *PromptApprover) ApproveAccounts(ctx context.Context, origin string, available []*wallet.Wallet) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(available) == 0 {
		a.p.Print(Err("no wallets, add one with: cryptopet wallet add <name> --generate"))
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("🔐 %s wants to connect", origin)) + "\n")
	def := []int{0}
	for i, w := range available {
		mark := " "
		if w.IsDefault {
			mark = "*"
			def = []int{i}
		}
		fmt.Fprintf(&sb, "  %s %d) %s  %s\n", mark, i+1, StyleValue.Render(w.Name), Addr(w.Address))
	}
	a.p.Print(sb.String())

	picked, err := a.p.Choose(fmt.Sprintf("Accounts to share [%d, n to reject]:", def[0]+1), len(available), def)
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(picked))
	for _, i := range picked {
		out = append(out, available[i].Addr())
	}
	return out, nil
}

// ApproveSwitch asks before moving the wallet to another chain.
func (a *PromptApprover) ApproveSwitch(ctx context.Context, origin string, to chain.Descriptor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a.p.Confirm(fmt.Sprintf("%s wants to switch the network to %s (%s). Allow?", origin, to.ChainName, to.ChainID)), nil
}

// ApproveAddChain shows the chain parameters before adding it.
func (a *PromptApprover) ApproveAddChain(ctx context.Context, origin string, d chain.Descriptor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.p.Print(KeyValueBlock(origin+" wants to add a network", [][2]string{
		{"Network", d.ChainName},
		{"Chain ID", d.ChainID},
		{"Currency", fmt.Sprintf("%s (%s)", d.NativeCurrency.Name, d.NativeCurrency.Symbol)},
		{"RPC", strings.Join(d.RPCURLs, ", ")},
		{"Explorer", strings.Join(d.BlockExplorerURLs, ", ")},
	}))
	return a.p.Confirm("Add this network?"), nil
}

// ApproveTransaction shows the transaction before it is signed.
func (a *PromptApprover) ApproveTransaction(ctx context.Context, origin string, from common.Address, tx *types.Transaction, on chain.Descriptor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	pairs := [][2]string{
		{"Network", on.ChainName},
		{"From", from.Hex()},
		{"To", to},
		{"Value", FormatAmount(tx.Value(), on.NativeCurrency.Decimals, on.NativeCurrency.Symbol)},
		{"Gas limit", fmt.Sprintf("%d", tx.Gas())},
		{"Max fee", FormatAmount(new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas())), on.NativeCurrency.Decimals, on.NativeCurrency.Symbol)},
	}
	if len(tx.Data()) >= 4 {
		pairs = append(pairs, [2]string{"Method", hexutil.Encode(tx.Data()[:4])})
	}
	a.p.Print(KeyValueBlock(origin+" requests a transaction", pairs))
	return a.p.Confirm("Sign and send?"), nil
}

// ApproveMessage shows the message before a personal_sign.
func (a *PromptApprover) ApproveMessage(ctx context.Context, origin string, from common.Address, message []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	text := hexutil.Encode(message)
	if utf8.Valid(message) {
		text = string(message)
	}
	a.p.Print(KeyValueBlock(origin+" requests a signature", [][2]string{
		{"Account", from.Hex()},
		{"Message", text},
	}))
	return a.p.Confirm("Sign message?"), nil
}

// FormatAmount renders an integer amount in whole units with up to six
// decimals, e.g. "0.01 ETH".
func FormatAmount(v *big.Int, decimals int, symbol string) string {
	if v == nil {
		v = new(big.Int)
	}
	unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f := new(big.Float).Quo(new(big.Float).SetInt(v), unit)
	s := strings.TrimRight(strings.TrimRight(f.Text('f', 6), "0"), ".")
	if s == "" {
		s = "0"
	}
	return strings.TrimSpace(s + " " + symbol)
}
