package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/ens"
	"github.com/Mohsinsiddi/cryptopet/internal/session"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet to the pet contract",
	Long: `Ask the wallet for an account and make sure it is on the target network.

The wallet prompts once per origin. Later runs reconnect silently until the
permission is revoked with 'cryptopet wallet revoke'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.connect(ctx); err != nil {
			return err
		}
		st := a.store.Snapshot()
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Connected %s on %s",
			ui.Addr(st.Address.Hex()), ui.ChainName(a.target.ChainName))))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the network, contract and account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		st := a.store.Snapshot()
		pairs := [][2]string{
			{"Target", fmt.Sprintf("%s (%s)", a.target.ChainName, a.slug)},
			{"Contract", ui.Addr(a.address.Hex())},
		}

		ns, err := ui.Spin("Checking network...", func() (session.NetworkStatus, error) {
			ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
			defer cancel()
			return a.store.NetworkStatus(ctx)
		})
		switch {
		case err != nil:
			pairs = append(pairs, [2]string{"Network", ui.StyleError.Render(err.Error())})
		case ns.Matches:
			pairs = append(pairs, [2]string{"Network", ui.StyleSuccess.Render(fmt.Sprintf("✓ chain %s", ns.ChainID))})
		default:
			pairs = append(pairs, [2]string{"Network", ui.StyleError.Render(fmt.Sprintf("✗ chain %s, expected %s", ns.ChainID, a.target.ID()))})
		}
		if err == nil {
			source := "public rpc"
			if ns.ViaWallet {
				source = "wallet"
			}
			pairs = append(pairs, [2]string{"Via", source})
		}

		if st.IsConnected {
			pairs = append(pairs, [2]string{"Account", ui.Addr(st.Address.Hex())})
			if name := reverseName(ctx, a, st.Address); name != "" {
				pairs = append(pairs, [2]string{"ENS", ui.Val(name)})
			}
		} else {
			pairs = append(pairs, [2]string{"Account", ui.Meta("not connected")})
		}

		if err == nil {
			priceCtx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
			price, perr := a.store.Facade().MintPrice(priceCtx)
			cancel()
			if perr != nil {
				log.Debug("mint price unavailable", zap.Error(perr))
				pairs = append(pairs, [2]string{"Mint price", ui.Meta("unavailable")})
			} else {
				c := a.target.NativeCurrency
				pairs = append(pairs, [2]string{"Mint price", ui.Val(ui.FormatAmount(price, c.Decimals, c.Symbol))})
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("CryptoPet", pairs))
		if !st.IsConnected && !noWallet {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("Connect with: cryptopet connect"))
		}
		return nil
	},
}

// reverseName returns the account's primary ENS name, or "" when it has none
// or the chain has no registry.
func reverseName(ctx context.Context, a *app, addr common.Address) string {
	provider := a.store.ReadProvider()
	if !ens.Supported(a.slug) || provider == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	defer cancel()
	name, err := ens.NewResolver(provider).Reverse(ctx, addr)
	if err != nil {
		log.Debug("no reverse ens name", zap.Error(err))
		return ""
	}
	return name
}
